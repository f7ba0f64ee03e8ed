// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Search   SearchConfig   `mapstructure:"search"`
	LLM      LLMConfig      `mapstructure:"llm"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储数据库连接的配置。
// Driver 支持 "sqlite" 与 "mysql" 两种驱动。
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// ChatConfig 存储对话元数据派生相关的配置。
type ChatConfig struct {
	TitleMaxRunes   int `mapstructure:"title_max_runes"`
	PreviewMaxRunes int `mapstructure:"preview_max_runes"`
}

// AgentConfig 存储智能体工作流相关的配置。
type AgentConfig struct {
	Enable                bool `mapstructure:"enable"`
	SearchLimit           int  `mapstructure:"search_limit"`
	MaxResults            int  `mapstructure:"max_results"`
	AdapterTimeoutSeconds int  `mapstructure:"adapter_timeout_seconds"`
}

// SearchConfig 存储外部检索源相关的配置。
type SearchConfig struct {
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
	Arxiv     ArxivConfig     `mapstructure:"arxiv"`
}

// WikipediaConfig 存储 Wikipedia API 的配置。
type WikipediaConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Lang    string `mapstructure:"lang"`
}

// ArxivConfig 存储 arXiv API 的配置。
type ArxivConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// LLMConfig 存储大语言模型相关的配置。
// APIKey 为空时，Generate 节点使用确定性的模板答案。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}

// setDefaults 设置缺省配置值，保证未显式配置的部署仍可启动。
func setDefaults() {
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./conversations.db")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("chat.title_max_runes", 50)
	viper.SetDefault("chat.preview_max_runes", 100)
	viper.SetDefault("agent.enable", true)
	viper.SetDefault("agent.search_limit", 3)
	viper.SetDefault("agent.max_results", 6)
	viper.SetDefault("agent.adapter_timeout_seconds", 15)
	viper.SetDefault("search.wikipedia.base_url", "https://en.wikipedia.org/w/api.php")
	viper.SetDefault("search.wikipedia.lang", "en")
	viper.SetDefault("search.arxiv.base_url", "http://export.arxiv.org/api/query")
}
