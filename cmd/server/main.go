// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"science-chat-go/internal/config"
	"science-chat-go/internal/handler"
	"science-chat-go/internal/middleware"
	"science-chat-go/internal/repository"
	"science-chat-go/internal/service"
	"science-chat-go/pkg/database"
	"science-chat-go/pkg/llm"
	"science-chat-go/pkg/log"
	"science-chat-go/pkg/search"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库并迁移表结构
	database.Init(cfg.Database.Driver, cfg.Database.DSN)

	// 4. 初始化 Repository 与进程级检查点缓存
	threadRepo := repository.NewThreadRepository(database.DB)
	messageRepo := repository.NewMessageRepository(database.DB)
	checkpoints := repository.NewCheckpointStore()

	// 5. 初始化检索适配器与可选的 LLM 客户端
	wikipedia := search.NewWikipediaClient(cfg.Search.Wikipedia)
	arxiv := search.NewArxivClient(cfg.Search.Arxiv)
	var llmClient llm.Client
	if cfg.LLM.APIKey != "" {
		llmClient = llm.NewClient(cfg.LLM)
		log.Infof("LLM 客户端已启用: model=%s", cfg.LLM.Model)
	} else {
		log.Info("未配置 LLM API Key，Generate 节点使用模板答案")
	}

	// 6. 初始化 Service (依赖注入)
	agentService := service.NewAgentService(cfg.Agent, wikipedia, arxiv, llmClient)
	chatService := service.NewChatService(agentService, threadRepo, messageRepo, checkpoints)
	threadService := service.NewThreadService(threadRepo, messageRepo, checkpoints)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.CORS(), gin.Recovery())

	// 8. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		chatHandler := handler.NewChatHandler(chatService)
		apiV1.POST("/chat", chatHandler.Chat)

		threadHandler := handler.NewThreadHandler(threadService)
		threads := apiV1.Group("/threads")
		{
			threads.GET("", threadHandler.ListThreads)
			threads.GET("/:threadId", threadHandler.GetThread)
			threads.DELETE("/:threadId", threadHandler.DeleteThread)
			threads.GET("/:threadId/messages", threadHandler.GetThreadMessages)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
