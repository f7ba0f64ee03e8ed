// Package search 提供对外部知识源的统一检索客户端。
package search

import "context"

// Result 是一条来自外部知识源的检索结果。
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	Source  string `json:"source"`
	Authors string `json:"authors,omitempty"`
}

// Adapter 是暴露给智能体工作流的检索源接口。
// 实现者返回有界的排序结果列表；调用方负责超时控制，
// 并把失败隔离为空结果而不是中断工作流。
type Adapter interface {
	// Name 返回知识源名称，用于日志与引用标签。
	Name() string
	// Priority 返回聚合排序时的源优先级，数值越小优先级越高。
	Priority() int
	// Search 按查询返回至多 limit 条排序结果。
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}
