// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"science-chat-go/internal/config"
	"science-chat-go/internal/model"
	"science-chat-go/pkg/llm"
	"science-chat-go/pkg/log"
	"science-chat-go/pkg/search"
)

// 检索策略的封闭取值集合。
const (
	StrategyGeneral = "general"
	StrategyPapers  = "papers"
)

// 问题中出现这些关键词时选择 papers 策略。
var paperKeywords = []string{"paper", "study", "research", "publication", "arxiv", "recent"}

const systemPrompt = `You are a scientific research assistant who synthesizes information from trusted sources.

Goals:
- Provide concise, precise answers to scientific questions using the supplied context.
- Cite every factual claim with the provided source identifiers (for example, [W1] or [A2]).
- If the context is insufficient, state that clearly and suggest the next question to clarify.

Sources:
- Wikipedia snippets labeled as [W*]
- arXiv papers labeled as [A*]

Style:
- Favor short paragraphs or tight bullet points.
- Keep a "References" section listing the cited IDs and their URLs.
- Use the conversation history if provided.`

const noSourcesAnswer = "I couldn't find reliable sources for this question. " +
	"Please try rephrasing or asking a different question."

// AgentState 是一次工作流调用的瞬态状态，调用结束后即丢弃。
type AgentState struct {
	// Messages 是调用时的完整有序上下文（含本轮用户消息）。
	Messages []model.ChatMessage
	// Question 是从上下文派生出的最近一条用户提问。
	Question string
	// Strategy 是 Classify 节点选定的检索策略。
	Strategy string
	// Results 是 Search 节点聚合后的有界排序结果。
	Results []search.Result
	// FinalAnswer 是 Generate 节点产出的带引用答案。
	FinalAnswer string
}

// AgentService 定义了 classify→search→generate 工作流的接口。
// Run 从不向调用方返回错误：任何内部失败都退化为对问题的回声答复。
type AgentService interface {
	Run(ctx context.Context, msgs []model.ChatMessage) string
}

type agentService struct {
	wikipedia      search.Adapter
	arxiv          search.Adapter
	llmClient      llm.Client // 可为 nil，此时 Generate 使用确定性模板
	searchLimit    int
	maxResults     int
	adapterTimeout time.Duration
}

// NewAgentService 创建一个新的 AgentService 实例。
func NewAgentService(cfg config.AgentConfig, wikipedia, arxiv search.Adapter, llmClient llm.Client) AgentService {
	searchLimit := cfg.SearchLimit
	if searchLimit <= 0 {
		searchLimit = 3
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 6
	}
	timeout := time.Duration(cfg.AdapterTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &agentService{
		wikipedia:      wikipedia,
		arxiv:          arxiv,
		llmClient:      llmClient,
		searchLimit:    searchLimit,
		maxResults:     maxResults,
		adapterTimeout: timeout,
	}
}

// 工作流节点，classify 为初始节点，done 为终止节点，从不回退。
type nodeID int

const (
	nodeClassify nodeID = iota
	nodeSearch
	nodeGenerate
	nodeDone
)

// Run 在给定上下文上执行整个工作流并返回最终答案。
func (s *agentService) Run(ctx context.Context, msgs []model.ChatMessage) (answer string) {
	question := latestQuestion(msgs)

	// 工作流内的任何意外失败都不能向上传播，退化为回声答复
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("智能体工作流异常，退化为回声答复: %v", rec)
			answer = echoReply(question)
		}
	}()

	state := &AgentState{
		Messages: msgs,
		Question: question,
		Strategy: StrategyGeneral,
	}

	for node := nodeClassify; node != nodeDone; {
		switch node {
		case nodeClassify:
			node = s.classify(state)
		case nodeSearch:
			node = s.searchInformation(ctx, state)
		case nodeGenerate:
			node = s.generate(ctx, state)
		}
	}

	if state.FinalAnswer == "" {
		return echoReply(question)
	}
	return state.FinalAnswer
}

// classify 通过关键词启发式选定检索策略，无外部调用。
// 没有任何信号命中时回退到 general。
func (s *agentService) classify(state *AgentState) nodeID {
	lower := strings.ToLower(state.Question)
	state.Strategy = StrategyGeneral
	for _, kw := range paperKeywords {
		if strings.Contains(lower, kw) {
			state.Strategy = StrategyPapers
			break
		}
	}
	log.Debugf("问题分类完成: strategy=%s", state.Strategy)
	return nodeSearch
}

// searchInformation 按策略并发调用检索适配器并聚合结果。
// 单个适配器失败或超时只贡献空列表，从不中断工作流。
func (s *agentService) searchInformation(ctx context.Context, state *AgentState) nodeID {
	adapters := []search.Adapter{s.wikipedia}
	if state.Strategy == StrategyPapers {
		adapters = append(adapters, s.arxiv)
	}

	buckets := make([][]search.Result, len(adapters))
	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter search.Adapter) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					log.Errorf("适配器 %s 检索异常: %v", adapter.Name(), rec)
				}
			}()

			cctx, cancel := context.WithTimeout(ctx, s.adapterTimeout)
			defer cancel()

			results, err := adapter.Search(cctx, state.Question, s.searchLimit)
			if err != nil {
				log.Warnf("适配器 %s 检索失败: %v", adapter.Name(), err)
				return
			}
			buckets[i] = results
		}(i, adapter)
	}
	wg.Wait()

	// 按源优先级聚合，桶内保持原始顺序，总量封顶
	aggregated := make([]search.Result, 0)
	prio := make([]int, 0)
	for i, bucket := range buckets {
		for _, r := range bucket {
			aggregated = append(aggregated, r)
			prio = append(prio, adapters[i].Priority())
		}
	}
	order := make([]int, len(aggregated))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return prio[order[a]] < prio[order[b]]
	})
	sorted := make([]search.Result, 0, len(aggregated))
	for _, idx := range order {
		sorted = append(sorted, aggregated[idx])
	}
	if len(sorted) > s.maxResults {
		sorted = sorted[:s.maxResults]
	}
	state.Results = sorted

	log.Infof("检索聚合完成: strategy=%s results=%d", state.Strategy, len(state.Results))
	return nodeGenerate
}

// labeledResult 给每条结果分配引用标签（Wikipedia→W*，arXiv→A*）。
type labeledResult struct {
	label  string
	result search.Result
}

// generate 把聚合结果合成为带引用列表的答案。
// 配置了 LLM 时使用其输出，失败则回退到确定性模板；
// 结果为空时使用固定的"未找到来源"答复，绝不虚构内容。
func (s *agentService) generate(ctx context.Context, state *AgentState) nodeID {
	if len(state.Results) == 0 {
		state.FinalAnswer = noSourcesAnswer
		return nodeDone
	}

	labeled := labelResults(state.Results)

	if s.llmClient != nil {
		answer, err := s.generateWithLLM(ctx, state, labeled)
		if err == nil {
			state.FinalAnswer = answer
			return nodeDone
		}
		log.Warnf("LLM 生成失败，回退到模板答案: %v", err)
	}

	state.FinalAnswer = buildTemplateAnswer(state.Question, labeled)
	return nodeDone
}

// generateWithLLM 组装 system 提示、历史与上下文块后调用 LLM。
func (s *agentService) generateWithLLM(ctx context.Context, state *AgentState, labeled []labeledResult) (string, error) {
	msgs := []llm.Message{{Role: "system", Content: systemPrompt}}
	for _, m := range state.Messages {
		switch m.Role {
		case model.RoleUser, model.RoleAssistant, model.RoleSystem:
			msgs = append(msgs, llm.Message{Role: string(m.Role), Content: m.Content})
		case model.RoleTool:
			// 工具记账消息不进入 LLM 上下文
		}
	}

	var userPrompt strings.Builder
	fmt.Fprintf(&userPrompt, "User question:\n%s\n\n", state.Question)
	userPrompt.WriteString("Available context:\n")
	userPrompt.WriteString(buildContextBlock(labeled))
	userPrompt.WriteString("\nInstructions:\n")
	userPrompt.WriteString("- Synthesize a clear, concise answer using the provided sources.\n")
	userPrompt.WriteString("- Cite each claim with the source identifiers (e.g., [W1], [A2]).\n")
	userPrompt.WriteString("- Add a short References section listing the cited IDs with their URLs.\n")
	userPrompt.WriteString("- If information is missing, say so explicitly and suggest a follow-up question.\n")
	msgs = append(msgs, llm.Message{Role: "user", Content: userPrompt.String()})

	return s.llmClient.ChatCompletion(ctx, msgs)
}

// labelResults 按来源给结果编号：Wikipedia→W1..，arXiv→A1..，其他→S1..。
func labelResults(results []search.Result) []labeledResult {
	counters := make(map[string]int)
	labeled := make([]labeledResult, 0, len(results))
	for _, r := range results {
		prefix := "S"
		switch r.Source {
		case "Wikipedia":
			prefix = "W"
		case "arXiv":
			prefix = "A"
		}
		counters[prefix]++
		labeled = append(labeled, labeledResult{
			label:  fmt.Sprintf("%s%d", prefix, counters[prefix]),
			result: r,
		})
	}
	return labeled
}

// buildContextBlock 把带标签的结果渲染为上下文行。
func buildContextBlock(labeled []labeledResult) string {
	var b strings.Builder
	for _, lr := range labeled {
		title := lr.result.Title
		if title == "" {
			title = "Untitled"
		}
		if lr.result.Authors != "" {
			fmt.Fprintf(&b, "[%s] %s :: Authors: %s. Abstract: %s (Source: %s)\n",
				lr.label, title, lr.result.Authors, trimText(lr.result.Snippet, 500), lr.result.URL)
		} else {
			fmt.Fprintf(&b, "[%s] %s :: %s (Source: %s)\n",
				lr.label, title, trimText(lr.result.Snippet, 500), lr.result.URL)
		}
	}
	return b.String()
}

// buildTemplateAnswer 是无 LLM 时的确定性合成：片段摘要加引用列表。
func buildTemplateAnswer(question string, labeled []labeledResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is a summary of what the sources say about \"%s\":\n\n", question)
	for _, lr := range labeled {
		title := lr.result.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "- %s: %s [%s]\n", title, trimText(lr.result.Snippet, 500), lr.label)
	}
	b.WriteString("\nReferences:\n")
	for _, lr := range labeled {
		fmt.Fprintf(&b, "[%s] %s\n", lr.label, lr.result.URL)
	}
	return b.String()
}

// latestQuestion 从上下文中取最近一条用户消息作为本轮问题。
func latestQuestion(msgs []model.ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

// echoReply 是工作流整体退化时的答复，也用于 echo 模式。
func echoReply(text string) string {
	return "Has dicho: " + text
}

// trimText 按 rune 截断文本，超长时附加省略号。
func trimText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
