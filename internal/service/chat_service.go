// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"science-chat-go/internal/config"
	"science-chat-go/internal/model"
	"science-chat-go/internal/repository"
	"science-chat-go/pkg/log"
)

// ChatService 是对话编排器：重建上下文、执行一轮问答并持久化结果。
type ChatService interface {
	// HandleTurn 处理一轮对话。threadID 为空时创建新线程。
	// useAgent 为 false 时答复是对输入的确定性回声变换。
	// 返回答复文本、线程 ID 与刷新后的线程摘要。
	HandleTurn(ctx context.Context, threadID, userText string, useAgent bool) (string, string, *model.ThreadSummary, error)
}

type chatService struct {
	agentService AgentService
	threadRepo   repository.ThreadRepository
	messageRepo  repository.MessageRepository
	checkpoints  *repository.CheckpointStore
	// 按线程 ID 串行化整轮处理，同一线程的回合按持久化顺序获得序号
	turnLocks sync.Map // map[string]*sync.Mutex
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(agentService AgentService, threadRepo repository.ThreadRepository, messageRepo repository.MessageRepository, checkpoints *repository.CheckpointStore) ChatService {
	return &chatService{
		agentService: agentService,
		threadRepo:   threadRepo,
		messageRepo:  messageRepo,
		checkpoints:  checkpoints,
	}
}

func (s *chatService) turnLock(threadID string) *sync.Mutex {
	v, _ := s.turnLocks.LoadOrStore(threadID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// HandleTurn 执行完整的一轮：加载上下文 → 追加用户消息 → 生成答复 →
// 追加助手消息 → 幂等持久化 → 刷新检查点与线程元数据。
func (s *chatService) HandleTurn(ctx context.Context, threadID, userText string, useAgent bool) (string, string, *model.ThreadSummary, error) {
	if strings.TrimSpace(userText) == "" {
		return "", "", nil, fmt.Errorf("消息内容不能为空")
	}

	// 1. 无线程 ID 时生成新的唯一 ID
	isNew := false
	if threadID == "" {
		threadID = uuid.NewString()
		isNew = true
	}

	mu := s.turnLock(threadID)
	mu.Lock()
	defer mu.Unlock()

	// 2. 优先从检查点取工作上下文；冷线程或重启后回退到持久层重建
	history, ok := s.checkpoints.Get(threadID)
	if !ok {
		loaded, err := s.messageRepo.LoadOrdered(ctx, threadID)
		if err != nil {
			return "", "", nil, fmt.Errorf("重建线程上下文失败: %w", err)
		}
		history = loaded
	}

	// 客户端提供的 ID 在元数据层不存在时按新线程处理
	if !isNew {
		if _, err := s.threadRepo.Get(ctx, threadID); err != nil {
			if !errors.Is(err, repository.ErrThreadNotFound) {
				return "", "", nil, err
			}
			isNew = true
		}
	}

	// 3. 把本轮用户消息追加到上下文
	now := time.Now().UTC()
	history = append(history, model.ChatMessage{
		Role:      model.RoleUser,
		Content:   userText,
		Timestamp: now,
	})

	// 4. 生成答复：agent 模式走工作流，echo 模式做确定性变换
	var reply string
	if useAgent && config.Conf.Agent.Enable {
		reply = s.agentService.Run(ctx, history)
	} else {
		reply = echoReply(userText)
	}

	// 5. 把答复作为助手消息追加到上下文
	history = append(history, model.ChatMessage{
		Role:      model.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now().UTC(),
	})

	// 6. 新线程先落元数据行，保证消息外键引用完整
	if isNew {
		title := deriveTitle(history)
		if _, err := s.threadRepo.Create(ctx, threadID, title, ""); err != nil {
			if !errors.Is(err, repository.ErrThreadExists) {
				return "", "", nil, err
			}
			// 并发首轮竞争：另一回合已创建，按已存在继续
			log.Warnf("线程 %s 已被并发创建，继续处理", threadID)
		}
	}

	// 7. 幂等的差异化持久化，并刷新检查点
	if _, err := s.messageRepo.AppendNew(ctx, threadID, history); err != nil {
		return "", "", nil, fmt.Errorf("持久化本轮消息失败: %w", err)
	}
	s.checkpoints.Put(threadID, history)

	// 8. 刷新线程元数据并返回摘要
	messageCount := 0
	for _, m := range history {
		if m.Role.Countable() {
			messageCount++
		}
	}
	preview := truncateRunes(reply, previewMaxRunes())
	if err := s.threadRepo.UpdateMetadata(ctx, threadID, messageCount, preview); err != nil {
		return "", "", nil, err
	}

	thread, err := s.threadRepo.Get(ctx, threadID)
	if err != nil {
		return "", "", nil, err
	}

	log.Infow("对话回合处理完成",
		"threadId", threadID,
		"mode", mode(useAgent),
		"messageCount", thread.MessageCount,
	)
	return reply, threadID, thread.Summary(), nil
}

// deriveTitle 从首条用户消息取线程标题。
func deriveTitle(history []model.ChatMessage) string {
	for _, m := range history {
		if m.Role == model.RoleUser {
			return truncateRunes(m.Content, titleMaxRunes())
		}
	}
	return "Untitled"
}

func titleMaxRunes() int {
	if n := config.Conf.Chat.TitleMaxRunes; n > 0 {
		return n
	}
	return 50
}

func previewMaxRunes() int {
	if n := config.Conf.Chat.PreviewMaxRunes; n > 0 {
		return n
	}
	return 100
}

func mode(useAgent bool) string {
	if useAgent {
		return "agent"
	}
	return "echo"
}

// truncateRunes 按 rune 截断，避免截断多字节字符。
func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
