// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"science-chat-go/internal/model"
	"science-chat-go/pkg/log"
)

// MessageRepository 定义了消息持久化的操作接口。
//
// 工作流在每次调用时都会重新推导完整上下文，自身没有持久记忆，
// 因此保存路径必须与已持久化的内容做差异比对，而不是信任调用方
// 对"新消息"的判断。AppendNew 据此按已持久化的行数截取尾部新消息，
// 重复提交同一前缀不会产生重复行，也不会改变已有行的序号。
type MessageRepository interface {
	// AppendNew 幂等地追加 msgs 中尚未持久化的尾部消息，
	// 返回本次新增的 user/assistant 消息数。
	AppendNew(ctx context.Context, threadID string, msgs []model.ChatMessage) (int, error)
	// LoadOrdered 按 message_index 升序返回线程的全部消息。
	// 未知或空线程返回空序列，不是错误。
	LoadOrdered(ctx context.Context, threadID string) ([]model.ChatMessage, error)
	// LoadForDisplay 按时间顺序返回仅供展示的 user/assistant 消息。
	LoadForDisplay(ctx context.Context, threadID string) ([]model.DisplayMessage, error)
}

type messageRepository struct {
	db *gorm.DB
	// 按线程 ID 的写锁，保证同一线程的序号分配串行化
	locks sync.Map // map[string]*sync.Mutex
}

// NewMessageRepository 创建一个新的 MessageRepository 实例。
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) threadLock(threadID string) *sync.Mutex {
	v, _ := r.locks.LoadOrStore(threadID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// AppendNew 在持有线程写锁的前提下做基于计数的差异追加。
// 若唯一索引 (thread_id, message_index) 仍然检测到冲突（理论上被锁
// 排除，见 ErrDuplicatedKey 分支），重试一次后再向上返回。
func (r *messageRepository) AppendNew(ctx context.Context, threadID string, msgs []model.ChatMessage) (int, error) {
	mu := r.threadLock(threadID)
	mu.Lock()
	defer mu.Unlock()

	newCountable, err := r.appendNewOnce(ctx, threadID, msgs)
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		log.Warnf("线程 %s 消息序号冲突，重试一次", threadID)
		return r.appendNewOnce(ctx, threadID, msgs)
	}
	return newCountable, err
}

func (r *messageRepository) appendNewOnce(ctx context.Context, threadID string, msgs []model.ChatMessage) (int, error) {
	newCountable := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.Message{}).Where("thread_id = ?", threadID).Count(&existing).Error; err != nil {
			return fmt.Errorf("统计已持久化消息失败: %w", err)
		}
		if int64(len(msgs)) <= existing {
			// 整个输入都是已持久化的前缀，无事可做
			return nil
		}

		for i, msg := range msgs[existing:] {
			row, err := msg.ToRow(threadID, int(existing)+i)
			if err != nil {
				return err
			}
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("持久化消息 (index=%d) 失败: %w", row.MessageIndex, err)
			}
			if msg.Role.Countable() {
				newCountable++
			}
		}

		if newCountable > 0 {
			if err := tx.Model(&model.Thread{}).
				Where("thread_id = ?", threadID).
				UpdateColumn("message_count", gorm.Expr("message_count + ?", newCountable)).Error; err != nil {
				return fmt.Errorf("累加线程消息计数失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newCountable, nil
}

// LoadOrdered 把持久化行还原为工作流消费的结构化消息，包含工具调用载荷。
func (r *messageRepository) LoadOrdered(ctx context.Context, threadID string) ([]model.ChatMessage, error) {
	var rows []model.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("message_index ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("加载线程 %s 消息失败: %w", threadID, err)
	}

	msgs := make([]model.ChatMessage, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.ToChatMessage())
	}
	return msgs, nil
}

// LoadForDisplay 过滤掉 system/tool 记账消息，只返回展示所需字段。
func (r *messageRepository) LoadForDisplay(ctx context.Context, threadID string) ([]model.DisplayMessage, error) {
	var rows []model.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ? AND role IN ?", threadID, []model.Role{model.RoleUser, model.RoleAssistant}).
		Order("message_index ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("加载线程 %s 展示消息失败: %w", threadID, err)
	}

	msgs := make([]model.DisplayMessage, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, model.DisplayMessage{
			Role:      row.Role,
			Content:   row.Content,
			CreatedAt: row.CreatedAt,
		})
	}
	return msgs, nil
}
