// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"science-chat-go/internal/model"
)

var (
	// ErrThreadNotFound 表示线程不存在。
	ErrThreadNotFound = errors.New("会话线程不存在")
	// ErrThreadExists 表示线程 ID 已被占用。
	ErrThreadExists = errors.New("会话线程已存在")
)

// ThreadRepository 定义了线程元数据的持久化操作接口。
type ThreadRepository interface {
	Create(ctx context.Context, threadID, title, preview string) (*model.Thread, error)
	Get(ctx context.Context, threadID string) (*model.Thread, error)
	List(ctx context.Context, limit, offset int) ([]model.Thread, error)
	UpdateMetadata(ctx context.Context, threadID string, messageCount int, preview string) error
	Delete(ctx context.Context, threadID string) error
}

type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository 创建一个新的 ThreadRepository 实例。
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

// Create 插入一条新的线程记录，message_count 初始为 0。
// 线程 ID 已存在时返回 ErrThreadExists。
func (r *threadRepository) Create(ctx context.Context, threadID, title, preview string) (*model.Thread, error) {
	now := time.Now().UTC()
	thread := &model.Thread{
		ThreadID:     threadID,
		Title:        title,
		Preview:      preview,
		MessageCount: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.db.WithContext(ctx).Create(thread).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("创建线程 %s 失败: %w", threadID, ErrThreadExists)
		}
		return nil, fmt.Errorf("创建线程失败: %w", err)
	}
	return thread, nil
}

// Get 按 ID 查找线程，不存在时返回 ErrThreadNotFound。
func (r *threadRepository) Get(ctx context.Context, threadID string) (*model.Thread, error) {
	var thread model.Thread
	err := r.db.WithContext(ctx).Where("thread_id = ?", threadID).First(&thread).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询线程 %s 失败: %w", threadID, ErrThreadNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询线程失败: %w", err)
	}
	return &thread, nil
}

// List 按 updated_at 降序返回线程列表（最近活跃优先），
// updated_at 相同时按 thread_id 升序保证确定性。limit 为 0 返回空页。
func (r *threadRepository) List(ctx context.Context, limit, offset int) ([]model.Thread, error) {
	if limit < 0 || offset < 0 {
		return nil, fmt.Errorf("分页参数不能为负: limit=%d offset=%d", limit, offset)
	}
	if limit == 0 {
		return []model.Thread{}, nil
	}

	var threads []model.Thread
	err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Order("thread_id ASC").
		Limit(limit).
		Offset(offset).
		Find(&threads).Error
	if err != nil {
		return nil, fmt.Errorf("查询线程列表失败: %w", err)
	}
	if threads == nil {
		threads = []model.Thread{}
	}
	return threads, nil
}

// UpdateMetadata 更新线程的消息计数与预览，并刷新 updated_at。
// 线程不存在时返回 ErrThreadNotFound。
func (r *threadRepository) UpdateMetadata(ctx context.Context, threadID string, messageCount int, preview string) error {
	tx := r.db.WithContext(ctx).Model(&model.Thread{}).
		Where("thread_id = ?", threadID).
		Updates(map[string]interface{}{
			"message_count": messageCount,
			"preview":       preview,
			"updated_at":    time.Now().UTC(),
		})
	if tx.Error != nil {
		return fmt.Errorf("更新线程元数据失败: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("更新线程 %s 元数据失败: %w", threadID, ErrThreadNotFound)
	}
	return nil
}

// Delete 删除线程及其全部消息。幂等：删除不存在的线程不是错误。
func (r *threadRepository) Delete(ctx context.Context, threadID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先删消息再删线程，不依赖驱动级联配置
		if err := tx.Where("thread_id = ?", threadID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("thread_id = ?", threadID).Delete(&model.Thread{}).Error
	})
	if err != nil {
		return fmt.Errorf("删除线程 %s 失败: %w", threadID, err)
	}
	return nil
}
