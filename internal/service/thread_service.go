// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"

	"science-chat-go/internal/model"
	"science-chat-go/internal/repository"
)

// ThreadService 定义了线程查询与管理的业务接口。
type ThreadService interface {
	ListThreads(ctx context.Context, limit, offset int) ([]model.ThreadSummary, error)
	GetThread(ctx context.Context, threadID string) (*model.ThreadSummary, error)
	// DeleteThread 幂等删除线程、其全部消息以及对应的检查点。
	DeleteThread(ctx context.Context, threadID string) error
	// GetThreadMessages 返回线程的展示消息，线程不存在时返回 ErrThreadNotFound。
	GetThreadMessages(ctx context.Context, threadID string) ([]model.DisplayMessage, error)
}

type threadService struct {
	threadRepo  repository.ThreadRepository
	messageRepo repository.MessageRepository
	checkpoints *repository.CheckpointStore
}

// NewThreadService 创建一个新的 ThreadService 实例。
func NewThreadService(threadRepo repository.ThreadRepository, messageRepo repository.MessageRepository, checkpoints *repository.CheckpointStore) ThreadService {
	return &threadService{
		threadRepo:  threadRepo,
		messageRepo: messageRepo,
		checkpoints: checkpoints,
	}
}

// ListThreads 返回按最近活跃排序的线程摘要列表。
func (s *threadService) ListThreads(ctx context.Context, limit, offset int) ([]model.ThreadSummary, error) {
	threads, err := s.threadRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	summaries := make([]model.ThreadSummary, 0, len(threads))
	for i := range threads {
		summaries = append(summaries, *threads[i].Summary())
	}
	return summaries, nil
}

// GetThread 返回单个线程的摘要。
func (s *threadService) GetThread(ctx context.Context, threadID string) (*model.ThreadSummary, error) {
	thread, err := s.threadRepo.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return thread.Summary(), nil
}

// DeleteThread 级联删除线程与消息，并清除工作上下文缓存。
func (s *threadService) DeleteThread(ctx context.Context, threadID string) error {
	if err := s.threadRepo.Delete(ctx, threadID); err != nil {
		return err
	}
	s.checkpoints.Delete(threadID)
	return nil
}

// GetThreadMessages 返回按时间排序的展示消息。
func (s *threadService) GetThreadMessages(ctx context.Context, threadID string) ([]model.DisplayMessage, error) {
	if _, err := s.threadRepo.Get(ctx, threadID); err != nil {
		return nil, err
	}
	return s.messageRepo.LoadForDisplay(ctx, threadID)
}
