// Package repository 提供了数据访问层的实现。
package repository

import (
	"sync"

	"science-chat-go/internal/model"
)

// CheckpointStore 是进程生命周期内的工作上下文缓存：
// 线程 ID → 工作流上次看到的有序消息上下文。
//
// 它不是持久化的事实来源。进程重启后为空是预期行为，
// 此时调用方回退到 MessageRepository.LoadOrdered 重建上下文。
// 同一线程 ID 至多保留一份上下文，Put 为整体替换。
// 在 main 中构造一次并显式注入，不使用包级全局。
type CheckpointStore struct {
	mu       sync.RWMutex
	contexts map[string][]model.ChatMessage
}

// NewCheckpointStore 创建一个空的 CheckpointStore。
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		contexts: make(map[string][]model.ChatMessage),
	}
}

// Get 返回线程上下文的副本，第二个返回值表示是否存在。
func (s *CheckpointStore) Get(threadID string) ([]model.ChatMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs, ok := s.contexts[threadID]
	if !ok {
		return nil, false
	}
	out := make([]model.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, true
}

// Put 以副本整体替换线程的上下文。
func (s *CheckpointStore) Put(threadID string, msgs []model.ChatMessage) {
	stored := make([]model.ChatMessage, len(msgs))
	copy(stored, msgs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[threadID] = stored
}

// Delete 移除线程的上下文。线程删除时调用，避免悬挂缓存。
func (s *CheckpointStore) Delete(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, threadID)
}
