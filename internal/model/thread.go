// Package model 包含了应用的数据模型定义。
package model

import "time"

// Thread 代表一个持久化的对话线程的元数据记录。
// message_count 只统计 user/assistant 两类消息，system/tool 消息持久化但不计数。
type Thread struct {
	ThreadID     string    `gorm:"primaryKey;size:64" json:"threadId"`
	Title        string    `gorm:"size:255;not null;default:Untitled" json:"title"`
	Preview      string    `gorm:"size:255" json:"preview"`
	MessageCount int       `gorm:"not null;default:0" json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Messages []Message `gorm:"foreignKey:ThreadID;references:ThreadID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Thread) TableName() string {
	return "conversation_threads"
}

// ThreadSummary 是对外返回的线程摘要 DTO。
type ThreadSummary struct {
	ThreadID     string    `json:"thread_id"`
	Title        string    `json:"title"`
	Preview      string    `json:"preview"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Summary 将线程记录转换为摘要 DTO。
func (t *Thread) Summary() *ThreadSummary {
	return &ThreadSummary{
		ThreadID:     t.ThreadID,
		Title:        t.Title,
		Preview:      t.Preview,
		MessageCount: t.MessageCount,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
