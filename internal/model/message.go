// Package model 包含了应用的数据模型定义。
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role 是消息角色的封闭枚举。所有消费点都必须对其做穷尽处理，
// 而不是在各处散落字符串比较。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Valid 判断角色是否属于枚举范围。
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	default:
		return false
	}
}

// Countable 判断角色是否计入对外暴露的 message_count。
func (r Role) Countable() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	case RoleSystem, RoleTool:
		return false
	default:
		return false
	}
}

// Displayable 判断角色是否出现在前端展示的消息列表中。
func (r Role) Displayable() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	case RoleSystem, RoleTool:
		return false
	default:
		return false
	}
}

// Message 代表 messages 表中的一行持久化消息。
// (thread_id, message_index) 唯一，message_index 在线程内严格递增且无空洞。
type Message struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ThreadID     string    `gorm:"size:64;not null;index;uniqueIndex:uk_thread_message_index,priority:1" json:"threadId"`
	Role         Role      `gorm:"size:16;not null" json:"role"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	ToolCalls    *string   `gorm:"type:text" json:"toolCalls,omitempty"`
	ToolCallID   *string   `gorm:"size:64" json:"toolCallId,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
	MessageIndex int       `gorm:"not null;uniqueIndex:uk_thread_message_index,priority:2" json:"messageIndex"`
}

func (Message) TableName() string {
	return "messages"
}

// ToolCall 是助手消息触发的一次工具调用的结构化载荷。
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// ChatMessage 是工作流消费的内存态消息形式。
type ChatMessage struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// DisplayMessage 是对外展示消息的 DTO，仅包含 user/assistant 消息。
type DisplayMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ToRow 将内存态消息转换为持久化行。角色必须属于枚举范围。
func (m ChatMessage) ToRow(threadID string, index int) (*Message, error) {
	switch m.Role {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
	default:
		return nil, fmt.Errorf("未知的消息角色: %q", m.Role)
	}

	row := &Message{
		ThreadID:     threadID,
		Role:         m.Role,
		Content:      m.Content,
		MessageIndex: index,
		CreatedAt:    m.Timestamp,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if len(m.ToolCalls) > 0 {
		b, err := json.Marshal(m.ToolCalls)
		if err != nil {
			return nil, fmt.Errorf("序列化工具调用载荷失败: %w", err)
		}
		s := string(b)
		row.ToolCalls = &s
	}
	if m.ToolCallID != "" {
		id := m.ToolCallID
		row.ToolCallID = &id
	}
	return row, nil
}

// ToChatMessage 将持久化行还原为工作流消费的内存态消息。
// 损坏的 tool_calls JSON 不阻断加载，仅丢弃该载荷。
func (m *Message) ToChatMessage() ChatMessage {
	msg := ChatMessage{
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.CreatedAt,
	}
	if m.ToolCalls != nil && *m.ToolCalls != "" {
		var calls []ToolCall
		if err := json.Unmarshal([]byte(*m.ToolCalls), &calls); err == nil {
			msg.ToolCalls = calls
		}
	}
	if m.ToolCallID != nil {
		msg.ToolCallID = *m.ToolCallID
	}
	return msg
}
