// Package model 包含了应用的数据模型定义。
package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxMessageLength 是单条用户消息（去除首尾空白后）允许的最大字符数。
const MaxMessageLength = 1000

// Sender 标识消息的作者。
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message 代表对话中的单条消息，创建后不可修改。
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	IsTyping  bool      `json:"isTyping,omitempty"`
}

// NewMessage 创建一条新消息，时间戳为当前时间。
// ID 使用 UUIDv7：毫秒时间戳 + 单调序列 + 随机位，同一时刻创建的消息也不会冲突。
func NewMessage(content string, sender Sender) Message {
	return Message{
		ID:        newMessageID(),
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// 熵源不可用时退回 v4
		return uuid.NewString()
	}
	return id.String()
}

// IsValidMessage 判断去除首尾空白后的内容长度是否在 [1, MaxMessageLength] 之间。
func IsValidMessage(content string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	return n > 0 && n <= MaxMessageLength
}

// IsBot reports whether the message was authored by the assistant.
func (m Message) IsBot() bool {
	return m.Sender == SenderBot
}
