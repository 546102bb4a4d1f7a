// Package events defines the conversation events published to Kafka.
package events

import "time"

// EventType 标识会话事件的种类。
type EventType string

const (
	MessageAppended     EventType = "message_appended"
	ConversationCleared EventType = "conversation_cleared"
	ConversationReset   EventType = "conversation_restarted"
)

// ConversationEvent represents a single change to the conversation log.
type ConversationEvent struct {
	Type          EventType `json:"type"`
	TranscriptKey string    `json:"transcript_key"`
	MessageID     string    `json:"message_id,omitempty"`
	Sender        string    `json:"sender,omitempty"`
	ContentLength int       `json:"content_length,omitempty"`
	MessageCount  int       `json:"message_count"`
	OccurredAt    time.Time `json:"occurred_at"`
}
