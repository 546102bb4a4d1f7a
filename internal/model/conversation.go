package model

// ConversationState 是对话的完整状态快照，由 ConversationService 独占并以副本形式对外提供。
type ConversationState struct {
	Messages  []Message `json:"messages"`
	IsLoading bool      `json:"isLoading"`
	Error     string    `json:"error,omitempty"`
}

// Clone 返回一个不与原状态共享底层数组的副本。
func (s ConversationState) Clone() ConversationState {
	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)
	s.Messages = msgs
	return s
}
