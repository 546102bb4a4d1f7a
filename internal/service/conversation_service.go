// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"fsdm-chat-go/internal/model"
	"fsdm-chat-go/internal/repository"
	"fsdm-chat-go/pkg/events"
	"fsdm-chat-go/pkg/log"
)

// InvalidMessageText 是输入校验失败时写入状态的提示。
const InvalidMessageText = "Le message doit contenir entre 1 et 1000 caractères."

var (
	// ErrInvalidMessage 表示消息为空或超过长度上限，日志未被修改。
	ErrInvalidMessage = errors.New("message must contain between 1 and 1000 characters")
	// ErrSendInProgress 表示上一条消息仍在等待回答，或对话正在重新开始。
	ErrSendInProgress = errors.New("another conversation operation is in progress")
)

// Responder 生成机器人回答，实现必须在任何失败下都返回可展示的文本。
type Responder interface {
	GenerateBotResponse(ctx context.Context, question string) string
}

// EventPublisher 发布会话事件（可选）。
type EventPublisher interface {
	Publish(ctx context.Context, event events.ConversationEvent) error
}

// Archiver 在清空前归档旧的消息日志（可选）。
type Archiver interface {
	Archive(ctx context.Context, key string, messages []model.Message) (string, error)
}

// ConversationService 定义了对话存储的全部操作。日志只能通过这些操作修改。
type ConversationService interface {
	Initialize(ctx context.Context)
	State() model.ConversationState
	Send(ctx context.Context, content string) (*model.Message, error)
	Clear(ctx context.Context) error
	Restart(ctx context.Context) error
}

// ConversationOptions 配置对话存储。
type ConversationOptions struct {
	Key            string
	WelcomeMessage string
	RestartDelay   time.Duration
}

// Option 用于注入可选的事件发布器与归档器。
type Option func(*conversationService)

// WithEventPublisher 为每次变更发布事件。
func WithEventPublisher(p EventPublisher) Option {
	return func(s *conversationService) { s.publisher = p }
}

// WithArchiver 在 Clear/Restart 前归档旧日志。
func WithArchiver(a Archiver) Option {
	return func(s *conversationService) { s.archiver = a }
}

type conversationService struct {
	repo      repository.TranscriptRepository
	responder Responder
	opts      ConversationOptions
	publisher EventPublisher
	archiver  Archiver

	mu    sync.Mutex
	state model.ConversationState
}

// NewConversationService 创建一个新的 ConversationService，调用方需要随后执行 Initialize。
func NewConversationService(repo repository.TranscriptRepository, responder Responder, opts ConversationOptions, options ...Option) ConversationService {
	s := &conversationService{
		repo:      repo,
		responder: responder,
		opts:      opts,
		state:     model.ConversationState{Messages: []model.Message{}},
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Initialize 恢复已保存的日志；没有可用记录时写入一条欢迎消息。
func (s *conversationService) Initialize(ctx context.Context) {
	msgs, err := s.repo.Load(ctx, s.opts.Key)
	switch {
	case err == nil && len(msgs) > 0:
		s.mu.Lock()
		s.state = model.ConversationState{Messages: msgs}
		s.mu.Unlock()
		log.Infof("已恢复对话记录, key: %s, messages: %d", s.opts.Key, len(msgs))
		return
	case err != nil && !errors.Is(err, repository.ErrTranscriptNotFound):
		log.Warnf("读取对话记录失败，使用欢迎消息重新开始, key: %s, err: %v", s.opts.Key, err)
	}

	s.mu.Lock()
	s.state = model.ConversationState{Messages: []model.Message{s.welcome()}}
	s.persistLocked(ctx)
	s.mu.Unlock()
}

// State 返回当前状态的副本。
func (s *conversationService) State() model.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Send 追加用户消息、请求回答并追加机器人消息。
// 只有输入校验失败和并发发送两种错误，回答服务的失败由 Responder 转换成普通回复。
func (s *conversationService) Send(ctx context.Context, content string) (*model.Message, error) {
	s.mu.Lock()
	if s.state.IsLoading {
		s.mu.Unlock()
		return nil, ErrSendInProgress
	}
	if !model.IsValidMessage(content) {
		s.state.Error = InvalidMessageText
		s.mu.Unlock()
		return nil, ErrInvalidMessage
	}

	// 请求被取消时仍然要写完日志和事件
	persistCtx := context.WithoutCancel(ctx)

	s.state.Error = ""
	userMsg := model.NewMessage(content, model.SenderUser)
	s.state.Messages = append(s.state.Messages, userMsg)
	s.state.IsLoading = true
	s.persistLocked(ctx)
	count := len(s.state.Messages)
	s.mu.Unlock()
	s.publish(persistCtx, events.MessageAppended, &userMsg, count)

	// 调用外部服务期间不持锁，读者可以看到 IsLoading=true。
	// 请求一旦发出就只受 http.Client 超时约束，调用方断开不会中断它
	raw := s.responder.GenerateBotResponse(persistCtx, content)

	s.mu.Lock()
	botMsg := model.NewMessage(raw, model.SenderBot)
	s.state.Messages = append(s.state.Messages, botMsg)
	s.state.IsLoading = false
	s.state.Error = ""
	s.persistLocked(ctx)
	count = len(s.state.Messages)
	s.mu.Unlock()
	s.publish(persistCtx, events.MessageAppended, &botMsg, count)

	return &botMsg, nil
}

// Clear 将日志重置为一条新的欢迎消息。有消息在等待回答时返回 ErrSendInProgress。
func (s *conversationService) Clear(ctx context.Context) error {
	s.mu.Lock()
	if s.state.IsLoading {
		s.mu.Unlock()
		return ErrSendInProgress
	}
	prev := s.state.Clone().Messages
	s.state.Messages = []model.Message{s.welcome()}
	s.state.Error = ""
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.archive(ctx, prev)
	s.publish(ctx, events.ConversationCleared, nil, 1)
	return nil
}

// Restart 先清空日志，等待 RestartDelay 后写入新的欢迎消息。
// 延迟只是展示效果，ctx 取消时立即写入欢迎消息。
// 延迟期间 IsLoading 为 true，其他 Send/Clear/Restart 都会被拒绝。
func (s *conversationService) Restart(ctx context.Context) error {
	s.mu.Lock()
	if s.state.IsLoading {
		s.mu.Unlock()
		return ErrSendInProgress
	}
	prev := s.state.Clone().Messages
	s.state.Messages = []model.Message{}
	s.state.Error = ""
	s.state.IsLoading = true
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.archive(ctx, prev)

	if s.opts.RestartDelay > 0 {
		timer := time.NewTimer(s.opts.RestartDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	s.mu.Lock()
	s.state.Messages = []model.Message{s.welcome()}
	s.state.IsLoading = false
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publish(context.WithoutCancel(ctx), events.ConversationReset, nil, 1)
	return nil
}

func (s *conversationService) welcome() model.Message {
	return model.NewMessage(s.opts.WelcomeMessage, model.SenderBot)
}

// persistLocked 写入完整日志，调用方必须持有 s.mu。写入失败只记录日志。
func (s *conversationService) persistLocked(ctx context.Context) {
	if err := s.repo.Save(context.WithoutCancel(ctx), s.opts.Key, s.state.Messages); err != nil {
		log.Errorf("保存对话记录失败, key: %s, err: %v", s.opts.Key, err)
	}
}

func (s *conversationService) publish(ctx context.Context, typ events.EventType, msg *model.Message, count int) {
	if s.publisher == nil {
		return
	}
	ev := events.ConversationEvent{
		Type:          typ,
		TranscriptKey: s.opts.Key,
		MessageCount:  count,
		OccurredAt:    time.Now(),
	}
	if msg != nil {
		ev.MessageID = msg.ID
		ev.Sender = string(msg.Sender)
		ev.ContentLength = len(msg.Content)
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Warnf("发布会话事件失败, type: %s, err: %v", typ, err)
	}
}

// archive 只归档包含用户消息的日志，单独的欢迎消息没有保存价值。
func (s *conversationService) archive(ctx context.Context, msgs []model.Message) {
	if s.archiver == nil || !hasUserMessage(msgs) {
		return
	}
	name, err := s.archiver.Archive(ctx, s.opts.Key, msgs)
	if err != nil {
		log.Warnw("归档对话记录失败", "key", s.opts.Key, "messages", len(msgs), "error", err)
		return
	}
	log.Infof("对话记录已归档: %s", name)
}

func hasUserMessage(msgs []model.Message) bool {
	for _, m := range msgs {
		if m.Sender == model.SenderUser {
			return true
		}
	}
	return false
}
