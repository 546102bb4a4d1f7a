// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fsdm-chat-go/internal/config"
	"fsdm-chat-go/internal/model"
	"fsdm-chat-go/internal/service"
	"fsdm-chat-go/pkg/answer"
	"fsdm-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// StatusProber 探测问答服务是否可用。
type StatusProber interface {
	TestConnection(ctx context.Context) bool
}

// MessageView 是返回给前端的消息，机器人消息附带解析后的回答。
type MessageView struct {
	model.Message
	DisplayTime model.ClockTime `json:"displayTime"`
	Parsed      *answer.Parsed  `json:"parsed,omitempty"`
}

// ConversationView 是对话状态的展示形式。
type ConversationView struct {
	Messages  []MessageView `json:"messages"`
	IsLoading bool          `json:"isLoading"`
	Error     string        `json:"error,omitempty"`
	Exchanged int           `json:"exchanged"`
}

// NewMessageView 在渲染时解析回答，解析结果不会被保存。
func NewMessageView(m model.Message) MessageView {
	return MessageView{
		Message:     m,
		DisplayTime: model.ClockTime(m.Timestamp),
		Parsed:      answer.ParseMessage(m),
	}
}

// NewConversationView 转换整个状态。Exchanged 不计入欢迎消息。
func NewConversationView(state model.ConversationState) ConversationView {
	view := ConversationView{
		Messages:  make([]MessageView, 0, len(state.Messages)),
		IsLoading: state.IsLoading,
		Error:     state.Error,
	}
	for _, m := range state.Messages {
		view.Messages = append(view.Messages, NewMessageView(m))
	}
	if n := len(state.Messages) - 1; n > 0 {
		view.Exchanged = n
	}
	return view
}

// ConversationHandler 处理与对话相关的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
	profile config.ChatbotConfig
	prober  StatusProber
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService, profile config.ChatbotConfig, prober StatusProber) *ConversationHandler {
	return &ConversationHandler{service: service, profile: profile, prober: prober}
}

// SendMessageRequest 定义了发送消息的请求体。
type SendMessageRequest struct {
	Content string `json:"content"`
}

// GetProfile 返回助手的名称、性格和欢迎语。
func (h *ConversationHandler) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"name":           h.profile.Name,
			"personality":    h.profile.Personality,
			"welcomeMessage": h.profile.WelcomeMessage,
		},
	})
}

// GetMessages 返回当前对话。
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    NewConversationView(h.service.State()),
	})
}

// SendMessage 提交一个问题并同步返回机器人的回答。
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("SendMessage: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载",
			"data":    nil,
		})
		return
	}

	bot, err := h.service.Send(c.Request.Context(), req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"reply":        NewMessageView(*bot),
			"conversation": NewConversationView(h.service.State()),
		},
	})
}

// Clear 清空对话，只保留新的欢迎消息。
func (h *ConversationHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	log.Info("对话已清空")
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    NewConversationView(h.service.State()),
	})
}

// Restart 重新开始对话，请求在欢迎消息写入后返回。
func (h *ConversationHandler) Restart(c *gin.Context) {
	if err := h.service.Restart(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	log.Info("对话已重新开始")
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    NewConversationView(h.service.State()),
	})
}

// GetStatus 探测问答服务的连通性。
func (h *ConversationHandler) GetStatus(c *gin.Context) {
	connected := h.prober.TestConnection(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"connected": connected,
			"checkedAt": time.Now(),
		},
	})
}

// respondError 返回被拒绝的操作，data 中附带当前对话以便前端刷新。
func (h *ConversationHandler) respondError(c *gin.Context, err error) {
	status := sendErrorStatus(err)
	c.JSON(status, gin.H{
		"code":    status,
		"message": sendErrorMessage(err),
		"data":    NewConversationView(h.service.State()),
	})
}

func sendErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSendInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func sendErrorMessage(err error) string {
	if errors.Is(err, service.ErrInvalidMessage) {
		return service.InvalidMessageText
	}
	return err.Error()
}
