package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"fsdm-chat-go/internal/service"
	"fsdm-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// ChatHandler 负责处理 WebSocket 聊天连接。每个文本帧都是一个问题。
type ChatHandler struct {
	service service.ConversationService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(service service.ConversationService) *ChatHandler {
	return &ChatHandler{service: service}
}

// Handle 处理一个传入的 WebSocket 连接。
func (h *ChatHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立: %s", c.ClientIP())

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		log.Infof("收到 WebSocket 消息, 长度: %d", len(message))

		bot, err := h.service.Send(c.Request.Context(), string(message))
		if err != nil {
			log.Warnf("WebSocket 消息被拒绝: %v", err)
			if writeErr := writeEvent(conn, map[string]interface{}{
				"type":      "error",
				"status":    sendErrorStatus(err),
				"message":   sendErrorMessage(err),
				"timestamp": time.Now().UnixMilli(),
			}); writeErr != nil {
				break
			}
			continue
		}

		if err := writeEvent(conn, map[string]interface{}{
			"type": "message",
			"data": NewMessageView(*bot),
		}); err != nil {
			log.Warnf("写入 WebSocket 消息失败: %v", err)
			break
		}
		if err := writeEvent(conn, map[string]interface{}{
			"type":      "completion",
			"status":    "finished",
			"message":   "响应已完成",
			"timestamp": time.Now().UnixMilli(),
			"date":      time.Now().Format("2006-01-02T15:04:05"),
		}); err != nil {
			log.Warnf("写入 WebSocket 消息失败: %v", err)
			break
		}
	}
}

func writeEvent(conn *websocket.Conn, event map[string]interface{}) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}
