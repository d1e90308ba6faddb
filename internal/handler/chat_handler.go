// Package handler 包含了所有 HTTP 接口的处理器。
package handler

import (
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"hr-assistant-go/internal/hrerrors"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/service"
	"hr-assistant-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const msgQuestionTooLong = "La question ne peut pas dépasser %d caractères"

// ChatHandler 处理问答相关的 HTTP 与 WebSocket 接口。
type ChatHandler struct {
	answerer       service.StreamAnswerer
	maxQuestionLen int
	upgrader       websocket.Upgrader
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(answerer service.StreamAnswerer, maxQuestionLen int) *ChatHandler {
	if maxQuestionLen <= 0 {
		maxQuestionLen = 1000
	}
	return &ChatHandler{
		answerer:       answerer,
		maxQuestionLen: maxQuestionLen,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Chat 处理阻塞式问答请求。
//
//	POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	resp, err := h.answerer.Chat(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ChatStream 处理 SSE 流式问答请求。
//
//	POST /api/chat/stream
func (h *ChatHandler) ChatStream(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	writer := &sseTokenWriter{c: c}
	// 客户端断开时取消整个流程
	if _, err := h.answerer.ChatStream(c.Request.Context(), req, writer); err != nil {
		log.Errorf("[Chat] 流式问答失败: %v", err)
		c.SSEvent("error", hrerrors.MessageOf(err))
		c.Writer.Flush()
		return
	}

	c.SSEvent("done", "")
	c.Writer.Flush()
}

// ChatWebSocket 处理 WebSocket 流式问答。
// 每条入站消息是一个完整的 ChatRequest，回答以文本帧逐块下发，
// 结束时发送一条 JSON 控制帧携带来源列表。
//
//	GET /api/chat/ws
func (h *ChatHandler) ChatWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("[Chat] WebSocket 升级失败: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req model.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("[Chat] WebSocket 连接异常关闭: %v", err)
			}
			return
		}

		if err := h.validateQuestionLength(req.Question); err != nil {
			h.writeWsEvent(conn, wsEvent{Type: "error", Message: hrerrors.MessageOf(err)})
			continue
		}

		writer := &wsTokenWriter{conn: conn}
		sources, err := h.answerer.ChatStream(c.Request.Context(), req, writer)
		if err != nil {
			log.Errorf("[Chat] WebSocket 问答失败: %v", err)
			h.writeWsEvent(conn, wsEvent{Type: "error", Message: hrerrors.MessageOf(err)})
			continue
		}

		h.writeWsEvent(conn, wsEvent{Type: "done", Sources: sources})
	}
}

// bindRequest 解析并校验聊天请求体。
func (h *ChatHandler) bindRequest(c *gin.Context) (model.ChatRequest, bool) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, hrerrors.New(hrerrors.CodeInvalidInput, "La question ne peut pas être vide"))
		return model.ChatRequest{}, false
	}
	if err := h.validateQuestionLength(req.Question); err != nil {
		writeError(c, err)
		return model.ChatRequest{}, false
	}
	return req, true
}

// validateQuestionLength 按字符数限制问题长度。
func (h *ChatHandler) validateQuestionLength(question string) error {
	if utf8.RuneCountInString(question) > h.maxQuestionLen {
		return hrerrors.New(hrerrors.CodeInvalidInput, fmt.Sprintf(msgQuestionTooLong, h.maxQuestionLen))
	}
	return nil
}

// wsEvent 是 WebSocket 下发的控制帧。
type wsEvent struct {
	Type    string   `json:"type"`
	Message string   `json:"message,omitempty"`
	Sources []string `json:"sources,omitempty"`
}

func (h *ChatHandler) writeWsEvent(conn *websocket.Conn, event wsEvent) {
	if err := conn.WriteJSON(event); err != nil {
		log.Errorf("[Chat] 写入 WebSocket 控制帧失败: %v", err)
	}
}

// sseTokenWriter 把流式分块写成 SSE 事件并立即刷出。
type sseTokenWriter struct {
	c *gin.Context
}

func (w *sseTokenWriter) WriteToken(token string) error {
	if err := w.c.Request.Context().Err(); err != nil {
		return err
	}
	w.c.SSEvent("message", token)
	w.c.Writer.Flush()
	return nil
}

// wsTokenWriter 把流式分块写成 WebSocket 文本帧。
type wsTokenWriter struct {
	conn *websocket.Conn
}

func (w *wsTokenWriter) WriteToken(token string) error {
	return w.conn.WriteMessage(websocket.TextMessage, []byte(token))
}

// writeError 将类型化错误渲染为统一的 JSON 错误响应。
func writeError(c *gin.Context, err error) {
	code := hrerrors.CodeOf(err)
	status := hrerrors.HTTPStatus(code)
	c.JSON(status, model.ErrorInfo{
		Timestamp: time.Now(),
		Status:    status,
		Error:     string(code),
		Message:   hrerrors.MessageOf(err),
	})
}
