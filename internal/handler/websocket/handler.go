package websocket

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/hub"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/middleware"
)

// WebSocketHandler 负责处理 WebSocket 升级请求和客户端注册
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	events   hub.EventHandler
}

// NewWebSocketHandler 创建 WebSocketHandler 实例。
// allowedOrigin 为空或 "*" 时允许所有来源。
func NewWebSocketHandler(h *hub.Hub, events hub.EventHandler, allowedOrigin string) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if events == nil {
		panic("EventHandler cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// 非浏览器客户端不带 Origin
			if allowedOrigin == "" || allowedOrigin == "*" || origin == "" {
				return true
			}
			return origin == allowedOrigin
		},
	}

	return &WebSocketHandler{upgrader: upgrader, hub: h, events: events}
}

// HandleConnection 处理 WebSocket 连接请求，身份由 Auth 中间件写入上下文。
// 一个连接可以加入多个编程房间和聊天室，房间由后续事件指定。
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		logrus.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "User not authenticated"})
		return
	}
	accountType, _ := middleware.AccountTypeFrom(c)
	logCtx := logrus.WithField("user_id", userID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回了 HTTP 错误
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn, h.events, userID, accountType)
	logCtx = logCtx.WithField("conn_id", client.ID())

	if !h.hub.Register(client) {
		logCtx.Error("WS Handler: Hub is stopped, rejecting connection")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"))
		conn.Close()
		return
	}
	logCtx.Info("WS Handler: Client connected")

	// 请求上下文在 handler 返回后会被取消，连接的生命周期由读写循环决定
	go client.Run(context.WithoutCancel(c.Request.Context()))
}
