package hub

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
)

// EventHandler 处理客户端发来的消息，由 WebSocket 路由层实现。
// HandleMessage 在客户端的读 goroutine 中同步调用，同一连接的事件按到达顺序处理。
type EventHandler interface {
	HandleMessage(ctx context.Context, c *Client, raw []byte)
	HandleDisconnect(c *Client)
}

// Client 代表一个经过认证的 WebSocket 连接，可以同时订阅多个主题。
type Client struct {
	id          string
	userID      uint
	accountType domain.AccountType
	hub         *Hub
	conn        *websocket.Conn
	handler     EventHandler
	send        chan []byte
}

// NewClient 创建一个新的 Client 实例，连接 ID 为随机 UUID
func NewClient(hub *Hub, conn *websocket.Conn, handler EventHandler, userID uint, accountType domain.AccountType) *Client {
	return &Client{
		id:          uuid.NewString(),
		userID:      userID,
		accountType: accountType,
		hub:         hub,
		conn:        conn,
		handler:     handler,
		send:        make(chan []byte, sendBufferSize),
	}
}

func (c *Client) ID() string                      { return c.id }
func (c *Client) UserID() uint                    { return c.userID }
func (c *Client) AccountType() domain.AccountType { return c.accountType }

func (c *Client) logger() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.userID})
}

// Run 启动写 goroutine 并在当前 goroutine 中读取，直到连接关闭。
func (c *Client) Run(ctx context.Context) {
	go c.WritePump()
	c.ReadPump(ctx)
}

// ReadPump 从 WebSocket 连接读取消息并交给 EventHandler。
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.handler.HandleDisconnect(c)
		c.hub.Unregister(c)
		c.conn.Close()
		c.logger().Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger().WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.logger().Debug("WebSocket connection closed normally or read error")
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		if messageType != websocket.TextMessage {
			c.logger().Debugf("Received non-text message type: %d", messageType)
			continue
		}
		c.handler.HandleMessage(ctx, c, message)
	}
}

// WritePump 将消息从 send 通道写入 WebSocket 连接，并定期发送 Ping。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger().Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了 send 通道
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger().WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger().WithError(err).Warn("Failed to send ping message")
				return
			}
		}
	}
}
