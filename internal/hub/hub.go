package hub

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/dto"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. 编辑器内容可能较大
	maxMessageSize = 1 << 20

	sendBufferSize = 256
)

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opSubscribe
	opUnsubscribe
	opIsSubscribed
	opBroadcast
	opEvictUser
	opCloseTopic
)

func (k opKind) String() string {
	switch k {
	case opRegister:
		return "register"
	case opUnregister:
		return "unregister"
	case opSubscribe:
		return "subscribe"
	case opUnsubscribe:
		return "unsubscribe"
	case opIsSubscribed:
		return "is_subscribed"
	case opBroadcast:
		return "broadcast"
	case opEvictUser:
		return "evict_user"
	case opCloseTopic:
		return "close_topic"
	}
	return "unknown"
}

// hubOp 是在 Hub 内部通道传递的消息
type hubOp struct {
	kind    opKind
	client  *Client
	connID  string
	topic   string
	userID  uint
	message []byte
	exclude string
	reply   chan bool
}

// Hub 维护连接和主题的订阅关系。
// 所有状态只在 Run 所在的 goroutine 中修改，因此同一主题上的操作按入队顺序生效。
type Hub struct {
	ops  chan hubOp
	done chan struct{}

	clients map[string]*Client
	// topics: topic -> connID -> client
	topics map[string]map[string]*Client
	// memberships: connID -> topics，用于注销时清理
	memberships map[string]map[string]struct{}
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub() *Hub {
	return &Hub{
		ops:         make(chan hubOp, 512),
		done:        make(chan struct{}),
		clients:     make(map[string]*Client),
		topics:      make(map[string]map[string]*Client),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Run 启动 Hub 的主事件循环，ctx 取消时关闭所有客户端并返回。
// 它应该在一个单独的 goroutine 中运行，且只能调用一次。
func (h *Hub) Run(ctx context.Context) {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")
	defer func() {
		close(h.done)
		for id, c := range h.clients {
			close(c.send)
			delete(h.clients, id)
		}
		log.Info("Hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case op := <-h.ops:
			h.apply(op)
		}
	}
}

func (h *Hub) apply(op hubOp) {
	switch op.kind {
	case opRegister:
		h.clients[op.client.id] = op.client
		logrus.WithFields(logrus.Fields{"conn_id": op.client.id, "user_id": op.client.userID}).Debug("Client registered to Hub")
	case opUnregister:
		h.unregister(op.connID)
	case opSubscribe:
		c, ok := h.clients[op.connID]
		if !ok {
			logrus.WithFields(logrus.Fields{"conn_id": op.connID, "topic": op.topic}).Debug("Subscribe ignored: connection is gone")
			return
		}
		if h.topics[op.topic] == nil {
			h.topics[op.topic] = make(map[string]*Client)
		}
		h.topics[op.topic][op.connID] = c
		if h.memberships[op.connID] == nil {
			h.memberships[op.connID] = make(map[string]struct{})
		}
		h.memberships[op.connID][op.topic] = struct{}{}
	case opUnsubscribe:
		h.removeFromTopic(op.topic, op.connID)
	case opIsSubscribed:
		_, ok := h.topics[op.topic][op.connID]
		op.reply <- ok
	case opBroadcast:
		h.broadcast(op.topic, op.message, op.exclude)
	case opEvictUser:
		for connID, c := range h.topics[op.topic] {
			if c.userID == op.userID {
				h.removeFromTopic(op.topic, connID)
			}
		}
	case opCloseTopic:
		for connID := range h.topics[op.topic] {
			h.removeFromTopic(op.topic, connID)
		}
		delete(h.topics, op.topic)
	default:
		logrus.Warnf("Hub: Received unknown op: %s", op.kind)
	}
}

func (h *Hub) unregister(connID string) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	for topic := range h.memberships[connID] {
		h.removeFromTopic(topic, connID)
	}
	delete(h.memberships, connID)
	delete(h.clients, connID)
	// send 通道只由 Hub 关闭，WritePump 读到关闭后退出
	close(c.send)
	logrus.WithFields(logrus.Fields{"conn_id": connID, "user_id": c.userID}).Debug("Client unregistered from Hub")
}

func (h *Hub) removeFromTopic(topic, connID string) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	if m, ok := h.memberships[connID]; ok {
		delete(m, topic)
	}
}

// broadcast 把消息放入订阅者的发送队列，队列已满的客户端直接跳过
func (h *Hub) broadcast(topic string, message []byte, exclude string) {
	for connID, c := range h.topics[topic] {
		if connID == exclude {
			continue
		}
		select {
		case c.send <- message:
		default:
			logrus.WithFields(logrus.Fields{"topic": topic, "conn_id": connID, "user_id": c.userID}).Warn("Client send channel full during broadcast, skipping this client")
		}
	}
}

// enqueue 把操作放入 Hub 队列，Hub 已停止时返回 false
func (h *Hub) enqueue(op hubOp) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.ops <- op:
		return true
	case <-h.done:
		return false
	}
}

// --- 公共方法 ---

// Register 登记客户端，必须在客户端开始读写之前调用
func (h *Hub) Register(c *Client) bool {
	return h.enqueue(hubOp{kind: opRegister, client: c})
}

// Unregister 注销客户端并移除它的全部订阅
func (h *Hub) Unregister(c *Client) {
	h.enqueue(hubOp{kind: opUnregister, connID: c.id})
}

// Subscribe 把连接加入主题
func (h *Hub) Subscribe(connID, topic string) {
	h.enqueue(hubOp{kind: opSubscribe, connID: connID, topic: topic})
}

// Unsubscribe 把连接移出主题
func (h *Hub) Unsubscribe(connID, topic string) {
	h.enqueue(hubOp{kind: opUnsubscribe, connID: connID, topic: topic})
}

// IsSubscribed 查询连接是否订阅了主题，结果反映此前入队的所有操作
func (h *Hub) IsSubscribed(connID, topic string) bool {
	reply := make(chan bool, 1)
	if !h.enqueue(hubOp{kind: opIsSubscribed, connID: connID, topic: topic, reply: reply}) {
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-h.done:
		return false
	}
}

// Broadcast 把事件编码后发给主题的所有订阅者，excludeConnID 非空时跳过该连接
func (h *Hub) Broadcast(topic, event string, payload interface{}, excludeConnID string) {
	message, err := dto.Encode(event, payload)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"topic": topic, "event": event}).Error("Failed to encode broadcast payload")
		return
	}
	h.enqueue(hubOp{kind: opBroadcast, topic: topic, message: message, exclude: excludeConnID})
}

// EvictUser 把用户的全部连接移出主题，连接本身保持打开
func (h *Hub) EvictUser(topic string, userID uint) {
	h.enqueue(hubOp{kind: opEvictUser, topic: topic, userID: userID})
}

// CloseTopic 移除主题及其全部订阅
func (h *Hub) CloseTopic(topic string) {
	h.enqueue(hubOp{kind: opCloseTopic, topic: topic})
}
