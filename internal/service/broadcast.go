package service

import "fmt"

// Broadcaster 是协调器依赖的广播通道，由 hub.Hub 实现。
// 同一主题上的操作按调用顺序生效。
type Broadcaster interface {
	// Subscribe 把连接加入主题
	Subscribe(connID, topic string)
	// Unsubscribe 把连接移出主题
	Unsubscribe(connID, topic string)
	// IsSubscribed 判断连接当前是否订阅了主题
	IsSubscribed(connID, topic string) bool
	// Broadcast 向主题的所有订阅者发送事件，excludeConnID 非空时跳过该连接
	Broadcast(topic, event string, payload interface{}, excludeConnID string)
	// EvictUser 把某个用户的全部连接移出主题
	EvictUser(topic string, userID uint)
	// CloseTopic 移除主题及其全部订阅
	CloseTopic(topic string)
}

// CodingTopic 返回编程房间的广播主题
func CodingTopic(roomID uint) string {
	return fmt.Sprintf("coding:%d", roomID)
}

// ChatTopic 返回全局聊天室的广播主题
func ChatTopic(roomID uint) string {
	return fmt.Sprintf("chat:%d", roomID)
}
