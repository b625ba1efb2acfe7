package repository

import (
	"context"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
)

// ChatRepository 定义了全局聊天室及其消息的存储操作。
type ChatRepository interface {
	// ListRooms 返回所有聊天室。
	ListRooms(ctx context.Context) ([]domain.ChatRoom, error)

	// CreateRoom 创建聊天室，名称或图标重复时返回 ErrDuplicateEntry。
	CreateRoom(ctx context.Context, room *domain.ChatRoom) error

	// RoomExists 判断聊天室是否存在。
	RoomExists(ctx context.Context, id uint) (bool, error)

	// SaveMessage 保存一条消息，写入后 msg.ID 被填充。
	SaveMessage(ctx context.Context, msg *domain.Message) error

	// RecentMessages 按时间倒序返回最多 limit 条消息。
	RecentMessages(ctx context.Context, roomID uint, limit int) ([]domain.Message, error)
}
