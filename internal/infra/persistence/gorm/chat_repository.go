package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/repository"
)

// GormChatRepository 是 ChatRepository 接口的 GORM 实现
type GormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository 创建 GormChatRepository 实例
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	if db == nil {
		panic("database connection cannot be nil for GormChatRepository")
	}
	return &GormChatRepository{db: db}
}

func (r *GormChatRepository) ListRooms(ctx context.Context) ([]domain.ChatRoom, error) {
	var rooms []domain.ChatRoom
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("gorm: list chat rooms: %w", err)
	}
	return rooms, nil
}

func (r *GormChatRepository) CreateRoom(ctx context.Context, room *domain.ChatRoom) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create chat room '%s': %w", room.Name, err)
	}
	return nil
}

func (r *GormChatRepository) RoomExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ChatRoom{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("gorm: count chat room %d: %w", id, err)
	}
	return count > 0, nil
}

func (r *GormChatRepository) SaveMessage(ctx context.Context, msg *domain.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("gorm: save chat message for room %d: %w", msg.RoomID, err)
	}
	return nil
}

// RecentMessages 按时间倒序返回最近的消息 (同一时间戳按 ID 倒序)
func (r *GormChatRepository) RecentMessages(ctx context.Context, roomID uint, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	if limit <= 0 {
		limit = 500
	}
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: recent messages for room %d: %w", roomID, err)
	}
	return msgs, nil
}
