package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/repository"
)

// GormCodingRoomRepository 是 CodingRoomRepository 接口的 GORM 实现。
// 房间文档拆成四张表：coding_rooms、participants、kick_entries、room_messages，
// 子表按自增 ID 保持插入顺序。
type GormCodingRoomRepository struct {
	db *gorm.DB
}

// NewGormCodingRoomRepository 创建 GormCodingRoomRepository 实例
func NewGormCodingRoomRepository(db *gorm.DB) *GormCodingRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormCodingRoomRepository")
	}
	return &GormCodingRoomRepository{db: db}
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// Create 实现创建房间
func (r *GormCodingRoomRepository) Create(ctx context.Context, room *domain.CodingRoom) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(room).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create coding room '%s': %w", room.Name, err)
	}
	return nil
}

// FindByID 实现加载完整的房间文档
func (r *GormCodingRoomRepository) FindByID(ctx context.Context, id uint) (*domain.CodingRoom, error) {
	var room domain.CodingRoom
	err := r.db.WithContext(ctx).
		Preload("Participants", orderByID).
		Preload("KickList", orderByID).
		Preload("ChatMessages", orderByID).
		First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find coding room by id %d: %w", id, err)
	}
	return &room, nil
}

// FindAll 实现列出全部房间 (不含聊天记录)
func (r *GormCodingRoomRepository) FindAll(ctx context.Context) ([]domain.CodingRoom, error) {
	var rooms []domain.CodingRoom
	err := r.db.WithContext(ctx).
		Preload("Participants", orderByID).
		Preload("KickList", orderByID).
		Order("id ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list coding rooms: %w", err)
	}
	return rooms, nil
}

// Save 在一个事务中整体替换房间设置、参与者和封禁列表
func (r *GormCodingRoomRepository) Save(ctx context.Context, room *domain.CodingRoom) error {
	if room.ID == 0 {
		return fmt.Errorf("gorm: save coding room without id")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.CodingRoom{}).Where("id = ?", room.ID).Updates(map[string]interface{}{
			"name":         room.Name,
			"visibility":   room.Visibility,
			"invite_token": room.InviteToken,
			"language":     room.Language,
			"editor_type":  room.EditorType,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 设置未变化时 MySQL 返回 0，需要确认房间是否存在
			if err := roomExists(tx, room.ID); err != nil {
				return err
			}
		}

		if err := tx.Where("room_id = ?", room.ID).Delete(&domain.Participant{}).Error; err != nil {
			return err
		}
		for i := range room.Participants {
			p := &room.Participants[i]
			p.ID = 0
			p.RoomID = room.ID
			if p.Role == domain.RoleNone {
				p.Role = domain.RoleViewer
			}
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("room_id = ?", room.ID).Delete(&domain.KickEntry{}).Error; err != nil {
			return err
		}
		for i := range room.KickList {
			k := &room.KickList[i]
			k.ID = 0
			k.RoomID = room.ID
			if err := tx.Create(k).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return err
		}
		return fmt.Errorf("gorm: save coding room %d: %w", room.ID, err)
	}
	return nil
}

// AppendMessage 实现追加聊天消息
func (r *GormCodingRoomRepository) AppendMessage(ctx context.Context, roomID uint, msg *domain.RoomMessage) error {
	if err := r.ensureExists(ctx, roomID); err != nil {
		return err
	}
	msg.ID = 0
	msg.RoomID = roomID
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("gorm: append message to room %d: %w", roomID, err)
	}
	return nil
}

// UpdateCode 实现更新代码内容
func (r *GormCodingRoomRepository) UpdateCode(ctx context.Context, roomID uint, code string) error {
	return r.updateColumn(ctx, roomID, "code_content", code)
}

// UpdateLanguage 实现更新编程语言
func (r *GormCodingRoomRepository) UpdateLanguage(ctx context.Context, roomID uint, language string) error {
	return r.updateColumn(ctx, roomID, "language", language)
}

// UpdateEditorType 实现更新编辑器类型
func (r *GormCodingRoomRepository) UpdateEditorType(ctx context.Context, roomID uint, editorType string) error {
	return r.updateColumn(ctx, roomID, "editor_type", editorType)
}

// Delete 实现级联删除房间
func (r *GormCodingRoomRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 不依赖数据库的级联规则，先删子表再删房间，兼容带外键约束的 mysql/postgres
		for _, child := range []interface{}{&domain.Participant{}, &domain.KickEntry{}, &domain.RoomMessage{}} {
			if err := tx.Where("room_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&domain.CodingRoom{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrRoomNotFound // 回滚事务
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return err
		}
		return fmt.Errorf("gorm: delete coding room %d: %w", id, err)
	}
	return nil
}

func (r *GormCodingRoomRepository) updateColumn(ctx context.Context, roomID uint, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&domain.CodingRoom{}).Where("id = ?", roomID).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("gorm: update %s of coding room %d: %w", column, roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		// 值未变化时 MySQL 也会返回 0，这里再确认一次房间是否存在
		return r.ensureExists(ctx, roomID)
	}
	return nil
}

func (r *GormCodingRoomRepository) ensureExists(ctx context.Context, roomID uint) error {
	return roomExists(r.db.WithContext(ctx), roomID)
}

func roomExists(db *gorm.DB, roomID uint) error {
	var count int64
	if err := db.Model(&domain.CodingRoom{}).Where("id = ?", roomID).Count(&count).Error; err != nil {
		return fmt.Errorf("gorm: count coding room %d: %w", roomID, err)
	}
	if count == 0 {
		return repository.ErrRoomNotFound
	}
	return nil
}
