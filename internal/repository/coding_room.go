package repository

import (
	"context"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
)

// CodingRoomRepository 是编程房间的持久化存储 (Room Store)。
// 所有按房间 ID 查询的方法在房间不存在时返回 ErrRoomNotFound。
type CodingRoomRepository interface {
	// Create 保存一个新房间 (不含子记录)。
	Create(ctx context.Context, room *domain.CodingRoom) error

	// FindByID 加载完整的房间文档：参与者、封禁列表和聊天记录均按插入顺序返回。
	FindByID(ctx context.Context, id uint) (*domain.CodingRoom, error)

	// FindAll 列出所有房间，不加载聊天记录。
	FindAll(ctx context.Context) ([]domain.CodingRoom, error)

	// Save 整体保存房间设置、参与者列表和封禁列表 (last write wins)。
	// 聊天记录不在此处写入，请使用 AppendMessage。
	Save(ctx context.Context, room *domain.CodingRoom) error

	// AppendMessage 追加一条聊天消息，写入后 msg.ID 被填充。
	AppendMessage(ctx context.Context, roomID uint, msg *domain.RoomMessage) error

	// UpdateCode 只更新房间的代码内容，供自动保存使用。
	UpdateCode(ctx context.Context, roomID uint, code string) error

	// UpdateLanguage 更新房间的编程语言。
	UpdateLanguage(ctx context.Context, roomID uint, language string) error

	// UpdateEditorType 更新房间的编辑器类型。
	UpdateEditorType(ctx context.Context, roomID uint, editorType string) error

	// Delete 删除房间及其全部子记录。
	Delete(ctx context.Context, id uint) error
}
