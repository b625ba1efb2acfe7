package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/dto"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/repository"
)

// RoomService 负责编程房间的 HTTP 管理操作：创建、删除、加入校验、查询。
// 会改变房间状态的操作复用协调器的房间锁。
type RoomService struct {
	rooms  repository.CodingRoomRepository
	users  repository.UserRepository
	collab *CollaborationService
	// newToken 生成私有房间的邀请令牌
	newToken func() string
}

// NewRoomService 创建 RoomService 实例。
func NewRoomService(rooms repository.CodingRoomRepository, users repository.UserRepository, collab *CollaborationService) *RoomService {
	if rooms == nil || users == nil || collab == nil {
		panic("all dependencies must be non-nil for RoomService")
	}
	return &RoomService{
		rooms:    rooms,
		users:    users,
		collab:   collab,
		newToken: func() string { return uuid.NewString() },
	}
}

// CreateRoom 创建房间。私有房间生成 UUID 邀请令牌，其余设置取默认值。
func (s *RoomService) CreateRoom(ctx context.Context, instructorID uint, name string, visibility domain.Visibility) (*domain.CodingRoom, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": instructorID, "visibility": visibility})

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrInvalidEvent)
	}
	if visibility == "" {
		visibility = domain.VisibilityPublic
	}
	if visibility != domain.VisibilityPublic && visibility != domain.VisibilityPrivate {
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrInvalidEvent, visibility)
	}

	room := &domain.CodingRoom{
		Name:         name,
		InstructorID: instructorID,
		Visibility:   visibility,
		Language:     domain.DefaultLanguage,
		EditorType:   domain.DefaultEditorType,
	}
	if visibility == domain.VisibilityPrivate {
		token := s.newToken()
		room.InviteToken = &token
	}

	if err := s.rooms.Create(ctx, room); err != nil {
		// 邀请令牌是 UUID，唯一约束冲突理论上不会发生
		logCtx.WithError(err).Error("Failed to save new coding room")
		return nil, ErrInternalServer
	}
	logCtx.WithField("room_id", room.ID).Info("Coding room created")
	return room, nil
}

// DeleteRoom 由房间讲师删除房间，同时清理内存态并关闭广播主题。
func (s *RoomService) DeleteRoom(ctx context.Context, roomID, requesterID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": requesterID})

	return s.collab.withRoomLock(roomID, func() error {
		room, err := s.collab.loadRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !domain.CanPerform(domain.ActionDeleteRoom, room.RoleOf(requesterID), room.IsInstructor(requesterID)) {
			logCtx.Warn("Delete rejected: requester does not own the room")
			return fmt.Errorf("%w: you are not authorized to delete this coding room", ErrForbidden)
		}
		if err := s.rooms.Delete(ctx, roomID); err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			logCtx.WithError(err).Error("Failed to delete coding room")
			return ErrInternalServer
		}
		s.collab.closeRoom(roomID)
		logCtx.Info("Coding room deleted")
		return nil
	})
}

// CheckJoin 校验用户能否加入房间，不修改参与者列表。
// 真正的加入发生在 WebSocket 的 joinCodingRoom 事件中。
func (s *RoomService) CheckJoin(ctx context.Context, roomID, userID uint, token string) (*dto.RoomDetails, error) {
	room, err := s.collab.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.CheckInvite(userID, token) {
		return nil, ErrInvalidInviteCode
	}
	if room.IsKicked(userID) {
		return nil, ErrKicked
	}
	return s.details(ctx, room, false), nil
}

// ListRooms 列出所有房间，邀请令牌一律隐藏。
func (s *RoomService) ListRooms(ctx context.Context) ([]domain.CodingRoom, error) {
	rooms, err := s.rooms.FindAll(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list coding rooms")
		return nil, ErrInternalServer
	}
	out := make([]domain.CodingRoom, 0, len(rooms))
	for i := range rooms {
		out = append(out, rooms[i].Sanitized())
	}
	return out, nil
}

// GetRoomDetails 返回房间详情，参与者和消息发送者解析为展示信息。
// 邀请令牌只对房间讲师可见。
func (s *RoomService) GetRoomDetails(ctx context.Context, roomID, requesterID uint) (*dto.RoomDetails, error) {
	room, err := s.collab.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, room, room.IsInstructor(requesterID)), nil
}

// UpdateRole 是 ChangeRole 的 HTTP 入口
func (s *RoomService) UpdateRole(ctx context.Context, roomID, targetID uint, role domain.ParticipantRole, requesterID uint) ([]dto.ParticipantView, error) {
	return s.collab.ChangeRole(ctx, roomID, targetID, role, requesterID)
}

func (s *RoomService) details(ctx context.Context, room *domain.CodingRoom, withToken bool) *dto.RoomDetails {
	d := &dto.RoomDetails{
		ID:           room.ID,
		Name:         room.Name,
		Instructor:   room.InstructorID,
		Visibility:   room.Visibility,
		Language:     room.Language,
		EditorType:   room.EditorType,
		CodeContent:  room.CodeContent,
		Participants: participantViews(ctx, s.users, room.Participants),
		KickList:     room.KickList,
		ChatMessages: roomMessageViews(ctx, s.users, room.ChatMessages),
		CreatedAt:    room.CreatedAt,
		UpdatedAt:    room.UpdatedAt,
	}
	if d.KickList == nil {
		d.KickList = []domain.KickEntry{}
	}
	if withToken {
		d.InviteLink = room.InviteToken
	}
	// 尚未落库的编辑内容比存储中的更新
	if code, ok := s.collab.cache.Code(room.ID); ok {
		d.CodeContent = code
	}
	return d
}
