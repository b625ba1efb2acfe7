package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/dto"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/presence"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/repository"
)

// CodeEditPolicy 决定谁可以推送编辑器内容。
type CodeEditPolicy string

const (
	// CodeEditOpen 任何已订阅房间主题的连接都可以推送内容
	CodeEditOpen CodeEditPolicy = "open"
	// CodeEditEditors 只有讲师和 editor 角色可以推送内容
	CodeEditEditors CodeEditPolicy = "editors"
)

// ParseCodeEditPolicy 解析配置值，未知取值返回 CodeEditOpen。
func ParseCodeEditPolicy(v string) CodeEditPolicy {
	if CodeEditPolicy(strings.ToLower(strings.TrimSpace(v))) == CodeEditEditors {
		return CodeEditEditors
	}
	return CodeEditOpen
}

// CollaborationService 是编程房间的会话协调器。
// 它处理 WebSocket 事件：校验权限，修改存储或内存态，再把结果广播到房间主题。
// 同一房间的变更通过 roomLocks 串行化；UpdateCode 只写内存，不加锁。
type CollaborationService struct {
	rooms      repository.CodingRoomRepository
	users      repository.UserRepository
	cache      *presence.Cache
	bus        Broadcaster
	locks      *roomLocks
	editPolicy CodeEditPolicy
	now        func() time.Time
}

// NewCollaborationService 创建 CollaborationService 实例。
func NewCollaborationService(
	rooms repository.CodingRoomRepository,
	users repository.UserRepository,
	cache *presence.Cache,
	bus Broadcaster,
	editPolicy CodeEditPolicy,
) *CollaborationService {
	if rooms == nil || users == nil || cache == nil || bus == nil {
		panic("all dependencies must be non-nil for CollaborationService")
	}
	if editPolicy == "" {
		editPolicy = CodeEditOpen
	}
	return &CollaborationService{
		rooms:      rooms,
		users:      users,
		cache:      cache,
		bus:        bus,
		locks:      newRoomLocks(),
		editPolicy: editPolicy,
		now:        time.Now,
	}
}

// withRoomLock 在房间锁内执行 fn
func (s *CollaborationService) withRoomLock(roomID uint, fn func() error) error {
	unlock := s.locks.lock(roomID)
	defer unlock()
	return fn()
}

func (s *CollaborationService) loadRoom(ctx context.Context, roomID uint) (*domain.CodingRoom, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: load room %d: %v", ErrInternalServer, roomID, err)
	}
	return room, nil
}

func (s *CollaborationService) saveRoom(ctx context.Context, room *domain.CodingRoom) error {
	if err := s.rooms.Save(ctx, room); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("%w: save room %d: %v", ErrInternalServer, room.ID, err)
	}
	s.cache.SetRoster(room.ID, room.InstructorID, room.Participants)
	return nil
}

// roster 优先读取内存中的成员快照，缺失时从存储加载并回填。
// 调用方需持有房间锁。
func (s *CollaborationService) roster(ctx context.Context, roomID uint) (presence.Roster, error) {
	if r, ok := s.cache.Roster(roomID); ok {
		return r, nil
	}
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return presence.Roster{}, err
	}
	s.cache.Seed(room.ID, room.CodeContent)
	s.cache.SetRoster(room.ID, room.InstructorID, room.Participants)
	r, _ := s.cache.Roster(roomID)
	return r, nil
}

func (s *CollaborationService) broadcastParticipants(ctx context.Context, roomID uint, event string, participants []domain.Participant) []dto.ParticipantView {
	views := participantViews(ctx, s.users, participants)
	s.bus.Broadcast(CodingTopic(roomID), event, views, "")
	return views
}

// Join 让用户加入房间并把连接订阅到房间主题。
// 私有房间的非讲师用户必须提供正确的邀请令牌；被封禁的用户永远无法加入。
func (s *CollaborationService) Join(ctx context.Context, connID string, roomID, userID uint, inviteToken string) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "conn_id": connID, "event": dto.EventJoinCodingRoom})

	return s.withRoomLock(roomID, func() error {
		room, err := s.loadRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !room.CheckInvite(userID, inviteToken) {
			logCtx.Warn("Join rejected: invalid invite token")
			return ErrInvalidInviteCode
		}
		if room.IsKicked(userID) {
			logCtx.Warn("Join rejected: user is kicked from room")
			return ErrKicked
		}
		s.cache.Seed(room.ID, room.CodeContent)

		changed := false
		if !room.IsInstructor(userID) && room.FindParticipant(userID) < 0 {
			room.Participants = append(room.Participants, domain.Participant{
				RoomID: room.ID,
				UserID: userID,
				Role:   domain.RoleViewer,
			})
			changed = true
		}
		if removed := room.DedupeParticipants(); removed > 0 {
			logCtx.WithField("removed", removed).Warn("Collapsed duplicate participant entries")
			changed = true
		}
		if changed {
			if err := s.saveRoom(ctx, room); err != nil {
				logCtx.WithError(err).Error("Failed to persist participant list on join")
				return err
			}
		} else {
			s.cache.SetRoster(room.ID, room.InstructorID, room.Participants)
		}

		// 先订阅再广播，加入者也能收到最新的成员列表
		s.bus.Subscribe(connID, CodingTopic(roomID))
		s.broadcastParticipants(ctx, roomID, dto.EventParticipantsListUpdated, room.Participants)
		logCtx.WithField("participants", len(room.Participants)).Info("User joined coding room")
		return nil
	})
}

// Leave 移除用户的参与者记录并取消连接的订阅，用户不在列表中时只广播。
func (s *CollaborationService) Leave(ctx context.Context, connID string, roomID, userID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "conn_id": connID, "event": dto.EventLeaveCodingRoom})

	return s.withRoomLock(roomID, func() error {
		room, err := s.loadRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if i := room.FindParticipant(userID); i >= 0 {
			room.Participants = append(room.Participants[:i], room.Participants[i+1:]...)
			if err := s.saveRoom(ctx, room); err != nil {
				logCtx.WithError(err).Error("Failed to persist participant list on leave")
				return err
			}
		}

		if connID != "" {
			s.bus.Unsubscribe(connID, CodingTopic(roomID))
		}
		s.broadcastParticipants(ctx, roomID, dto.EventParticipantsListUpdated, room.Participants)
		logCtx.Info("User left coding room")
		return nil
	})
}

// Kick 由讲师把用户加入封禁列表。
// 被封禁的用户同时从参与者列表中移除，其所有连接被移出房间主题。
func (s *CollaborationService) Kick(ctx context.Context, roomID, targetID, requesterID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": requesterID, "target_id": targetID, "event": dto.EventKickUser})

	return s.withRoomLock(roomID, func() error {
		room, err := s.loadRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !domain.CanPerform(domain.ActionKick, room.RoleOf(requesterID), room.IsInstructor(requesterID)) {
			logCtx.Warn("Kick rejected: requester is not the instructor")
			return ErrNotInstructor
		}
		if room.IsInstructor(targetID) {
			return fmt.Errorf("%w: instructor cannot be kicked", ErrInvalidEvent)
		}

		if !room.IsKicked(targetID) {
			room.KickList = append(room.KickList, domain.KickEntry{
				RoomID:    room.ID,
				UserID:    targetID,
				Timestamp: s.now(),
			})
		}
		removed := false
		if i := room.FindParticipant(targetID); i >= 0 {
			room.Participants = append(room.Participants[:i], room.Participants[i+1:]...)
			removed = true
		}
		if err := s.saveRoom(ctx, room); err != nil {
			logCtx.WithError(err).Error("Failed to persist kick list")
			return err
		}

		topic := CodingTopic(roomID)
		s.bus.Broadcast(topic, dto.EventKickListUpdated, room.KickList, "")
		if removed {
			s.broadcastParticipants(ctx, roomID, dto.EventParticipantsListUpdated, room.Participants)
		}
		// 广播之后再驱逐，被踢用户能收到封禁列表
		s.bus.EvictUser(topic, targetID)
		logCtx.Info("User kicked from coding room")
		return nil
	})
}

// ChangeRole 由讲师修改参与者的角色，返回最新的参与者列表。
func (s *CollaborationService) ChangeRole(ctx context.Context, roomID, targetID uint, role domain.ParticipantRole, requesterID uint) ([]dto.ParticipantView, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": requesterID, "target_id": targetID, "role": role, "event": dto.EventToggleAllowEdit})

	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidEvent, role)
	}

	var views []dto.ParticipantView
	err := s.withRoomLock(roomID, func() error {
		room, err := s.loadRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !domain.CanPerform(domain.ActionChangeRole, room.RoleOf(requesterID), room.IsInstructor(requesterID)) {
			logCtx.Warn("Role change rejected: requester is not the instructor")
			return ErrNotInstructor
		}
		i := room.FindParticipant(targetID)
		if i < 0 {
			logCtx.Warn("Role change rejected: target is not a participant")
			return ErrNotParticipant
		}

		room.Participants[i].Role = role
		if err := s.saveRoom(ctx, room); err != nil {
			logCtx.WithError(err).Error("Failed to persist role change")
			return err
		}
		views = s.broadcastParticipants(ctx, roomID, dto.EventEditStatusChanged, room.Participants)
		logCtx.Info("Participant role changed")
		return nil
	})
	return views, err
}

// SendChatMessage 追加一条房间聊天消息并广播给房间内所有连接。
func (s *CollaborationService) SendChatMessage(ctx context.Context, roomID, userID uint, text string) (*dto.RoomMessageView, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "event": dto.EventSendMessageToCodingRoom})

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidEvent)
	}

	var view *dto.RoomMessageView
	err := s.withRoomLock(roomID, func() error {
		r, err := s.roster(ctx, roomID)
		if err != nil {
			return err
		}
		if !domain.CanPerform(domain.ActionSendChat, r.RoleOf(userID), r.IsInstructor(userID)) {
			logCtx.Warn("Chat message rejected: sender is not a participant")
			return ErrNotParticipant
		}

		msg := &domain.RoomMessage{SenderID: userID, Content: text, Timestamp: s.now()}
		if err := s.rooms.AppendMessage(ctx, roomID, msg); err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				s.cache.Remove(roomID)
				return ErrRoomNotFound
			}
			logCtx.WithError(err).Error("Failed to append chat message")
			return fmt.Errorf("%w: append message: %v", ErrInternalServer, err)
		}

		views := roomMessageViews(ctx, s.users, []domain.RoomMessage{*msg})
		view = &views[0]
		s.bus.Broadcast(CodingTopic(roomID), dto.EventReceiveMessage, view, "")
		logCtx.WithField("message_id", msg.ID).Debug("Chat message broadcast")
		return nil
	})
	return view, err
}

// ChangeLanguage 修改房间的编程语言，讲师或 editor 可用。
func (s *CollaborationService) ChangeLanguage(ctx context.Context, roomID, userID uint, language string) error {
	language = strings.TrimSpace(language)
	if language == "" {
		return fmt.Errorf("%w: empty language", ErrInvalidEvent)
	}
	return s.changeSetting(ctx, roomID, userID, domain.ActionChangeLanguage, dto.EventChangeLanguage,
		func() error { return s.rooms.UpdateLanguage(ctx, roomID, language) },
		func() { s.bus.Broadcast(CodingTopic(roomID), dto.EventLanguageChanged, dto.LanguageChangedPayload{Language: language}, "") },
	)
}

// ChangeEditorType 修改房间的编辑器类型，讲师或 editor 可用。
func (s *CollaborationService) ChangeEditorType(ctx context.Context, roomID, userID uint, editorType string) error {
	editorType = strings.TrimSpace(editorType)
	if editorType == "" {
		return fmt.Errorf("%w: empty editor type", ErrInvalidEvent)
	}
	return s.changeSetting(ctx, roomID, userID, domain.ActionChangeEditorType, dto.EventChangeEditorType,
		func() error { return s.rooms.UpdateEditorType(ctx, roomID, editorType) },
		func() { s.bus.Broadcast(CodingTopic(roomID), dto.EventEditorTypeChanged, dto.EditorTypeChangedPayload{EditorType: editorType}, "") },
	)
}

func (s *CollaborationService) changeSetting(ctx context.Context, roomID, userID uint, action domain.RoomAction, event string, persist func() error, broadcast func()) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "event": event})

	return s.withRoomLock(roomID, func() error {
		r, err := s.roster(ctx, roomID)
		if err != nil {
			return err
		}
		if !domain.CanPerform(action, r.RoleOf(userID), r.IsInstructor(userID)) {
			logCtx.Warn("Setting change rejected: requester is not an editor")
			return ErrForbidden
		}
		if err := persist(); err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				s.cache.Remove(roomID)
				return ErrRoomNotFound
			}
			logCtx.WithError(err).Error("Failed to persist room setting")
			return fmt.Errorf("%w: %v", ErrInternalServer, err)
		}
		broadcast()
		logCtx.Info("Room setting changed")
		return nil
	})
}

// UpdateCode 把编辑器内容写入内存缓存并转发给房间内的其他连接。
// 内容只在变化时标记为待保存，落库由自动保存负责。
func (s *CollaborationService) UpdateCode(ctx context.Context, connID string, roomID, userID uint, code string) error {
	topic := CodingTopic(roomID)
	if !s.bus.IsSubscribed(connID, topic) {
		return fmt.Errorf("%w: connection has not joined room %d", ErrForbidden, roomID)
	}
	if s.editPolicy == CodeEditEditors {
		var r presence.Roster
		err := s.withRoomLock(roomID, func() (err error) {
			r, err = s.roster(ctx, roomID)
			return err
		})
		if err != nil {
			return err
		}
		if !domain.CanPerform(domain.ActionEditCode, r.RoleOf(userID), r.IsInstructor(userID)) {
			return fmt.Errorf("%w: user %d cannot edit code", ErrForbidden, userID)
		}
	}

	if s.cache.UpdateCode(roomID, code) {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "size": len(code)}).Trace("Code buffer marked dirty")
	}
	s.bus.Broadcast(topic, dto.EventCodeUpdated, dto.CodeUpdatedPayload{Code: code, UserID: userID}, connID)
	return nil
}

// closeRoom 清理已删除房间的内存态和广播主题。调用方需持有房间锁。
func (s *CollaborationService) closeRoom(roomID uint) {
	s.cache.Remove(roomID)
	s.bus.CloseTopic(CodingTopic(roomID))
}
