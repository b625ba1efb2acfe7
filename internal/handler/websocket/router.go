package websocket

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/dto"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/hub"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/service"
)

// 单个事件的处理超时
const eventTimeout = 10 * time.Second

// CollaborationService 是编程房间事件依赖的服务
type CollaborationService interface {
	Join(ctx context.Context, connID string, roomID, userID uint, inviteToken string) error
	Leave(ctx context.Context, connID string, roomID, userID uint) error
	Kick(ctx context.Context, roomID, targetID, requesterID uint) error
	ChangeRole(ctx context.Context, roomID, targetID uint, role domain.ParticipantRole, requesterID uint) ([]dto.ParticipantView, error)
	SendChatMessage(ctx context.Context, roomID, userID uint, text string) (*dto.RoomMessageView, error)
	ChangeLanguage(ctx context.Context, roomID, userID uint, language string) error
	ChangeEditorType(ctx context.Context, roomID, userID uint, editorType string) error
	UpdateCode(ctx context.Context, connID string, roomID, userID uint, code string) error
}

// ChatService 是全局聊天室事件依赖的服务
type ChatService interface {
	JoinGroup(ctx context.Context, connID string, roomID uint) error
	LeaveGroup(connID string, roomID uint)
	SendMessage(ctx context.Context, roomID, senderID uint, content string) (*dto.ChatMessageView, error)
}

// EventRouter 把客户端事件分发到对应的服务。
// 失败只记录日志，不会回复给发送者。
type EventRouter struct {
	collab CollaborationService
	chat   ChatService
}

var _ hub.EventHandler = (*EventRouter)(nil)

func NewEventRouter(collab CollaborationService, chat ChatService) *EventRouter {
	if collab == nil || chat == nil {
		panic("services cannot be nil for EventRouter")
	}
	return &EventRouter{collab: collab, chat: chat}
}

// HandleMessage 实现 hub.EventHandler
func (r *EventRouter) HandleMessage(ctx context.Context, c *hub.Client, raw []byte) {
	r.dispatch(ctx, c.ID(), c.UserID(), raw)
}

// HandleDisconnect 实现 hub.EventHandler。
// 断开连接不会把用户移出参与者列表，订阅由 Hub 在注销时清理。
func (r *EventRouter) HandleDisconnect(c *hub.Client) {
	logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "user_id": c.UserID()}).Info("Socket disconnected")
}

func (r *EventRouter) dispatch(ctx context.Context, connID string, userID uint, raw []byte) {
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": connID, "user_id": userID})

	ev, err := dto.ParseEvent(raw)
	if err != nil {
		logCtx.WithError(err).Warn("Dropping invalid socket event")
		return
	}
	logCtx = logCtx.WithFields(logrus.Fields{"event": ev.EventName(), "room_id": ev.Room()})

	// 事件中声明的操作者必须是当前连接的身份
	if actor, ok := actorOf(ev); ok && actor != userID {
		logCtx.WithField("claimed_user_id", actor).Warn("Dropping socket event: actor does not match connection identity")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	switch e := ev.(type) {
	case dto.JoinCodingRoom:
		err = r.collab.Join(ctx, connID, e.RoomID, e.UserID, e.InviteCode)
	case dto.LeaveCodingRoom:
		err = r.collab.Leave(ctx, connID, e.RoomID, e.UserID)
	case dto.SendMessageToCodingRoom:
		_, err = r.collab.SendChatMessage(ctx, e.RoomID, e.UserID, e.Message)
	case dto.KickUser:
		err = r.collab.Kick(ctx, e.RoomID, e.UserID, e.InstructorID)
	case dto.UpdateCode:
		err = r.collab.UpdateCode(ctx, connID, e.RoomID, e.UserID, e.Code)
	case dto.ChangeLanguage:
		err = r.collab.ChangeLanguage(ctx, e.RoomID, e.UserID, e.Language)
	case dto.ChangeEditorType:
		err = r.collab.ChangeEditorType(ctx, e.RoomID, e.UserID, e.EditorType)
	case dto.ToggleAllowEdit:
		_, err = r.collab.ChangeRole(ctx, e.RoomID, e.UserID, e.Status, e.InstructorID)
	case dto.JoinGroup:
		err = r.chat.JoinGroup(ctx, connID, e.RoomID)
	case dto.LeaveGroup:
		r.chat.LeaveGroup(connID, e.RoomID)
	case dto.SendMessage:
		_, err = r.chat.SendMessage(ctx, e.RoomID, e.Sender, e.Content)
	default:
		logCtx.Warn("No route for socket event")
		return
	}

	if err != nil {
		logEventError(logCtx, err)
		return
	}
	logCtx.Debug("Socket event handled")
}

// actorOf 返回事件中声明的操作者，没有操作者字段的事件返回 false
func actorOf(ev dto.ClientEvent) (uint, bool) {
	switch e := ev.(type) {
	case dto.JoinCodingRoom:
		return e.UserID, true
	case dto.LeaveCodingRoom:
		return e.UserID, true
	case dto.SendMessageToCodingRoom:
		return e.UserID, true
	case dto.UpdateCode:
		return e.UserID, true
	case dto.ChangeLanguage:
		return e.UserID, true
	case dto.ChangeEditorType:
		return e.UserID, true
	case dto.KickUser:
		return e.InstructorID, true
	case dto.ToggleAllowEdit:
		return e.InstructorID, true
	case dto.SendMessage:
		return e.Sender, true
	}
	return 0, false
}

func logEventError(logCtx *logrus.Entry, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotParticipant),
		errors.Is(err, service.ErrInvalidEvent),
		errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrChatRoomNotFound),
		errors.Is(err, service.ErrUserNotFound):
		logCtx.WithError(err).Warn("Socket event rejected")
	case errors.Is(err, context.DeadlineExceeded):
		logCtx.WithError(err).Error("Socket event timed out")
	default:
		logCtx.WithError(err).Error("Socket event failed")
	}
}
