// Package dto 定义 WebSocket 事件的线上格式。
// 所有消息都使用 {"event": <名称>, "data": {...}} 的信封格式。
package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin/binding"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
)

// 客户端 -> 服务端事件
const (
	EventJoinCodingRoom          = "joinCodingRoom"
	EventLeaveCodingRoom         = "leaveCodingRoom"
	EventSendMessageToCodingRoom = "sendMessageToCodingRoom"
	EventKickUser                = "kickUser"
	EventUpdateCode              = "updateCode"
	EventChangeLanguage          = "changeLanguage"
	EventChangeEditorType        = "changeEditorType"
	EventToggleAllowEdit         = "toggleAllowEdit"

	// 全局聊天室
	EventJoinGroup   = "joinGroup"
	EventLeaveGroup  = "leaveGroup"
	EventSendMessage = "sendMessage"
)

// 服务端 -> 客户端事件。participentsListUpdated 的拼写与现有前端保持一致。
const (
	EventParticipantsListUpdated = "participentsListUpdated"
	EventKickListUpdated         = "kickListUpdated"
	EventReceiveMessage          = "receiveMessage"
	EventCodeUpdated             = "codeUpdated"
	EventLanguageChanged         = "languageChanged"
	EventEditorTypeChanged       = "editorTypeChanged"
	EventEditStatusChanged       = "editStatusChanged"
)

var (
	ErrMalformedEvent = errors.New("dto: malformed event")
	ErrUnknownEvent   = errors.New("dto: unknown event")
)

// Envelope 是入站消息的外层结构
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Outgoing 是出站消息的外层结构
type Outgoing struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// ClientEvent 是经过校验的入站事件。
type ClientEvent interface {
	EventName() string
	Room() uint
}

type JoinCodingRoom struct {
	RoomID     uint   `json:"roomId" binding:"required"`
	UserID     uint   `json:"userId" binding:"required"`
	InviteCode string `json:"inviteCode" binding:"omitempty,max=64"`
}

type LeaveCodingRoom struct {
	RoomID uint `json:"roomId" binding:"required"`
	UserID uint `json:"userId" binding:"required"`
}

type SendMessageToCodingRoom struct {
	RoomID  uint   `json:"roomId" binding:"required"`
	UserID  uint   `json:"userId" binding:"required"`
	Message string `json:"message" binding:"required,max=4000"`
}

type KickUser struct {
	RoomID       uint `json:"roomId" binding:"required"`
	UserID       uint `json:"userId" binding:"required"`
	InstructorID uint `json:"instructorId" binding:"required"`
}

// UpdateCode 的 code 允许为空字符串 (清空编辑器)
type UpdateCode struct {
	RoomID uint   `json:"roomId" binding:"required"`
	UserID uint   `json:"userId" binding:"required"`
	Code   string `json:"code" binding:"max=524288"`
}

type ChangeLanguage struct {
	RoomID   uint   `json:"roomId" binding:"required"`
	UserID   uint   `json:"userId" binding:"required"`
	Language string `json:"language" binding:"required,max=50"`
}

type ChangeEditorType struct {
	RoomID     uint   `json:"roomId" binding:"required"`
	UserID     uint   `json:"userId" binding:"required"`
	EditorType string `json:"editorType" binding:"required,max=50"`
}

type ToggleAllowEdit struct {
	RoomID       uint                   `json:"roomId" binding:"required"`
	Status       domain.ParticipantRole `json:"status" binding:"required,oneof=viewer editor"`
	UserID       uint                   `json:"userId" binding:"required"`
	InstructorID uint                   `json:"instructorId" binding:"required"`
}

type JoinGroup struct {
	RoomID uint `json:"roomId" binding:"required"`
}

type LeaveGroup struct {
	RoomID uint `json:"roomId" binding:"required"`
}

type SendMessage struct {
	RoomID  uint   `json:"roomId" binding:"required"`
	Sender  uint   `json:"sender" binding:"required"`
	Content string `json:"content" binding:"required,max=4000"`
}

func (JoinCodingRoom) EventName() string          { return EventJoinCodingRoom }
func (LeaveCodingRoom) EventName() string         { return EventLeaveCodingRoom }
func (SendMessageToCodingRoom) EventName() string { return EventSendMessageToCodingRoom }
func (KickUser) EventName() string                { return EventKickUser }
func (UpdateCode) EventName() string              { return EventUpdateCode }
func (ChangeLanguage) EventName() string          { return EventChangeLanguage }
func (ChangeEditorType) EventName() string        { return EventChangeEditorType }
func (ToggleAllowEdit) EventName() string         { return EventToggleAllowEdit }
func (JoinGroup) EventName() string               { return EventJoinGroup }
func (LeaveGroup) EventName() string              { return EventLeaveGroup }
func (SendMessage) EventName() string             { return EventSendMessage }

func (e JoinCodingRoom) Room() uint          { return e.RoomID }
func (e LeaveCodingRoom) Room() uint         { return e.RoomID }
func (e SendMessageToCodingRoom) Room() uint { return e.RoomID }
func (e KickUser) Room() uint                { return e.RoomID }
func (e UpdateCode) Room() uint              { return e.RoomID }
func (e ChangeLanguage) Room() uint          { return e.RoomID }
func (e ChangeEditorType) Room() uint        { return e.RoomID }
func (e ToggleAllowEdit) Room() uint         { return e.RoomID }
func (e JoinGroup) Room() uint               { return e.RoomID }
func (e LeaveGroup) Room() uint              { return e.RoomID }
func (e SendMessage) Room() uint             { return e.RoomID }

// ParseEvent 解析并校验一条入站消息，返回具体的事件类型。
func ParseEvent(raw []byte) (ClientEvent, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data for %q", ErrMalformedEvent, env.Event)
	}

	switch env.Event {
	case EventJoinCodingRoom:
		return decode[JoinCodingRoom](env)
	case EventLeaveCodingRoom:
		return decode[LeaveCodingRoom](env)
	case EventSendMessageToCodingRoom:
		return decode[SendMessageToCodingRoom](env)
	case EventKickUser:
		return decode[KickUser](env)
	case EventUpdateCode:
		return decode[UpdateCode](env)
	case EventChangeLanguage:
		return decode[ChangeLanguage](env)
	case EventChangeEditorType:
		return decode[ChangeEditorType](env)
	case EventToggleAllowEdit:
		return decode[ToggleAllowEdit](env)
	case EventJoinGroup:
		return decode[JoinGroup](env)
	case EventLeaveGroup:
		return decode[LeaveGroup](env)
	case EventSendMessage:
		return decode[SendMessage](env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func decode[T ClientEvent](env Envelope) (ClientEvent, error) {
	var payload T
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, env.Event, err)
	}
	// 复用 gin 的校验器，规则与 HTTP 请求体一致
	if err := binding.Validator.ValidateStruct(&payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, env.Event, err)
	}
	return payload, nil
}

// Encode 序列化一条出站消息
func Encode(event string, data interface{}) ([]byte, error) {
	return json.Marshal(Outgoing{Event: event, Data: data})
}

// --- 出站载荷 ---

// ParticipantView 是广播给客户端的参与者记录，用户字段已解析为展示信息。
type ParticipantView struct {
	User       domain.UserSummary     `json:"user"`
	Role       domain.ParticipantRole `json:"role"`
	MutedUntil *time.Time             `json:"mutedUntil,omitempty"`
}

// RoomMessageView 是房间聊天消息的出站形式
type RoomMessageView struct {
	ID        uint               `json:"_id"`
	Sender    domain.UserSummary `json:"sender"`
	Content   string             `json:"content"`
	Timestamp time.Time          `json:"timestamp"`
}

// ChatMessageView 是全局聊天室消息的出站形式
type ChatMessageView struct {
	ID        uint               `json:"_id"`
	RoomID    uint               `json:"roomId"`
	Sender    domain.UserSummary `json:"sender"`
	Content   string             `json:"content"`
	Timestamp time.Time          `json:"timestamp"`
}

type CodeUpdatedPayload struct {
	Code   string `json:"code"`
	UserID uint   `json:"userId"`
}

type LanguageChangedPayload struct {
	Language string `json:"language"`
}

type EditorTypeChangedPayload struct {
	EditorType string `json:"editorType"`
}

// RoomDetails 是 HTTP 接口返回的房间详情，邀请令牌只对讲师可见。
type RoomDetails struct {
	ID           uint               `json:"_id"`
	Name         string             `json:"name"`
	Instructor   uint               `json:"instructor"`
	Visibility   domain.Visibility  `json:"visibility"`
	InviteLink   *string            `json:"inviteLink,omitempty"`
	Language     string             `json:"language"`
	EditorType   string             `json:"editorType"`
	CodeContent  string             `json:"codeContent"`
	Participants []ParticipantView  `json:"participants"`
	KickList     []domain.KickEntry `json:"kickList"`
	ChatMessages []RoomMessageView  `json:"chatMessages"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}
