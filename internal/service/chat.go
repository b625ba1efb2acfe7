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
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/repository"
)

// HistoryLimit 是聊天记录接口返回的最大消息数
const HistoryLimit = 500

// ChatService 负责全局聊天室：没有成员和角色，只有订阅和消息。
type ChatService struct {
	chats repository.ChatRepository
	users repository.UserRepository
	bus   Broadcaster
	now   func() time.Time
}

// NewChatService 创建 ChatService 实例。
func NewChatService(chats repository.ChatRepository, users repository.UserRepository, bus Broadcaster) *ChatService {
	if chats == nil || users == nil || bus == nil {
		panic("all dependencies must be non-nil for ChatService")
	}
	return &ChatService{chats: chats, users: users, bus: bus, now: time.Now}
}

// ListRooms 返回所有聊天室
func (s *ChatService) ListRooms(ctx context.Context) ([]domain.ChatRoom, error) {
	rooms, err := s.chats.ListRooms(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch chat rooms")
		return nil, ErrInternalServer
	}
	return rooms, nil
}

// CreateRoom 创建聊天室，名称和图标都必须唯一。
func (s *ChatService) CreateRoom(ctx context.Context, name, icon string) (*domain.ChatRoom, error) {
	name, icon = strings.TrimSpace(name), strings.TrimSpace(icon)
	if name == "" || icon == "" {
		return nil, fmt.Errorf("%w: name and icon are required", ErrInvalidEvent)
	}
	room := &domain.ChatRoom{Name: name, Icon: icon}
	if err := s.chats.CreateRoom(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrChatRoomExists
		}
		logrus.WithError(err).WithField("name", name).Error("Failed to create chat room")
		return nil, ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"chat_room_id": room.ID, "name": name}).Info("Chat room created")
	return room, nil
}

// History 按时间倒序返回最近的消息
func (s *ChatService) History(ctx context.Context, roomID uint) ([]dto.ChatMessageView, error) {
	if err := s.ensureRoom(ctx, roomID); err != nil {
		return nil, err
	}
	messages, err := s.chats.RecentMessages(ctx, roomID, HistoryLimit)
	if err != nil {
		logrus.WithError(err).WithField("chat_room_id", roomID).Error("Failed to fetch messages")
		return nil, ErrInternalServer
	}

	ids := make([]uint, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.SenderID)
	}
	senders := resolveUsers(ctx, s.users, ids)
	views := make([]dto.ChatMessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, chatView(m, senders[m.SenderID]))
	}
	return views, nil
}

// JoinGroup 订阅聊天室主题
func (s *ChatService) JoinGroup(ctx context.Context, connID string, roomID uint) error {
	if err := s.ensureRoom(ctx, roomID); err != nil {
		return err
	}
	s.bus.Subscribe(connID, ChatTopic(roomID))
	return nil
}

// LeaveGroup 取消订阅聊天室主题
func (s *ChatService) LeaveGroup(connID string, roomID uint) {
	s.bus.Unsubscribe(connID, ChatTopic(roomID))
}

// SendMessage 保存消息并广播给聊天室的所有订阅者 (包括发送者)。
func (s *ChatService) SendMessage(ctx context.Context, roomID, senderID uint, content string) (*dto.ChatMessageView, error) {
	logCtx := logrus.WithFields(logrus.Fields{"chat_room_id": roomID, "user_id": senderID, "event": dto.EventSendMessage})

	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidEvent)
	}
	if err := s.ensureRoom(ctx, roomID); err != nil {
		return nil, err
	}

	msg := &domain.Message{RoomID: roomID, SenderID: senderID, Content: content, Timestamp: s.now()}
	if err := s.chats.SaveMessage(ctx, msg); err != nil {
		logCtx.WithError(err).Error("Failed to save chat message")
		return nil, ErrInternalServer
	}

	sender := resolveUsers(ctx, s.users, []uint{senderID})[senderID]
	view := chatView(*msg, sender)
	s.bus.Broadcast(ChatTopic(roomID), dto.EventReceiveMessage, view, "")
	logCtx.WithField("message_id", msg.ID).Debug("Chat message broadcast")
	return &view, nil
}

func (s *ChatService) ensureRoom(ctx context.Context, roomID uint) error {
	ok, err := s.chats.RoomExists(ctx, roomID)
	if err != nil {
		logrus.WithError(err).WithField("chat_room_id", roomID).Error("Failed to look up chat room")
		return ErrInternalServer
	}
	if !ok {
		return ErrChatRoomNotFound
	}
	return nil
}

func chatView(m domain.Message, sender domain.UserSummary) dto.ChatMessageView {
	return dto.ChatMessageView{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Sender:    sender,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}
