package service

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrChatRoomNotFound     = errors.New("chat room not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: email already exists")
	ErrChatRoomExists       = errors.New("chat room with the same name or icon already exists")
	ErrForbidden            = errors.New("forbidden")
	ErrNotParticipant       = errors.New("user is not a participant of this room")
	ErrInvalidEvent         = errors.New("invalid event data")
	ErrInternalServer       = errors.New("internal server error")
)

// 以下错误都可以用 errors.Is(err, ErrForbidden) 判断
var (
	ErrInvalidInviteCode = fmt.Errorf("%w: invalid joining token", ErrForbidden)
	ErrKicked            = fmt.Errorf("%w: you are kicked out of this room", ErrForbidden)
	ErrNotInstructor     = fmt.Errorf("%w: only the room instructor can do this", ErrForbidden)
)
