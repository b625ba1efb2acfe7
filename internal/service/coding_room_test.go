package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/service"
)

func TestRoomService_CreateRoom(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()

	private, err := f.roomSvc.CreateRoom(ctx, instructorA, "  Graphs ", domain.VisibilityPrivate)
	require.NoError(t, err)
	assert.Equal(t, "Graphs", private.Name)
	require.NotNil(t, private.InviteToken)
	assert.Len(t, *private.InviteToken, 36, "邀请令牌是 UUID")
	assert.Equal(t, domain.DefaultLanguage, private.Language)
	assert.Equal(t, domain.DefaultEditorType, private.EditorType)
	assert.Empty(t, private.CodeContent)

	public, err := f.roomSvc.CreateRoom(ctx, instructorA, "Open", "")
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPublic, public.Visibility)
	assert.Nil(t, public.InviteToken)

	_, err = f.roomSvc.CreateRoom(ctx, instructorA, "", domain.VisibilityPublic)
	assert.ErrorIs(t, err, service.ErrInvalidEvent)
	_, err = f.roomSvc.CreateRoom(ctx, instructorA, "x", "secret")
	assert.ErrorIs(t, err, service.ErrInvalidEvent)
}

func TestRoomService_DeleteRoom(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, token := f.privateRoom(t)
	f.join(t, "connB", room.ID, userB, token)
	require.NoError(t, f.collab.UpdateCode(ctx, "connB", room.ID, userB, "unsaved"))

	assert.ErrorIs(t, f.roomSvc.DeleteRoom(ctx, room.ID, userB), service.ErrForbidden)
	require.NotNil(t, f.rooms.stored(room.ID))

	require.NoError(t, f.roomSvc.DeleteRoom(ctx, room.ID, instructorA))
	assert.Nil(t, f.rooms.stored(room.ID))
	_, ok := f.cache.Get(room.ID)
	assert.False(t, ok, "内存态随房间一起删除")
	assert.Contains(t, f.bus.closed, service.CodingTopic(room.ID))

	// 已删除房间的连接不能继续推送内容
	assert.ErrorIs(t, f.collab.UpdateCode(ctx, "connB", room.ID, userB, "late"), service.ErrForbidden)
	assert.ErrorIs(t, f.roomSvc.DeleteRoom(ctx, room.ID, instructorA), service.ErrRoomNotFound)
}

func TestRoomService_CheckJoin(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, token := f.privateRoom(t)

	_, err := f.roomSvc.CheckJoin(ctx, room.ID, userB, "bad")
	assert.ErrorIs(t, err, service.ErrInvalidInviteCode)
	_, err = f.roomSvc.CheckJoin(ctx, 99, userB, token)
	assert.ErrorIs(t, err, service.ErrRoomNotFound)

	details, err := f.roomSvc.CheckJoin(ctx, room.ID, userB, token)
	require.NoError(t, err)
	assert.Nil(t, details.InviteLink, "加入结果不包含邀请令牌")
	assert.Empty(t, f.rooms.stored(room.ID).Participants, "HTTP 加入只做校验")

	f.join(t, "connB", room.ID, userB, token)
	require.NoError(t, f.collab.Kick(ctx, room.ID, userB, instructorA))
	_, err = f.roomSvc.CheckJoin(ctx, room.ID, userB, token)
	assert.ErrorIs(t, err, service.ErrKicked)
}

func TestRoomService_DetailsAndList(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, token := f.privateRoom(t)
	f.join(t, "connB", room.ID, userB, token)
	_, err := f.collab.SendChatMessage(ctx, room.ID, userB, "hi")
	require.NoError(t, err)
	require.NoError(t, f.collab.UpdateCode(ctx, "connB", room.ID, userB, "buffered"))

	asInstructor, err := f.roomSvc.GetRoomDetails(ctx, room.ID, instructorA)
	require.NoError(t, err)
	require.NotNil(t, asInstructor.InviteLink)
	assert.Equal(t, token, *asInstructor.InviteLink)
	assert.Equal(t, "buffered", asInstructor.CodeContent, "优先返回尚未落库的内容")
	require.Len(t, asInstructor.Participants, 1)
	assert.Equal(t, "Bob", asInstructor.Participants[0].User.FirstName)
	require.Len(t, asInstructor.ChatMessages, 1)
	assert.Equal(t, "bob@example.com", asInstructor.ChatMessages[0].Sender.Email)

	asStudent, err := f.roomSvc.GetRoomDetails(ctx, room.ID, userB)
	require.NoError(t, err)
	assert.Nil(t, asStudent.InviteLink)

	rooms, err := f.roomSvc.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Nil(t, rooms[0].InviteToken)
	assert.NotNil(t, f.rooms.stored(room.ID).InviteToken, "列表脱敏不影响存储")
}

func TestRoomService_UpdateRole(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, token := f.privateRoom(t)
	f.join(t, "connB", room.ID, userB, token)

	views, err := f.roomSvc.UpdateRole(ctx, room.ID, userB, domain.RoleEditor, instructorA)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, domain.RoleEditor, views[0].Role)

	_, err = f.roomSvc.UpdateRole(ctx, room.ID, userB, domain.RoleViewer, userB)
	assert.ErrorIs(t, err, service.ErrForbidden)
}
