package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/dto"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/presence"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/service"
)

const (
	instructorA uint = 1
	userB       uint = 2
	userC       uint = 3
	outsiderD   uint = 4
)

type fixture struct {
	rooms    *memRoomRepo
	users    *memUserRepo
	cache    *presence.Cache
	bus      *recordingBus
	collab   *service.CollaborationService
	roomSvc  *service.RoomService
	autosave *service.AutosaveService
}

func newFixture(t *testing.T, policy service.CodeEditPolicy) *fixture {
	t.Helper()
	f := &fixture{
		rooms: newMemRoomRepo(),
		users: newMemUserRepo(
			domain.User{ID: instructorA, FirstName: "Ada", Email: "ada@example.com", AccountType: domain.AccountInstructor},
			domain.User{ID: userB, FirstName: "Bob", Email: "bob@example.com", Image: "bob.png"},
			domain.User{ID: userC, FirstName: "Cy", Email: "cy@example.com"},
		),
		cache: presence.NewCache(),
		bus:   newRecordingBus(),
	}
	f.collab = service.NewCollaborationService(f.rooms, f.users, f.cache, f.bus, policy)
	f.roomSvc = service.NewRoomService(f.rooms, f.users, f.collab)
	f.autosave = service.NewAutosaveService(f.rooms, f.cache, 2)
	return f
}

func (f *fixture) privateRoom(t *testing.T) (*domain.CodingRoom, string) {
	t.Helper()
	room, err := f.roomSvc.CreateRoom(context.Background(), instructorA, "R", domain.VisibilityPrivate)
	require.NoError(t, err)
	require.NotNil(t, room.InviteToken)
	return room, *room.InviteToken
}

func (f *fixture) join(t *testing.T, connID string, roomID, userID uint, token string) {
	t.Helper()
	f.bus.connect(connID, userID)
	require.NoError(t, f.collab.Join(context.Background(), connID, roomID, userID, token))
}

func decodeParticipants(t *testing.T, raw json.RawMessage) []dto.ParticipantView {
	t.Helper()
	var views []dto.ParticipantView
	require.NoError(t, json.Unmarshal(raw, &views))
	return views
}

func countParticipant(room *domain.CodingRoom, userID uint) int {
	n := 0
	for _, p := range room.Participants {
		if p.UserID == userID {
			n++
		}
	}
	return n
}

func TestCollaboration_JoinRoleChangeAndCodeRelay(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, token := f.privateRoom(t)

	f.join(t, "connA", room.ID, instructorA, "")
	f.join(t, "connB", room.ID, userB, token)
	f.join(t, "connC", room.ID, userC, token)
	// 重复加入不会产生重复记录
	f.join(t, "connB", room.ID, userB, token)

	stored := f.rooms.stored(room.ID)
	assert.Equal(t, 1, countParticipant(stored, userB))
	assert.Equal(t, 0, countParticipant(stored, instructorA), "讲师不进入参与者列表")
	assert.Equal(t, domain.RoleViewer, stored.RoleOf(userB))

	raw, ok := f.bus.lastOf("connA", dto.EventParticipantsListUpdated)
	require.True(t, ok)
	views := decodeParticipants(t, raw)
	require.Len(t, views, 2)
	assert.Equal(t, "Bob", views[0].User.FirstName, "参与者应解析为展示信息")
	assert.Equal(t, "bob.png", views[0].User.Image)

	views, err := f.collab.ChangeRole(ctx, room.ID, userB, domain.RoleEditor, instructorA)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEditor, views[0].Role)
	assert.Equal(t, domain.RoleEditor, f.rooms.stored(room.ID).RoleOf(userB))
	raw, ok = f.bus.lastOf("connC", dto.EventEditStatusChanged)
	require.True(t, ok)
	assert.Equal(t, domain.RoleEditor, decodeParticipants(t, raw)[0].Role)

	f.bus.reset()
	require.NoError(t, f.collab.UpdateCode(ctx, "connB", room.ID, userB, "print('x')"))

	for _, conn := range []string{"connA", "connC"} {
		raw, ok := f.bus.lastOf(conn, dto.EventCodeUpdated)
		require.True(t, ok, conn)
		var payload dto.CodeUpdatedPayload
		require.NoError(t, json.Unmarshal(raw, &payload))
		assert.Equal(t, "print('x')", payload.Code)
		assert.Equal(t, userB, payload.UserID)
	}
	assert.Empty(t, f.bus.received("connB"), "发送者不应收到自己的回显")
}

func TestCollaboration_JoinPrivateRoomRequiresToken(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, token := f.privateRoom(t)

	err := f.collab.Join(ctx, "connB", room.ID, userB, "")
	assert.ErrorIs(t, err, service.ErrForbidden)
	err = f.collab.Join(ctx, "connB", room.ID, userB, "wrong-"+token)
	assert.ErrorIs(t, err, service.ErrInvalidInviteCode)
	assert.False(t, f.bus.IsSubscribed("connB", service.CodingTopic(room.ID)))
	assert.Empty(t, f.rooms.stored(room.ID).Participants)

	// 讲师无需令牌
	require.NoError(t, f.collab.Join(ctx, "connA", room.ID, instructorA, ""))
	require.NoError(t, f.collab.Join(ctx, "connB", room.ID, userB, token))
	assert.True(t, f.bus.IsSubscribed("connB", service.CodingTopic(room.ID)))
}

func TestCollaboration_JoinUnknownRoom(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	err := f.collab.Join(context.Background(), "connB", 99, userB, "")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
	assert.Empty(t, f.bus.received("connB"))
}

func TestCollaboration_JoinRepairsDuplicateParticipants(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, err := f.roomSvc.CreateRoom(ctx, instructorA, "public", domain.VisibilityPublic)
	require.NoError(t, err)

	// 历史数据中存在重复记录
	seeded := f.rooms.stored(room.ID)
	seeded.Participants = []domain.Participant{
		{UserID: userC, Role: domain.RoleEditor},
		{UserID: userC, Role: domain.RoleViewer},
	}
	require.NoError(t, f.rooms.Save(ctx, seeded))

	f.join(t, "connB", room.ID, userB, "")
	stored := f.rooms.stored(room.ID)
	require.Len(t, stored.Participants, 2)
	assert.Equal(t, domain.RoleEditor, stored.RoleOf(userC), "保留第一次出现的记录")
	assert.Equal(t, 1, countParticipant(stored, userC))
}

func TestCollaboration_ConcurrentJoinsNeverDuplicate(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, err := f.roomSvc.CreateRoom(ctx, instructorA, "busy", domain.VisibilityPublic)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		for _, user := range []uint{userB, userC, 10 + uint(i)} {
			wg.Add(1)
			go func(conn string, user uint) {
				defer wg.Done()
				_ = f.collab.Join(ctx, conn, room.ID, user, "")
			}(fmt.Sprintf("conn-%d-%d", i, user), user)
		}
	}
	wg.Wait()

	stored := f.rooms.stored(room.ID)
	assert.Equal(t, 1, countParticipant(stored, userB))
	assert.Equal(t, 1, countParticipant(stored, userC))
	assert.Len(t, stored.Participants, 22, "并发加入不能互相覆盖")
}

func TestCollaboration_KickBlocksRejoinAndEvicts(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, token := f.privateRoom(t)
	f.join(t, "connA", room.ID, instructorA, "")
	f.join(t, "connB", room.ID, userB, token)
	f.join(t, "connB2", room.ID, userB, token)

	require.NoError(t, f.collab.Kick(ctx, room.ID, userB, instructorA))

	stored := f.rooms.stored(room.ID)
	require.Len(t, stored.KickList, 1)
	assert.Equal(t, userB, stored.KickList[0].UserID)
	assert.Equal(t, 0, countParticipant(stored, userB), "被踢用户同时移出参与者列表")

	// 被踢用户先收到封禁列表，随后被移出主题
	_, ok := f.bus.lastOf("connB", dto.EventKickListUpdated)
	assert.True(t, ok)
	assert.False(t, f.bus.IsSubscribed("connB", service.CodingTopic(room.ID)))
	assert.False(t, f.bus.IsSubscribed("connB2", service.CodingTopic(room.ID)))
	assert.Contains(t, f.bus.evicted, userB)
	raw, ok := f.bus.lastOf("connA", dto.EventParticipantsListUpdated)
	require.True(t, ok)
	assert.Empty(t, decodeParticipants(t, raw))

	// 即使令牌正确也无法重新加入
	err := f.collab.Join(ctx, "connB", room.ID, userB, token)
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.ErrorIs(t, err, service.ErrKicked)
	assert.Equal(t, 0, countParticipant(f.rooms.stored(room.ID), userB))

	// 重复踢人不会追加重复的封禁记录
	require.NoError(t, f.collab.Kick(ctx, room.ID, userB, instructorA))
	assert.Len(t, f.rooms.stored(room.ID).KickList, 1)
}

func TestCollaboration_InstructorOnlyActions(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, token := f.privateRoom(t)
	f.join(t, "connB", room.ID, userB, token)
	f.join(t, "connC", room.ID, userC, token)
	_, err := f.collab.ChangeRole(ctx, room.ID, userB, domain.RoleEditor, instructorA)
	require.NoError(t, err)
	f.bus.reset()

	// editor 也不能修改角色或踢人
	_, err = f.collab.ChangeRole(ctx, room.ID, userC, domain.RoleEditor, userB)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.collab.ChangeRole(ctx, room.ID, userB, domain.RoleViewer, userC)
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.ErrorIs(t, f.collab.Kick(ctx, room.ID, userC, userB), service.ErrForbidden)

	stored := f.rooms.stored(room.ID)
	assert.Equal(t, domain.RoleViewer, stored.RoleOf(userC))
	assert.Equal(t, domain.RoleEditor, stored.RoleOf(userB))
	assert.Empty(t, stored.KickList)
	assert.Empty(t, f.bus.received("connB"), "被拒绝的操作不广播")
	assert.Empty(t, f.bus.received("connC"))

	assert.ErrorIs(t, f.collab.Kick(ctx, room.ID, instructorA, instructorA), service.ErrInvalidEvent)
}

func TestCollaboration_ChangeRoleValidation(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, token := f.privateRoom(t)
	f.join(t, "connB", room.ID, userB, token)

	_, err := f.collab.ChangeRole(ctx, room.ID, outsiderD, domain.RoleEditor, instructorA)
	assert.ErrorIs(t, err, service.ErrNotParticipant)
	_, err = f.collab.ChangeRole(ctx, room.ID, userB, "owner", instructorA)
	assert.ErrorIs(t, err, service.ErrInvalidEvent)
	_, err = f.collab.ChangeRole(ctx, 99, userB, domain.RoleEditor, instructorA)
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}

func TestCollaboration_ChatOrderingAndAuthorization(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, token := f.privateRoom(t)
	f.join(t, "connA", room.ID, instructorA, "")
	f.join(t, "connB", room.ID, userB, token)
	f.join(t, "connC", room.ID, userC, token)
	f.bus.reset()

	_, err := f.collab.SendChatMessage(ctx, room.ID, outsiderD, "let me in")
	assert.ErrorIs(t, err, service.ErrNotParticipant)
	_, err = f.collab.SendChatMessage(ctx, room.ID, userB, "   ")
	assert.ErrorIs(t, err, service.ErrInvalidEvent)
	assert.Empty(t, f.bus.received("connC"))

	_, err = f.collab.SendChatMessage(ctx, room.ID, instructorA, "first")
	require.NoError(t, err)
	view, err := f.collab.SendChatMessage(ctx, room.ID, userB, "second")
	require.NoError(t, err)
	assert.Equal(t, "Bob", view.Sender.FirstName)

	for _, conn := range []string{"connA", "connB", "connC"} {
		var contents []string
		for _, d := range f.bus.received(conn) {
			require.Equal(t, dto.EventReceiveMessage, d.Event)
			var msg dto.RoomMessageView
			require.NoError(t, json.Unmarshal(d.Data, &msg))
			contents = append(contents, msg.Content)
		}
		assert.Equal(t, []string{"first", "second"}, contents, conn)
	}

	stored := f.rooms.stored(room.ID)
	require.Len(t, stored.ChatMessages, 2)
	assert.Equal(t, userB, stored.ChatMessages[1].SenderID)
}

func TestCollaboration_ChatRosterReloadsFromStore(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, err := f.roomSvc.CreateRoom(ctx, instructorA, "cold", domain.VisibilityPublic)
	require.NoError(t, err)
	seeded := f.rooms.stored(room.ID)
	seeded.Participants = []domain.Participant{{UserID: userB, Role: domain.RoleViewer}}
	require.NoError(t, f.rooms.Save(ctx, seeded))

	// 内存中还没有成员快照
	_, err = f.collab.SendChatMessage(ctx, room.ID, userB, "hello")
	require.NoError(t, err)
	roster, ok := f.cache.Roster(room.ID)
	require.True(t, ok)
	assert.Equal(t, domain.RoleViewer, roster.RoleOf(userB))
}

func TestCollaboration_ChangeLanguageAndEditorType(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, token := f.privateRoom(t)
	f.join(t, "connA", room.ID, instructorA, "")
	f.join(t, "connB", room.ID, userB, token)
	f.bus.reset()

	assert.ErrorIs(t, f.collab.ChangeLanguage(ctx, room.ID, userB, "go"), service.ErrForbidden, "viewer 不能修改语言")
	assert.ErrorIs(t, f.collab.ChangeEditorType(ctx, room.ID, outsiderD, "monaco"), service.ErrForbidden)
	assert.Empty(t, f.bus.received("connA"))
	assert.Equal(t, domain.DefaultLanguage, f.rooms.stored(room.ID).Language)

	_, err := f.collab.ChangeRole(ctx, room.ID, userB, domain.RoleEditor, instructorA)
	require.NoError(t, err)
	require.NoError(t, f.collab.ChangeLanguage(ctx, room.ID, userB, "go"))
	require.NoError(t, f.collab.ChangeEditorType(ctx, room.ID, instructorA, "monaco"))

	stored := f.rooms.stored(room.ID)
	assert.Equal(t, "go", stored.Language)
	assert.Equal(t, "monaco", stored.EditorType)

	raw, ok := f.bus.lastOf("connA", dto.EventLanguageChanged)
	require.True(t, ok)
	assert.JSONEq(t, `{"language":"go"}`, string(raw))
	raw, ok = f.bus.lastOf("connB", dto.EventEditorTypeChanged)
	require.True(t, ok)
	assert.JSONEq(t, `{"editorType":"monaco"}`, string(raw))

	assert.ErrorIs(t, f.collab.ChangeLanguage(ctx, room.ID, instructorA, " "), service.ErrInvalidEvent)
}

func TestCollaboration_LeaveRemovesParticipant(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, token := f.privateRoom(t)
	f.join(t, "connA", room.ID, instructorA, "")
	f.join(t, "connB", room.ID, userB, token)
	f.bus.reset()

	require.NoError(t, f.collab.Leave(ctx, "connB", room.ID, userB))

	assert.Equal(t, 0, countParticipant(f.rooms.stored(room.ID), userB))
	assert.False(t, f.bus.IsSubscribed("connB", service.CodingTopic(room.ID)))
	assert.Empty(t, f.bus.received("connB"), "离开者不再接收广播")
	raw, ok := f.bus.lastOf("connA", dto.EventParticipantsListUpdated)
	require.True(t, ok)
	assert.Empty(t, decodeParticipants(t, raw))

	// 不在列表中的用户离开只是空操作
	require.NoError(t, f.collab.Leave(ctx, "connX", room.ID, outsiderD))
	// 离开后可以凭令牌重新加入
	f.join(t, "connB", room.ID, userB, token)
	assert.Equal(t, 1, countParticipant(f.rooms.stored(room.ID), userB))
}

func TestCollaboration_UpdateCodeRequiresSubscription(t *testing.T) {
	f := newFixture(t, service.CodeEditOpen)
	ctx := context.Background()
	room, token := f.privateRoom(t)
	f.join(t, "connB", room.ID, userB, token)

	err := f.collab.UpdateCode(ctx, "stranger", room.ID, outsiderD, "hijack")
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, buffered := f.cache.Code(room.ID)
	assert.False(t, buffered)

	// 默认策略下 viewer 也可以推送内容
	require.NoError(t, f.collab.UpdateCode(ctx, "connB", room.ID, userB, "x = 1"))
	code, _ := f.cache.Code(room.ID)
	assert.Equal(t, "x = 1", code)
}

func TestCollaboration_UpdateCodeEditorsPolicy(t *testing.T) {
	f := newFixture(t, service.CodeEditEditors)
	ctx := context.Background()
	room, token := f.privateRoom(t)
	f.join(t, "connA", room.ID, instructorA, "")
	f.join(t, "connB", room.ID, userB, token)

	assert.ErrorIs(t, f.collab.UpdateCode(ctx, "connB", room.ID, userB, "x"), service.ErrForbidden)
	require.NoError(t, f.collab.UpdateCode(ctx, "connA", room.ID, instructorA, "y"))

	_, err := f.collab.ChangeRole(ctx, room.ID, userB, domain.RoleEditor, instructorA)
	require.NoError(t, err)
	require.NoError(t, f.collab.UpdateCode(ctx, "connB", room.ID, userB, "z"))
	code, _ := f.cache.Code(room.ID)
	assert.Equal(t, "z", code)
}

func TestParseCodeEditPolicy(t *testing.T) {
	assert.Equal(t, service.CodeEditEditors, service.ParseCodeEditPolicy(" Editors "))
	assert.Equal(t, service.CodeEditOpen, service.ParseCodeEditPolicy("open"))
	assert.Equal(t, service.CodeEditOpen, service.ParseCodeEditPolicy("whatever"))
}
