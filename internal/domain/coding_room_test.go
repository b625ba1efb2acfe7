package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCodingRoom_CheckInvite(t *testing.T) {
	public := &CodingRoom{InstructorID: 1, Visibility: VisibilityPublic}
	assert.True(t, public.CheckInvite(2, ""), "公开房间无需令牌")

	private := &CodingRoom{InstructorID: 1, Visibility: VisibilityPrivate, InviteToken: strPtr("tok")}
	assert.True(t, private.CheckInvite(1, ""), "讲师无需令牌")
	assert.True(t, private.CheckInvite(2, "tok"))
	assert.False(t, private.CheckInvite(2, "bad"))
	assert.False(t, private.CheckInvite(2, ""))

	broken := &CodingRoom{InstructorID: 1, Visibility: VisibilityPrivate}
	assert.False(t, broken.CheckInvite(2, ""), "缺少令牌的私有房间不能被非讲师加入")
}

func TestCodingRoom_DedupeParticipants(t *testing.T) {
	room := &CodingRoom{Participants: []Participant{
		{UserID: 2, Role: RoleEditor},
		{UserID: 3, Role: RoleViewer},
		{UserID: 2, Role: RoleViewer},
		{UserID: 3, Role: RoleViewer},
	}}
	removed := room.DedupeParticipants()
	assert.Equal(t, 2, removed)
	require.Len(t, room.Participants, 2)
	assert.Equal(t, uint(2), room.Participants[0].UserID)
	assert.Equal(t, RoleEditor, room.Participants[0].Role, "保留第一次出现的记录")
	assert.Equal(t, uint(3), room.Participants[1].UserID)
}

func TestCodingRoom_RoleAndKick(t *testing.T) {
	room := &CodingRoom{
		InstructorID: 1,
		Participants: []Participant{{UserID: 2, Role: RoleEditor}},
		KickList:     []KickEntry{{UserID: 9}},
	}
	assert.Equal(t, RoleEditor, room.RoleOf(2))
	assert.Equal(t, RoleNone, room.RoleOf(3))
	assert.True(t, room.IsKicked(9))
	assert.False(t, room.IsKicked(2))
	assert.True(t, room.IsInstructor(1))
	assert.False(t, room.IsInstructor(0))
}

func TestCodingRoom_Sanitized(t *testing.T) {
	room := &CodingRoom{ID: 4, Visibility: VisibilityPrivate, InviteToken: strPtr("secret")}
	clean := room.Sanitized()
	assert.Nil(t, clean.InviteToken)
	assert.NotNil(t, room.InviteToken, "原对象不应被修改")
}
