package gormpersistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/repository"
)

func TestChatRepository_RoomsAndHistory(t *testing.T) {
	repo := NewGormChatRepository(newTestDB(t))
	ctx := context.Background()

	room := &domain.ChatRoom{Name: "general", Icon: "💬"}
	require.NoError(t, repo.CreateRoom(ctx, room))
	assert.ErrorIs(t, repo.CreateRoom(ctx, &domain.ChatRoom{Name: "general", Icon: "x"}), repository.ErrDuplicateEntry)

	exists, err := repo.RoomExists(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.RoomExists(ctx, 999)
	require.NoError(t, err)
	assert.False(t, exists)

	base := time.Now().Add(-time.Minute)
	for i, text := range []string{"one", "two", "three"} {
		msg := &domain.Message{RoomID: room.ID, SenderID: 1, Content: text, Timestamp: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, repo.SaveMessage(ctx, msg))
	}

	recent, err := repo.RecentMessages(ctx, room.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].Content, "最新的消息排在最前")
	assert.Equal(t, "two", recent[1].Content)

	rooms, err := repo.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}
