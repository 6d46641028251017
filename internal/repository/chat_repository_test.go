package repository_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/devconnect/internal/db"
	"github.com/oggyb/devconnect/internal/repository"
	"github.com/oggyb/devconnect/internal/testutil"
)

func TestEnsureConversation_Idempotent(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewSeededDB(t)
	repo := repository.NewChatRepository(dbase)

	conv, created, err := repo.EnsureConversation(ctx, 4, 3)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint64(3), conv.User1ID, "pair is stored ordered")
	assert.Equal(t, uint64(4), conv.User2ID)

	again, created, err := repo.EnsureConversation(ctx, 3, 4)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)

	var count int64
	require.NoError(t, dbase.Model(&db.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(2), count) // seeded 1↔2 plus 3↔4
}

func TestAppendMessage_UpdatesPreview(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewChatRepository(testutil.NewSeededDB(t))

	conv, err := repo.FindConversation(ctx, 2, 1)
	require.NoError(t, err)

	long := strings.Repeat("é", 150)
	msg, err := repo.AppendMessage(ctx, conv, 1, long)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), msg.ReceiverID)
	assert.False(t, msg.Read)

	conv, err = repo.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.PreviewLength, len([]rune(conv.LastMessage)))
	require.NotNil(t, conv.LastMessageAt)
}

func TestMarkReadAndHistory(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewChatRepository(testutil.NewSeededDB(t))
	conv, err := repo.FindConversation(ctx, 1, 2)
	require.NoError(t, err)

	_, err = repo.AppendMessage(ctx, conv, 1, "hi")
	require.NoError(t, err)
	_, err = repo.AppendMessage(ctx, conv, 2, "hey")
	require.NoError(t, err)
	_, err = repo.AppendMessage(ctx, conv, 1, "how are you")
	require.NoError(t, err)

	unread, err := repo.UnreadCounts(ctx, 2, []uint64{conv.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread[conv.ID])

	// user2 reads: only user1's messages flip
	n, err := repo.MarkRead(ctx, conv.ID, 2, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.MarkRead(ctx, conv.ID, 2, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	history, err := repo.History(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, "user1", history[0].Sender.Username)
	assert.True(t, history[0].Read)
	assert.False(t, history[1].Read, "own messages stay unread for the reader")

	empty, err := repo.History(ctx, 1, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListConversations(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewChatRepository(testutil.NewSeededDB(t))

	newer, _, err := repo.EnsureConversation(ctx, 1, 4)
	require.NoError(t, err)
	_, err = repo.AppendMessage(ctx, newer, 4, "ping")
	require.NoError(t, err)

	convs, err := repo.ListConversations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, newer.ID, convs[0].ID)

	byPeer, err := repo.ConversationsByPeer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, byPeer[4])
	assert.Contains(t, byPeer, uint64(2))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", repository.TruncateRunes("short", 10))
	assert.Equal(t, "héll", repository.TruncateRunes("héllo wörld", 4))
	assert.Equal(t, "日本", repository.TruncateRunes("日本語", 2))
}
