package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odinbook/chat-server/internal/model"
)

func TestMessageRepository_InsertAndFind(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	chats := NewChatRepository(db.DB)
	repo := NewMessageRepository(db.DB)
	ctx := context.Background()
	pair := createTestPair(t, db)

	chat, _, err := chats.Create(ctx, pair)
	require.NoError(t, err)

	msg, err := repo.Insert(ctx, model.CreateMessageParams{ChatRef: chat.ID, AuthorID: pair.A, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Text)
	assert.Equal(t, pair.A, msg.AuthorID)
	assert.Empty(t, msg.ReadBy)

	found, err := repo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, msg.ID, found.ID)

	t.Run("rejects text over the length limit", func(t *testing.T) {
		_, err := repo.Insert(ctx, model.CreateMessageParams{
			ChatRef:  chat.ID,
			AuthorID: pair.A,
			Text:     fmt.Sprintf("%065d", 0),
		})
		assert.Error(t, err)
	})
}

func TestMessageRepository_MarkRead(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	chats := NewChatRepository(db.DB)
	repo := NewMessageRepository(db.DB)
	ctx := context.Background()
	pair := createTestPair(t, db)

	chat, _, err := chats.Create(ctx, pair)
	require.NoError(t, err)
	msg, err := repo.Insert(ctx, model.CreateMessageParams{ChatRef: chat.ID, AuthorID: pair.A, Text: "read me"})
	require.NoError(t, err)
	_, err = chats.AppendMessage(ctx, chat.ID, msg.ID)
	require.NoError(t, err)

	count, err := repo.CountUnread(ctx, pair.B)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.MarkRead(ctx, msg.ID, pair.B))
		}()
	}
	wg.Wait()

	found, err := repo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{pair.B}, []string(found.ReadBy))
	assert.True(t, found.IsReadBy(pair.B))

	unread, err := repo.QueryUnread(ctx, pair.B, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, unread)

	t.Run("author never sees own message as unread", func(t *testing.T) {
		unread, err := repo.QueryUnread(ctx, pair.A, 50, 0)
		require.NoError(t, err)
		assert.Empty(t, unread)
	})
}

func TestMessageRepository_FindByChatOrder(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	chats := NewChatRepository(db.DB)
	repo := NewMessageRepository(db.DB)
	ctx := context.Background()
	pair := createTestPair(t, db)

	chat, _, err := chats.Create(ctx, pair)
	require.NoError(t, err)

	var want []string
	for i := 0; i < 3; i++ {
		msg, err := repo.Insert(ctx, model.CreateMessageParams{
			ChatRef:  chat.ID,
			AuthorID: pair.B,
			Text:     fmt.Sprintf("m%d", i),
		})
		require.NoError(t, err)
		_, err = chats.AppendMessage(ctx, chat.ID, msg.ID)
		require.NoError(t, err)
		want = append(want, msg.ID)
	}

	msgs, err := repo.FindByChat(ctx, chat.ID)
	require.NoError(t, err)
	got := make([]string, len(msgs))
	for i, m := range msgs {
		got[i] = m.ID
	}
	assert.Equal(t, want, got)
}
