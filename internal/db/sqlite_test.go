package db_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflyhigh/pinnedthoughts/internal/db"
	"github.com/rflyhigh/pinnedthoughts/internal/models"
)

func newTestDB(t *testing.T) *db.Database {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestCreateAndGetChat(t *testing.T) {
	database := newTestDB(t)
	now := time.Now().UTC()

	created, err := database.CreateChat("chat-1", "First chat", "llama3-8b-8192", now)
	require.NoError(t, err)
	assert.Equal(t, "chat-1", created.ID)

	got, err := database.GetChat("chat-1")
	require.NoError(t, err)
	assert.Equal(t, "First chat", got.Title)
	assert.Equal(t, "llama3-8b-8192", got.Model)
	assert.True(t, got.UpdatedAt.Equal(got.CreatedAt))
}

func TestCreateChatConflict(t *testing.T) {
	database := newTestDB(t)
	now := time.Now().UTC()

	_, err := database.CreateChat("chat-1", "First", "m", now)
	require.NoError(t, err)

	_, err = database.CreateChat("chat-1", "Second", "m", now)
	assert.ErrorIs(t, err, db.ErrConflict)
}

func TestGetChatNotFound(t *testing.T) {
	database := newTestDB(t)

	_, err := database.GetChat("missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestTouchChat(t *testing.T) {
	database := newTestDB(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := database.CreateChat("chat-1", "t", "m", created)
	require.NoError(t, err)

	later := created.Add(time.Hour)
	require.NoError(t, database.TouchChat("chat-1", later))

	got, err := database.GetChat("chat-1")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(later))
	assert.True(t, got.CreatedAt.Equal(created))

	assert.ErrorIs(t, database.TouchChat("missing", later), db.ErrNotFound)
}

func TestRenameChat(t *testing.T) {
	database := newTestDB(t)

	_, err := database.CreateChat("chat-1", "Old title", "m", time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, database.RenameChat("chat-1", "New title"))

	got, err := database.GetChat("chat-1")
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)

	assert.ErrorIs(t, database.RenameChat("missing", "x"), db.ErrNotFound)
}

func TestDeleteChatCascades(t *testing.T) {
	database := newTestDB(t)
	now := time.Now().UTC()

	_, err := database.CreateChat("chat-1", "t", "m", now)
	require.NoError(t, err)
	_, err = database.AppendMessage("chat-1", models.RoleUser, "hi", now)
	require.NoError(t, err)
	_, err = database.AppendMessage("chat-1", models.RoleAssistant, "hello", now.Add(time.Second))
	require.NoError(t, err)

	require.NoError(t, database.DeleteChat("chat-1"))

	_, err = database.GetChat("chat-1")
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = database.ListMessages("chat-1")
	assert.ErrorIs(t, err, db.ErrNotFound)

	assert.ErrorIs(t, database.DeleteChat("chat-1"), db.ErrNotFound)
}

func TestListChatsOrderAndCounts(t *testing.T) {
	database := newTestDB(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := database.CreateChat("older", "older", "m", base)
	require.NoError(t, err)
	_, err = database.CreateChat("newer", "newer", "m", base.Add(time.Minute))
	require.NoError(t, err)

	_, err = database.AppendMessage("older", models.RoleUser, "hi", base)
	require.NoError(t, err)
	_, err = database.AppendMessage("older", models.RoleAssistant, "hello", base.Add(time.Second))
	require.NoError(t, err)

	chats, err := database.ListChats()
	require.NoError(t, err)
	require.Len(t, chats, 2)

	assert.Equal(t, "newer", chats[0].ID)
	assert.Equal(t, 0, chats[0].MessageCount)
	assert.Equal(t, "older", chats[1].ID)
	assert.Equal(t, 2, chats[1].MessageCount)

	// Touching the older chat moves it to the front.
	require.NoError(t, database.TouchChat("older", base.Add(time.Hour)))
	chats, err = database.ListChats()
	require.NoError(t, err)
	assert.Equal(t, "older", chats[0].ID)
}

func TestAppendMessageUnknownChat(t *testing.T) {
	database := newTestDB(t)

	_, err := database.AppendMessage("missing", models.RoleUser, "hi", time.Now().UTC())
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestListMessagesOrdered(t *testing.T) {
	database := newTestDB(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := database.CreateChat("chat-1", "t", "m", base)
	require.NoError(t, err)

	// Insert out of chronological order; reads must come back sorted.
	_, err = database.AppendMessage("chat-1", models.RoleAssistant, "second", base.Add(2*time.Second))
	require.NoError(t, err)
	_, err = database.AppendMessage("chat-1", models.RoleUser, "first", base.Add(time.Second))
	require.NoError(t, err)

	messages, err := database.ListMessages("chat-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].Timestamp.Before(messages[i-1].Timestamp))
	}
}
