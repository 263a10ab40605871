package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/message-bus/internal/models"
	"github.com/hongminglow/message-bus/internal/storage"
)

func seedUser(t *testing.T, s *Store, username string) models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), models.User{Username: username, IsActive: true})
	require.NoError(t, err)
	return user
}

func TestUserLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	alice := seedUser(t, s, "alice")
	assert.Equal(t, int64(1), alice.ID)

	_, err := s.CreateUser(ctx, models.User{Username: "alice"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	byID, err := s.FindUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byName, err := s.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	_, err = s.FindUserByID(ctx, 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.FindUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateMessage(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice")

	msg, err := s.CreateMessage(ctx, alice.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.ID)
	assert.Equal(t, alice.ID, msg.UserID)
	assert.Equal(t, "hello", msg.Text)

	_, err = s.CreateMessage(ctx, 99, "orphan")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.CreateMessage(ctx, alice.ID, strings.Repeat("x", models.MaxMessageLength+1))
	assert.ErrorIs(t, err, storage.ErrTextTooLong)
}

func TestUpdateMessagePartial(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	msg, err := s.CreateMessage(ctx, alice.ID, "original")
	require.NoError(t, err)

	text := "changed"
	updated, err := s.UpdateMessage(ctx, msg.ID, models.MessagePatch{Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "changed", updated.Text)
	assert.Equal(t, alice.ID, updated.UserID, "owner must survive a text-only patch")

	updated, err = s.UpdateMessage(ctx, msg.ID, models.MessagePatch{UserID: &bob.ID})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, updated.UserID)
	assert.Equal(t, "changed", updated.Text, "text must survive an owner-only patch")

	_, err = s.UpdateMessage(ctx, 99, models.MessagePatch{Text: &text})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	missing := int64(99)
	_, err = s.UpdateMessage(ctx, msg.ID, models.MessagePatch{UserID: &missing})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	long := strings.Repeat("x", models.MaxMessageLength+1)
	_, err = s.UpdateMessage(ctx, msg.ID, models.MessagePatch{Text: &long})
	assert.ErrorIs(t, err, storage.ErrTextTooLong)
}

func TestDeleteMessage(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice")

	msg, err := s.CreateMessage(ctx, alice.ID, "ephemeral")
	require.NoError(t, err)

	require.NoError(t, s.DeleteMessage(ctx, msg.ID))
	assert.ErrorIs(t, s.DeleteMessage(ctx, msg.ID), storage.ErrNotFound)

	_, err = s.GetMessage(ctx, msg.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListMessagesByOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	first, err := s.CreateMessage(ctx, alice.ID, "first")
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, bob.ID, "for bob")
	require.NoError(t, err)
	second, err := s.CreateMessage(ctx, alice.ID, "second")
	require.NoError(t, err)

	msgs, err := s.ListMessagesByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, second.ID, msgs[1].ID)

	empty, err := s.ListMessagesByOwner(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
