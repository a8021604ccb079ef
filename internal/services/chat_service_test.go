package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"chat-sync/internal/repositories"
)

func newChatFixture(t *testing.T, emails ...string) *ChatService {
	t.Helper()
	s := newStore(t)
	auth := NewAuthService(s.users, NewTokenIssuer("secret", time.Hour), bcrypt.MinCost)
	for _, email := range emails {
		_, err := auth.Register(context.Background(), email, "pw")
		require.NoError(t, err)
	}
	return NewChatService(s.users, s.chats, s.messages)
}

func TestFindOrCreateChatIsOrderIndependent(t *testing.T) {
	chats := newChatFixture(t, "a@x.com", "b@x.com")
	ctx := context.Background()

	first, err := chats.FindOrCreateChat(ctx, []string{"a@x.com", "b@x.com"})
	require.NoError(t, err)
	second, err := chats.FindOrCreateChat(ctx, []string{"b@x.com", "A@x.com"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestFindOrCreateChatListsForEveryParticipant(t *testing.T) {
	chats := newChatFixture(t, "a@x.com", "b@x.com", "c@x.com")
	ctx := context.Background()

	chat, err := chats.FindOrCreateChat(ctx, []string{"a@x.com", "b@x.com", "c@x.com"})
	require.NoError(t, err)

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		list, err := chats.ListChatsFor(ctx, email)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, chat.ID, list[0].ChatID)
		assert.Len(t, list[0].Participants, 2)
		assert.NotContains(t, list[0].Participants, email)
		assert.Equal(t, "", list[0].LastMessage)
	}
}

func TestFindOrCreateChatRejectsEmptySet(t *testing.T) {
	chats := newChatFixture(t)

	_, err := chats.FindOrCreateChat(context.Background(), nil)
	assert.ErrorIs(t, err, repositories.ErrNoParticipants)
}

func TestListChatsForUnknownUser(t *testing.T) {
	chats := newChatFixture(t)

	_, err := chats.ListChatsFor(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
}

func TestLastMessageTracksNewestAppend(t *testing.T) {
	chats := newChatFixture(t, "a@x.com", "b@x.com")
	ctx := context.Background()

	chat, err := chats.FindOrCreateChat(ctx, []string{"a@x.com", "b@x.com"})
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		_, ok, err := chats.AppendMessage(ctx, chat.ID, "a@x.com", text, nil)
		require.NoError(t, err)
		require.True(t, ok)

		list, err := chats.ListChatsFor(ctx, "b@x.com")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, text, list[0].LastMessage)
		assert.NotNil(t, list[0].LastMessageAt)
	}
}

func TestAppendMessageToMissingChatIsNoop(t *testing.T) {
	pub := recordEvents(t)
	chats := newChatFixture(t, "a@x.com")
	ctx := context.Background()

	msg, ok, err := chats.AppendMessage(ctx, "missing", "a@x.com", "hi", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, msg.Text)
	assert.Empty(t, pub.routingKeys())
}

func TestChatServicePublishesDomainEvents(t *testing.T) {
	pub := recordEvents(t)
	chats := newChatFixture(t, "a@x.com", "b@x.com")
	ctx := context.Background()

	chat, err := chats.FindOrCreateChat(ctx, []string{"a@x.com", "b@x.com"})
	require.NoError(t, err)
	_, ok, err := chats.AppendMessage(ctx, chat.ID, "a@x.com", "hi", nil)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"chat_events.chat_created", "chat_events.message_sent"}, pub.routingKeys())
}

func TestChatMessagesRequiresMembership(t *testing.T) {
	chats := newChatFixture(t, "a@x.com", "b@x.com", "c@x.com")
	ctx := context.Background()

	chat, err := chats.FindOrCreateChat(ctx, []string{"a@x.com", "b@x.com"})
	require.NoError(t, err)
	_, _, err = chats.AppendMessage(ctx, chat.ID, "a@x.com", "hi", nil)
	require.NoError(t, err)

	msgs, err := chats.ChatMessages(ctx, chat.ID, "b@x.com")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text)

	_, err = chats.ChatMessages(ctx, chat.ID, "c@x.com")
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = chats.ChatMessages(ctx, "missing", "a@x.com")
	assert.ErrorIs(t, err, repositories.ErrChatNotFound)
}
