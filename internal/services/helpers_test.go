package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-sync/internal/db"
	"chat-sync/internal/observability"
	"chat-sync/internal/repositories"
)

type store struct {
	users    *repositories.UserRepo
	chats    *repositories.ChatRepo
	messages *repositories.MessageRepo
}

func newStore(t *testing.T) store {
	t.Helper()
	database, err := db.Connect("sqlite3", filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return store{
		users:    repositories.NewUserRepo(database),
		chats:    repositories.NewChatRepo(database),
		messages: repositories.NewMessageRepo(database),
	}
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func recordEvents(t *testing.T) *recordingPublisher {
	t.Helper()
	pub := &recordingPublisher{}
	observability.SetPublisher(pub)
	t.Cleanup(func() { observability.SetPublisher(nil) })
	return pub
}
