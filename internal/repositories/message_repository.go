package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"chat-sync/internal/models"
)

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	AppendMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// AppendMessage stores msg at the end of the chat with a server-assigned timestamp.
// It returns ErrChatNotFound when the chat does not exist.
func (r *MessageRepo) AppendMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT EXISTS(SELECT 1 FROM chats WHERE id=?)`), chatID); err != nil {
		return models.Message{}, err
	}
	if !exists {
		return models.Message{}, ErrChatNotFound
	}

	msg.ChatID = chatID
	msg.Timestamp = time.Now().UTC().Truncate(time.Microsecond)
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO messages (chat_id, sender, text, image, created_at) VALUES (?, ?, ?, ?, ?)`),
		msg.ChatID, msg.Sender, msg.Text, msg.Image, msg.Timestamp)
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListMessages returns the chat's messages in append order.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, r.db.Rebind(`SELECT chat_id, sender, text, image, created_at FROM messages WHERE chat_id=? ORDER BY id ASC`), chatID)
	return msgs, err
}
