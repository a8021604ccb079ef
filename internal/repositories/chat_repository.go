package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"chat-sync/internal/models"
)

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	FindOrCreateChat(ctx context.Context, participants []string) (models.Chat, error)
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	IsParticipant(ctx context.Context, chatID string, email string) (bool, error)
	ListChatsForUser(ctx context.Context, email string) ([]models.Chat, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

type participantRow struct {
	ChatID string `db:"chat_id"`
	Email  string `db:"email"`
}

// FindOrCreateChat returns the chat whose participant set equals participants,
// creating it and linking every participant in one transaction when none exists.
// The unique participant key makes concurrent calls for the same set converge on one chat.
func (r *ChatRepo) FindOrCreateChat(ctx context.Context, participants []string) (models.Chat, error) {
	participants = models.NormalizeParticipants(participants)
	if len(participants) == 0 {
		return models.Chat{}, ErrNoParticipants
	}
	key := models.ParticipantKey(participants)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO chats (id, participant_key, created_at) VALUES (?, ?, ?)
        ON CONFLICT (participant_key) DO NOTHING`), uuid.NewString(), key, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return models.Chat{}, err
	}
	var inserted int64
	if inserted, err = res.RowsAffected(); err != nil {
		return models.Chat{}, err
	}

	var chat models.Chat
	if err = tx.GetContext(ctx, &chat, tx.Rebind(`SELECT id, participant_key, created_at FROM chats WHERE participant_key=?`), key); err != nil {
		return models.Chat{}, err
	}

	if inserted == 1 {
		for i, email := range participants {
			if _, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO chat_participants (chat_id, email, position) VALUES (?, ?, ?)
                ON CONFLICT (chat_id, email) DO NOTHING`), chat.ID, email, i); err != nil {
				return models.Chat{}, err
			}
		}
		chat.Participants = participants
	} else {
		if err = tx.SelectContext(ctx, &chat.Participants, tx.Rebind(`SELECT email FROM chat_participants WHERE chat_id=? ORDER BY position`), chat.ID); err != nil {
			return models.Chat{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// GetChat fetches a chat and its participants, without messages.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, r.db.Rebind(`SELECT id, participant_key, created_at FROM chats WHERE id=?`), chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	if err != nil {
		return models.Chat{}, err
	}
	if err := r.db.SelectContext(ctx, &chat.Participants, r.db.Rebind(`SELECT email FROM chat_participants WHERE chat_id=? ORDER BY position`), chatID); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// IsParticipant checks whether email belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID string, email string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id=? AND email=?)`), chatID, email)
	return exists, err
}

// ListChatsForUser returns the chats email participates in, newest first,
// each carrying at most its latest message.
func (r *ChatRepo) ListChatsForUser(ctx context.Context, email string) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats, r.db.Rebind(`SELECT c.id, c.participant_key, c.created_at FROM chats c
        INNER JOIN chat_participants cp ON cp.chat_id = c.id
        WHERE cp.email=?
        ORDER BY c.created_at DESC, c.id`), email)
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return []models.Chat{}, nil
	}

	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}

	query, args, err := sqlx.In(`SELECT chat_id, email FROM chat_participants WHERE chat_id IN (?) ORDER BY chat_id, position`, ids)
	if err != nil {
		return nil, err
	}
	var rows []participantRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	participants := map[string][]string{}
	for _, row := range rows {
		participants[row.ChatID] = append(participants[row.ChatID], row.Email)
	}

	query, args, err = sqlx.In(`SELECT chat_id, sender, text, image, created_at FROM messages
        WHERE id IN (SELECT MAX(id) FROM messages WHERE chat_id IN (?) GROUP BY chat_id)`, ids)
	if err != nil {
		return nil, err
	}
	var last []models.Message
	if err := r.db.SelectContext(ctx, &last, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	lastByChat := map[string]models.Message{}
	for _, m := range last {
		lastByChat[m.ChatID] = m
	}

	for i := range chats {
		chats[i].Participants = participants[chats[i].ID]
		if m, ok := lastByChat[chats[i].ID]; ok {
			chats[i].Messages = []models.Message{m}
		}
	}
	return chats, nil
}
