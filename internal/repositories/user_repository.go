package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"chat-sync/internal/models"
)

// UserRepository abstracts credential persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, email string, passwordHash string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts a user, failing with ErrUserExists when the email is taken.
func (r *UserRepo) CreateUser(ctx context.Context, email string, passwordHash string) (models.User, error) {
	user := models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Chats:        []string{},
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?)
        ON CONFLICT (email) DO NOTHING`), user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return models.User{}, err
	}
	if count == 0 {
		return models.User{}, ErrUserExists
	}
	return user, nil
}

// GetUserByEmail loads a user together with the ids of the chats it belongs to.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(`SELECT email, password_hash, created_at FROM users WHERE email=?`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	user.Chats = []string{}
	if err := r.db.SelectContext(ctx, &user.Chats, r.db.Rebind(`SELECT chat_id FROM chat_participants WHERE email=? ORDER BY chat_id`), email); err != nil {
		return models.User{}, err
	}
	return user, nil
}
