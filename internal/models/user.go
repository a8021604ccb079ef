package models

import (
	"strings"
	"time"
)

// User is a registered account. Email is the identity.
type User struct {
	Email        string    `db:"email" bson:"_id" json:"email"`
	PasswordHash string    `db:"password_hash" bson:"password_hash" json:"-"`
	Chats        []string  `db:"-" bson:"chats" json:"chats"`
	CreatedAt    time.Time `db:"created_at" bson:"created_at" json:"created_at"`
}

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
