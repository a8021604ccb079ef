package repositories

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("user already exists")
	ErrChatNotFound   = errors.New("chat not found")
	ErrNoParticipants = errors.New("chat needs at least one participant")
)
