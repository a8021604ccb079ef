package models

import "time"

// Message is an immutable entry appended to a chat.
type Message struct {
	ChatID    string    `db:"chat_id" bson:"-" json:"chatId,omitempty"`
	Sender    string    `db:"sender" bson:"sender" json:"sender"`
	Text      string    `db:"text" bson:"text" json:"text"`
	Image     *string   `db:"image" bson:"image,omitempty" json:"image,omitempty"`
	Timestamp time.Time `db:"created_at" bson:"timestamp" json:"timestamp"`
}
