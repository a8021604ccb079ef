package models

import (
	"sort"
	"strings"
	"time"
)

// Chat is a conversation between a fixed set of participants.
type Chat struct {
	ID             string    `db:"id" json:"chatId"`
	Participants   []string  `db:"-" json:"participants"`
	ParticipantKey string    `db:"participant_key" json:"-"`
	Messages       []Message `db:"-" json:"messages,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// LastMessage returns the most recently appended message, if any.
func (c Chat) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// HasParticipant reports whether email belongs to the chat.
func (c Chat) HasParticipant(email string) bool {
	for _, p := range c.Participants {
		if p == email {
			return true
		}
	}
	return false
}

// ChatSummary is the per-user chat list projection.
type ChatSummary struct {
	ChatID        string     `json:"chatId"`
	Participants  []string   `json:"participants"`
	LastMessage   string     `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
}

// Summarize projects the chat for viewer: other participants and the latest message text.
func (c Chat) Summarize(viewer string) ChatSummary {
	others := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != viewer {
			others = append(others, p)
		}
	}
	summary := ChatSummary{ChatID: c.ID, Participants: others}
	if last, ok := c.LastMessage(); ok {
		summary.LastMessage = last.Text
		at := last.Timestamp
		summary.LastMessageAt = &at
	}
	return summary
}

// NormalizeParticipants normalizes emails and drops blanks and duplicates, keeping caller order.
func NormalizeParticipants(participants []string) []string {
	seen := make(map[string]struct{}, len(participants))
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		email := NormalizeEmail(p)
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

// ParticipantKey is the order-independent identity of a participant set.
// Two chats have the same key iff their participant sets are equal.
func ParticipantKey(participants []string) string {
	sorted := append([]string(nil), NormalizeParticipants(participants)...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\n")
}
