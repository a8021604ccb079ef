package models

import (
	"encoding/json"
	"time"
)

// Websocket event names.
const (
	EventRegisterSocket  = "register_socket"
	EventJoinChat        = "join_chat"
	EventSendMessage     = "send_message"
	EventCreateChat      = "create_chat"
	EventReceiveMessage  = "receive_message"
	EventChatlistUpdated = "chatlist_updated"
	EventChatCreated     = "chat_created"
)

// Envelope frames every websocket event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data under the given event name.
func NewEnvelope(event string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

// Client to server payloads.

type RegisterSocketPayload struct {
	Email string `json:"email" validate:"required,email"`
}

type JoinChatPayload struct {
	ChatID string `json:"chatId" validate:"required"`
}

type SendMessagePayload struct {
	ChatID string  `json:"chatId" validate:"required"`
	Sender string  `json:"sender" validate:"omitempty,email"`
	Text   string  `json:"text" validate:"required_without=Image"`
	Image  *string `json:"image,omitempty" validate:"omitempty,uri"`
}

type CreateChatPayload struct {
	Participants []string `json:"participants" validate:"required,min=1,dive,required,email"`
}

// Server to client payloads.

type ReceiveMessagePayload struct {
	ChatID    string    `json:"chatId"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Image     *string   `json:"image,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReceiveMessagePayload builds the broadcast form of a persisted message.
func NewReceiveMessagePayload(msg Message) ReceiveMessagePayload {
	return ReceiveMessagePayload{
		ChatID:    msg.ChatID,
		Sender:    msg.Sender,
		Text:      msg.Text,
		Image:     msg.Image,
		Timestamp: msg.Timestamp,
	}
}
