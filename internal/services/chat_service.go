package services

import (
	"context"
	"errors"
	"log"

	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/repositories"
)

var ErrNotParticipant = errors.New("not a chat participant")

// ChatService implements chat lists, chat creation and message persistence.
type ChatService struct {
	users    repositories.UserRepository
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
}

func NewChatService(users repositories.UserRepository, chats repositories.ChatRepository, messages repositories.MessageRepository) *ChatService {
	return &ChatService{users: users, chats: chats, messages: messages}
}

// ListChatsFor returns the chat-list summaries for email.
// It fails with repositories.ErrUserNotFound when the user is unknown.
func (s *ChatService) ListChatsFor(ctx context.Context, email string) ([]models.ChatSummary, error) {
	email = models.NormalizeEmail(email)
	if _, err := s.users.GetUserByEmail(ctx, email); err != nil {
		return nil, err
	}

	chats, err := s.chats.ListChatsForUser(ctx, email)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summaries = append(summaries, chat.Summarize(email))
	}
	return summaries, nil
}

// FindOrCreateChat returns the chat for exactly this participant set, creating it if needed.
// The returned chat carries its latest message, if any.
func (s *ChatService) FindOrCreateChat(ctx context.Context, participants []string) (models.Chat, error) {
	chat, err := s.chats.FindOrCreateChat(ctx, participants)
	if err != nil {
		return models.Chat{}, err
	}
	observability.IncChatResolved()

	msgs, err := s.messages.ListMessages(ctx, chat.ID)
	if err != nil {
		return models.Chat{}, err
	}
	if n := len(msgs); n > 0 {
		chat.Messages = msgs[n-1:]
	}

	_ = observability.PublishEvent(ctx, "chat_events.chat_created", observability.EventEnvelope{
		EventType: "chat_events",
		EventName: "chat_created",
		Payload: map[string]interface{}{
			"chat_id":      chat.ID,
			"participants": chat.Participants,
		},
	}, observability.BuildHeaders("", observability.TraceIDFromContext(ctx)))
	return chat, nil
}

// AppendMessage persists a message. The bool is false, with a nil error, when
// the chat does not exist; nothing is stored in that case.
func (s *ChatService) AppendMessage(ctx context.Context, chatID, sender, text string, image *string) (models.Message, bool, error) {
	msg, err := s.messages.AppendMessage(ctx, chatID, models.Message{
		Sender: models.NormalizeEmail(sender),
		Text:   text,
		Image:  image,
	})
	if errors.Is(err, repositories.ErrChatNotFound) {
		log.Printf("append message: chat %s not found, dropping", chatID)
		return models.Message{}, false, nil
	}
	if err != nil {
		return models.Message{}, false, err
	}
	observability.IncMessagePersisted()

	_ = observability.PublishEvent(ctx, "chat_events.message_sent", observability.EventEnvelope{
		EventType: "chat_events",
		EventName: "message_sent",
		Payload: map[string]interface{}{
			"chat_id":   msg.ChatID,
			"sender":    msg.Sender,
			"has_image": msg.Image != nil,
			"timestamp": msg.Timestamp,
		},
	}, observability.BuildHeaders("", observability.TraceIDFromContext(ctx)))
	return msg, true, nil
}

// IsParticipant reports whether email belongs to the chat.
func (s *ChatService) IsParticipant(ctx context.Context, chatID, email string) (bool, error) {
	return s.chats.IsParticipant(ctx, chatID, models.NormalizeEmail(email))
}

// ChatMessages returns the full history of a chat the caller participates in.
func (s *ChatService) ChatMessages(ctx context.Context, chatID, email string) ([]models.Message, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(models.NormalizeEmail(email)) {
		return nil, ErrNotParticipant
	}
	return s.messages.ListMessages(ctx, chatID)
}
