package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-sync/internal/models"
	"chat-sync/internal/services"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Register(ctx context.Context, email, password string) (models.User, error) {
	args := m.Called(ctx, email, password)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *AuthServiceMock) Login(ctx context.Context, email, password string) (services.LoginResult, error) {
	args := m.Called(ctx, email, password)
	var result services.LoginResult
	if val := args.Get(0); val != nil {
		result = val.(services.LoginResult)
	}
	return result, args.Error(1)
}

func (m *AuthServiceMock) Verify(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

type ChatServiceMock struct {
	mock.Mock
}

func (m *ChatServiceMock) ListChatsFor(ctx context.Context, email string) ([]models.ChatSummary, error) {
	args := m.Called(ctx, email)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

func (m *ChatServiceMock) FindOrCreateChat(ctx context.Context, participants []string) (models.Chat, error) {
	args := m.Called(ctx, participants)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatServiceMock) AppendMessage(ctx context.Context, chatID, sender, text string, image *string) (models.Message, bool, error) {
	args := m.Called(ctx, chatID, sender, text, image)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Bool(1), args.Error(2)
}

func (m *ChatServiceMock) IsParticipant(ctx context.Context, chatID, email string) (bool, error) {
	args := m.Called(ctx, chatID, email)
	return args.Bool(0), args.Error(1)
}

func (m *ChatServiceMock) ChatMessages(ctx context.Context, chatID, email string) ([]models.Message, error) {
	args := m.Called(ctx, chatID, email)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}
