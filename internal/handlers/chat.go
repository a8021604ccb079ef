package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync/internal/middleware"
	"chat-sync/internal/models"
	"chat-sync/internal/repositories"
	"chat-sync/internal/services"
)

type chatService interface {
	ListChatsFor(ctx context.Context, email string) ([]models.ChatSummary, error)
	ChatMessages(ctx context.Context, chatID, email string) ([]models.Message, error)
}

// ChatHandler serves the REST side of chats.
type ChatHandler struct {
	chats chatService
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chats chatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// ChatList returns the authenticated user's chat-list summaries.
func (h *ChatHandler) ChatList(c *gin.Context) {
	email := middleware.UserEmail(c)

	summaries, err := h.chats.ListChatsFor(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Printf("chat list for %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	c.JSON(http.StatusOK, summaries)
}

// GetChatMessages returns the full message history of a chat the caller belongs to.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID := c.Param("chat_id")
	email := middleware.UserEmail(c)

	msgs, err := h.chats.ChatMessages(c.Request.Context(), chatID, email)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrChatNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		case errors.Is(err, services.ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		default:
			log.Printf("chat messages %s: %v", chatID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
