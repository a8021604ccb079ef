package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync/internal/models"
	"chat-sync/internal/repositories"
	"chat-sync/internal/services"
	"chat-sync/internal/telemetry"
)

type authService interface {
	Register(ctx context.Context, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (services.LoginResult, error)
}

// AuthHandler serves registration and login.
type AuthHandler struct {
	auth  authService
	audit *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler. audit may be nil.
func NewAuthHandler(auth authService, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{auth: auth, audit: audit}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	_, err := h.auth.Register(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrUserExists):
		h.emitAudit(c, "WARN", "register", "user already exists", req.Email)
		c.JSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
		return
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	default:
		log.Printf("register: %v", err)
		h.emitAudit(c, "ERROR", "register", "internal error", req.Email)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.emitAudit(c, "INFO", "register", "user registered", req.Email)
	c.JSON(http.StatusCreated, gin.H{"message": "user registered"})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrUserNotFound):
		h.emitAudit(c, "WARN", "login", "unknown user", req.Email)
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		h.emitAudit(c, "WARN", "login", "invalid password", req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	default:
		log.Printf("login: %v", err)
		h.emitAudit(c, "ERROR", "login", "internal error", req.Email)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.emitAudit(c, "INFO", "login", "login succeeded", result.Email)
	c.JSON(http.StatusOK, gin.H{
		"message":   "login successful",
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
	})
}
