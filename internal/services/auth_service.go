package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/repositories"
)

var (
	ErrInvalidInput       = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("missing token")
	ErrInvalidToken       = errors.New("invalid token")
)

// AuthService registers users, issues session tokens and verifies them.
type AuthService struct {
	users      repositories.UserRepository
	tokens     *TokenIssuer
	bcryptCost int
}

func NewAuthService(users repositories.UserRepository, tokens *TokenIssuer, bcryptCost int) *AuthService {
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost}
}

// LoginResult carries an issued session token.
type LoginResult struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Register stores a new user with a bcrypt hash of password.
func (s *AuthService) Register(ctx context.Context, email, password string) (models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return models.User{}, ErrInvalidInput
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, email, string(hashed))
	if err != nil {
		observability.IncAuthAttempt("register", "failure")
		return models.User{}, err
	}
	observability.IncAuthAttempt("register", "success")
	return user, nil
}

// Login checks credentials and issues a token scoped to the user's email.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidInput
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		observability.IncAuthAttempt("login", "failure")
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		observability.IncAuthAttempt("login", "failure")
		return LoginResult{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.Email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	observability.IncAuthAttempt("login", "success")
	return LoginResult{Email: user.Email, Token: token, ExpiresAt: expiresAt}, nil
}

// Verify returns the email a token was issued for.
func (s *AuthService) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return s.tokens.Parse(token)
}
