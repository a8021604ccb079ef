package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"chat-sync/internal/repositories"
)

func newAuthService(t *testing.T, now func() time.Time) *AuthService {
	t.Helper()
	tokens := NewTokenIssuer("secret", time.Hour)
	if now != nil {
		tokens.now = now
	}
	return NewAuthService(newStore(t).users, tokens, bcrypt.MinCost)
}

func TestRegisterTwiceConflicts(t *testing.T) {
	auth := newAuthService(t, nil)
	ctx := context.Background()

	_, err := auth.Register(ctx, "u1@x.com", "pw")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "U1@X.com", "other")
	assert.ErrorIs(t, err, repositories.ErrUserExists)
}

func TestRegisterRequiresFields(t *testing.T) {
	auth := newAuthService(t, nil)

	_, err := auth.Register(context.Background(), "", "pw")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = auth.Register(context.Background(), "u1@x.com", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterStoresHashNotPassword(t *testing.T) {
	s := newStore(t)
	auth := NewAuthService(s.users, NewTokenIssuer("secret", time.Hour), bcrypt.MinCost)

	_, err := auth.Register(context.Background(), "u1@x.com", "pw")
	require.NoError(t, err)

	user, err := s.users.GetUserByEmail(context.Background(), "u1@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw")))
}

func TestLoginOutcomes(t *testing.T) {
	auth := newAuthService(t, nil)
	ctx := context.Background()
	_, err := auth.Register(ctx, "u1@x.com", "pw")
	require.NoError(t, err)

	_, err = auth.Login(ctx, "nobody@x.com", "pw")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)

	_, err = auth.Login(ctx, "u1@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	result, err := auth.Login(ctx, "u1@x.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	email, err := auth.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1@x.com", email)
}

func TestTokenExpiresAfterTTL(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	auth := newAuthService(t, func() time.Time { return now })
	ctx := context.Background()

	_, err := auth.Register(ctx, "u1@x.com", "pw")
	require.NoError(t, err)
	result, err := auth.Login(ctx, "u1@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), result.ExpiresAt)

	now = now.Add(59 * time.Minute)
	_, err = auth.Verify(result.Token)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = auth.Verify(result.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	auth := newAuthService(t, nil)

	_, err := auth.Verify("  ")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = auth.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, _, err := NewTokenIssuer("other-secret", time.Hour).Issue("u1@x.com")
	require.NoError(t, err)
	_, err = auth.Verify(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, _, err := NewTokenIssuer("secret", time.Hour).Issue("")
	require.NoError(t, err)
	_, err = auth.Verify(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
