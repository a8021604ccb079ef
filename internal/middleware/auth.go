package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserEmailKey is the gin context key holding the authenticated email.
const UserEmailKey = "userEmail"

// TokenVerifier resolves a session token to the email it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AuthMiddleware validates the bearer token. A missing token yields 401,
// a token that fails verification yields 403.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		email, err := verifier.Verify(token)
		if err != nil {
			log.Printf("auth middleware: token rejected: %v", err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserEmailKey, email)
		c.Next()
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>",
// falling back to the token query parameter used by websocket clients.
func BearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", false
		}
		token := strings.TrimSpace(parts[1])
		return token, token != ""
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

// UserEmail returns the email set by AuthMiddleware.
func UserEmail(c *gin.Context) string {
	return c.GetString(UserEmailKey)
}
