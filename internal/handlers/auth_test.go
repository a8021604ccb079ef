package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-sync/internal/mocks"
	"chat-sync/internal/models"
	"chat-sync/internal/repositories"
	"chat-sync/internal/services"
	"chat-sync/internal/telemetry"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/register", handler.Register)
	r.POST("/login", handler.Login)
	return r
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterSuccess(t *testing.T) {
	auth := new(mocks.AuthServiceMock)
	pub := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(pub, "audit.chat-sync", "chat-sync", "test")
	router := setupAuthRouter(NewAuthHandler(auth, audit))

	auth.On("Register", mock.Anything, "u1@x.com", "pw").Return(models.User{Email: "u1@x.com"}, nil).Once()
	pub.On("Publish", mock.Anything, "audit.chat-sync", mock.AnythingOfType("telemetry.AuditEnvelope"), mock.Anything).Return(nil).Once()

	rec := doJSON(router, http.MethodPost, "/register", `{"email":"u1@x.com","password":"pw"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp["message"])
	auth.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestRegisterMissingFields(t *testing.T) {
	auth := new(mocks.AuthServiceMock)
	router := setupAuthRouter(NewAuthHandler(auth, nil))

	rec := doJSON(router, http.MethodPost, "/register", `{"email":"u1@x.com"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	auth.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterExistingUser(t *testing.T) {
	auth := new(mocks.AuthServiceMock)
	router := setupAuthRouter(NewAuthHandler(auth, nil))

	auth.On("Register", mock.Anything, "u1@x.com", "pw").Return(nil, repositories.ErrUserExists).Once()

	rec := doJSON(router, http.MethodPost, "/register", `{"email":"u1@x.com","password":"pw"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	auth.AssertExpectations(t)
}

func TestRegisterStoreFailure(t *testing.T) {
	auth := new(mocks.AuthServiceMock)
	router := setupAuthRouter(NewAuthHandler(auth, nil))

	auth.On("Register", mock.Anything, "u1@x.com", "pw").Return(nil, assert.AnError).Once()

	rec := doJSON(router, http.MethodPost, "/register", `{"email":"u1@x.com","password":"pw"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestLoginSuccess(t *testing.T) {
	auth := new(mocks.AuthServiceMock)
	router := setupAuthRouter(NewAuthHandler(auth, nil))

	expires := time.Now().Add(time.Hour)
	auth.On("Login", mock.Anything, "u1@x.com", "pw").Return(services.LoginResult{Email: "u1@x.com", Token: "tok", ExpiresAt: expires}, nil).Once()

	rec := doJSON(router, http.MethodPost, "/login", `{"email":"u1@x.com","password":"pw"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "tok", resp["token"])
	assert.NotEmpty(t, resp["message"])
	auth.AssertExpectations(t)
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "unknown user", err: repositories.ErrUserNotFound, code: http.StatusNotFound},
		{name: "bad password", err: services.ErrInvalidCredentials, code: http.StatusUnauthorized},
		{name: "store failure", err: assert.AnError, code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := new(mocks.AuthServiceMock)
			router := setupAuthRouter(NewAuthHandler(auth, nil))
			auth.On("Login", mock.Anything, "u1@x.com", "pw").Return(nil, tt.err).Once()

			rec := doJSON(router, http.MethodPost, "/login", `{"email":"u1@x.com","password":"pw"}`)

			assert.Equal(t, tt.code, rec.Code)
			auth.AssertExpectations(t)
		})
	}
}
