package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"chat-sync/internal/middleware"
	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/repositories"
)

type chatService interface {
	FindOrCreateChat(ctx context.Context, participants []string) (models.Chat, error)
	AppendMessage(ctx context.Context, chatID, sender, text string, image *string) (models.Message, bool, error)
	IsParticipant(ctx context.Context, chatID, email string) (bool, error)
	ListChatsFor(ctx context.Context, email string) ([]models.ChatSummary, error)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var tracer = otel.Tracer("chat-sync/ws")

// Handler accepts websocket connections and runs the chat event protocol on them.
type Handler struct {
	hub               *Hub
	chats             chatService
	verifier          middleware.TokenVerifier
	enforceMembership bool
	validate          *validator.Validate
}

// NewHandler constructs a Handler. With enforceMembership set, join_chat and
// send_message are dropped for connections whose identity is not a participant.
func NewHandler(hub *Hub, chats chatService, verifier middleware.TokenVerifier, enforceMembership bool) *Handler {
	return &Handler{
		hub:               hub,
		chats:             chats,
		verifier:          verifier,
		enforceMembership: enforceMembership,
		validate:          validator.New(),
	}
}

// Handle authenticates the handshake, upgrades the connection and serves it
// until it closes.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ws.handshake")

	token, ok := middleware.BearerToken(c.Request)
	if !ok {
		span.End()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
		return
	}
	email, err := h.verifier.Verify(token)
	if err != nil {
		span.End()
		log.Printf("ws: handshake rejected: %v", err)
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.End()
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		Email:       models.NormalizeEmail(email),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	span.SetAttributes(attribute.String("ws.conn_id", info.ConnID))
	span.End()

	// The request context ends with the handler; the connection outlives it.
	connCtx := context.WithoutCancel(ctx)

	client := newClient(h.hub, conn, info)
	h.hub.Register(client)
	observability.IncWSActive()
	publishLifecycle(connCtx, "ws_connect", info, "")

	go client.WritePump()
	reason := client.ReadPump(connCtx, h.dispatch)

	observability.DecWSActive()
	publishLifecycle(connCtx, "ws_disconnect", info, reason)
}

func (h *Handler) dispatch(ctx context.Context, c *Client, data []byte) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("ws: malformed frame from %s: %v", c.Email(), err)
		return
	}

	ctx, span := tracer.Start(ctx, "ws.event")
	defer span.End()
	span.SetAttributes(
		attribute.String("ws.event", env.Event),
		attribute.String("ws.conn_id", c.info.ConnID),
	)

	switch env.Event {
	case models.EventRegisterSocket:
		var payload models.RegisterSocketPayload
		if h.decode(c, env, &payload) {
			h.registerSocket(c, payload)
		}
	case models.EventJoinChat:
		var payload models.JoinChatPayload
		if h.decode(c, env, &payload) {
			h.joinChat(ctx, c, payload)
		}
	case models.EventSendMessage:
		var payload models.SendMessagePayload
		if h.decode(c, env, &payload) {
			h.sendMessage(ctx, c, payload)
		}
	case models.EventCreateChat:
		var payload models.CreateChatPayload
		if h.decode(c, env, &payload) {
			h.createChat(ctx, c, payload)
		}
	default:
		log.Printf("ws: unknown event %q from %s", env.Event, c.Email())
		observability.IncWSEvent("unknown")
		return
	}
	observability.IncWSEvent(env.Event)
}

func (h *Handler) decode(c *Client, env models.Envelope, dst any) bool {
	if len(env.Data) == 0 {
		log.Printf("ws: %s from %s without data", env.Event, c.Email())
		return false
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		log.Printf("ws: bad %s payload from %s: %v", env.Event, c.Email(), err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		log.Printf("ws: invalid %s payload from %s: %v", env.Event, c.Email(), err)
		return false
	}
	return true
}

func (h *Handler) registerSocket(c *Client, payload models.RegisterSocketPayload) {
	email := models.NormalizeEmail(payload.Email)
	if email != c.Email() {
		log.Printf("ws: register_socket for %s on a connection of %s, ignoring", email, c.Email())
		return
	}
	h.hub.JoinUser(c, email)
}

func (h *Handler) joinChat(ctx context.Context, c *Client, payload models.JoinChatPayload) {
	if !h.allowed(ctx, c, payload.ChatID) {
		return
	}
	h.hub.JoinChat(c, payload.ChatID)
}

func (h *Handler) sendMessage(ctx context.Context, c *Client, payload models.SendMessagePayload) {
	sender := models.NormalizeEmail(payload.Sender)
	if sender == "" {
		sender = c.Email()
	}
	if sender != c.Email() {
		log.Printf("ws: send_message as %s on a connection of %s, ignoring", sender, c.Email())
		return
	}
	if !h.allowed(ctx, c, payload.ChatID) {
		return
	}

	msg, ok, err := h.chats.AppendMessage(ctx, payload.ChatID, sender, payload.Text, payload.Image)
	if err != nil {
		log.Printf("ws: append message to %s: %v", payload.ChatID, err)
		return
	}
	if !ok {
		return
	}

	frame, err := encodeEvent(models.EventReceiveMessage, models.NewReceiveMessagePayload(msg))
	if err != nil {
		log.Printf("ws: encode receive_message: %v", err)
		return
	}
	h.hub.EmitToChat(payload.ChatID, frame)
}

func (h *Handler) createChat(ctx context.Context, c *Client, payload models.CreateChatPayload) {
	chat, err := h.chats.FindOrCreateChat(ctx, payload.Participants)
	if err != nil {
		log.Printf("ws: create chat for %s: %v", c.Email(), err)
		return
	}

	for _, participant := range chat.Participants {
		summaries, err := h.chats.ListChatsFor(ctx, participant)
		if errors.Is(err, repositories.ErrUserNotFound) {
			continue
		}
		if err != nil {
			log.Printf("ws: chat list for %s: %v", participant, err)
			continue
		}
		frame, err := encodeEvent(models.EventChatlistUpdated, summaries)
		if err != nil {
			log.Printf("ws: encode chatlist_updated: %v", err)
			continue
		}
		h.hub.EmitToUser(participant, frame)
	}

	frame, err := encodeEvent(models.EventChatCreated, chat.Summarize(c.Email()))
	if err != nil {
		log.Printf("ws: encode chat_created: %v", err)
		return
	}
	h.hub.Send(c, frame)
}

func (h *Handler) allowed(ctx context.Context, c *Client, chatID string) bool {
	if !h.enforceMembership {
		return true
	}
	member, err := h.chats.IsParticipant(ctx, chatID, c.Email())
	if err != nil {
		log.Printf("ws: membership check %s/%s: %v", chatID, c.Email(), err)
		return false
	}
	if !member {
		log.Printf("ws: %s is not a participant of %s, ignoring", c.Email(), chatID)
	}
	return member
}

func encodeEvent(event string, data any) ([]byte, error) {
	env, err := models.NewEnvelope(event, data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}
