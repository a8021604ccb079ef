package ws

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chat-sync/internal/observability"
)

const wsRoutingKey = "ws_events.connections"

func newConnID() string {
	return uuid.NewString()
}

func publishLifecycle(ctx context.Context, event string, info ConnInfo, reason string) {
	observability.IncWSEvent(event)
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"email": info.Email,
				"ip":    info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
