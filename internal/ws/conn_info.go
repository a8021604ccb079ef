package ws

import "time"

// ConnInfo identifies a websocket connection for logs and lifecycle events.
type ConnInfo struct {
	ConnID      string
	Email       string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
