package ws

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendQueueSize  = 256
)

// Client is one websocket connection. The identity is fixed at handshake.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	info ConnInfo

	// guarded by hub.mu
	users map[string]struct{}
	chats map[string]struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendQueueSize),
		info:  info,
		users: make(map[string]struct{}),
		chats: make(map[string]struct{}),
	}
}

// Email is the authenticated identity of the connection.
func (c *Client) Email() string {
	return c.info.Email
}

// ReadPump reads events one at a time and hands them to dispatch. It returns
// when the connection fails or closes.
func (c *Client) ReadPump(ctx context.Context, dispatch func(context.Context, *Client, []byte)) (reason string) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws: read error on conn %s: %v", c.info.ConnID, err)
				publishLifecycle(ctx, "ws_error", c.info, err.Error())
			}
			return err.Error()
		}
		dispatch(ctx, c, data)
	}
}

// WritePump drains the send queue onto the socket and keeps the peer alive
// with pings. It owns every write on the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("ws: write error on conn %s: %v", c.info.ConnID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
