package ws

import (
	"log"
	"sync"
)

// Hub is the in-memory registry of live connections, grouped by user email
// and by chat id. A client may sit in any number of groups; Unregister drops
// every membership it holds.
type Hub struct {
	clients    map[*Client]struct{}
	userGroups map[string]map[*Client]struct{}
	chatGroups map[string]map[*Client]struct{}
	mu         sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		userGroups: make(map[string]map[*Client]struct{}),
		chatGroups: make(map[string]map[*Client]struct{}),
	}
}

// Register adds a freshly connected client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister prunes the client from every group and closes its send queue.
// Calling it twice is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for email := range c.users {
		removeMember(h.userGroups, email, c)
	}
	for chatID := range c.chats {
		removeMember(h.chatGroups, chatID, c)
	}
	c.users = nil
	c.chats = nil
	close(c.send)
}

// JoinUser subscribes the client to the group for email.
func (h *Hub) JoinUser(c *Client, email string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	addMember(h.userGroups, email, c)
	c.users[email] = struct{}{}
	return true
}

// JoinChat subscribes the client to the group for chatID.
func (h *Hub) JoinChat(c *Client, chatID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	addMember(h.chatGroups, chatID, c)
	c.chats[chatID] = struct{}{}
	return true
}

// EmitToUser queues payload for every connection registered under email.
func (h *Hub) EmitToUser(email string, payload []byte) int {
	return h.emit(h.userGroups, email, payload)
}

// EmitToChat queues payload for every connection that joined chatID.
func (h *Hub) EmitToChat(chatID string, payload []byte) int {
	return h.emit(h.chatGroups, chatID, payload)
}

// Send queues payload for a single client.
func (h *Hub) Send(c *Client, payload []byte) bool {
	h.mu.RLock()
	_, ok := h.clients[c]
	delivered := ok && enqueue(c, payload)
	h.mu.RUnlock()

	if ok && !delivered {
		h.dropSlow(c)
	}
	return delivered
}

// Counts reports the number of clients, user groups and chat groups.
func (h *Hub) Counts() (clients, users, chats int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients), len(h.userGroups), len(h.chatGroups)
}

func (h *Hub) emit(groups map[string]map[*Client]struct{}, key string, payload []byte) int {
	var slow []*Client
	delivered := 0

	h.mu.RLock()
	for c := range groups[key] {
		if enqueue(c, payload) {
			delivered++
		} else {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.dropSlow(c)
	}
	return delivered
}

func (h *Hub) dropSlow(c *Client) {
	log.Printf("ws: send queue full for conn %s (%s), dropping", c.info.ConnID, c.info.Email)
	h.Unregister(c)
}

func enqueue(c *Client, payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func addMember(groups map[string]map[*Client]struct{}, key string, c *Client) {
	members, ok := groups[key]
	if !ok {
		members = make(map[*Client]struct{})
		groups[key] = members
	}
	members[c] = struct{}{}
}

func removeMember(groups map[string]map[*Client]struct{}, key string, c *Client) {
	members, ok := groups[key]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(groups, key)
	}
}
