// Package ws maintains the live websocket connections used for the
// best-effort notification stream and chat rooms. Delivery here is a
// real-time nudge only; the durable record is always the DB row.
package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client wraps one websocket connection with a buffered outbound queue.
// Writes go through the queue so a slow consumer never blocks a
// request; when the buffer is full the frame is dropped.
type Client struct {
	ID     string
	UserID uint64

	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
	closed atomic.Bool
}

// NewClient wraps conn and starts its writer goroutine.
func NewClient(userID uint64, conn *websocket.Conn) *Client {
	c := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, 32),
	}
	go c.writePump()
	return c
}

func (c *Client) writePump() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Close shuts the outbound queue and the underlying connection.
// Safe to call multiple times.
func (c *Client) Close() {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.send)
		_ = c.conn.Close()
	})
}

// enqueue delivers best-effort: closed client or full buffer → frame dropped.
func (c *Client) enqueue(msg []byte) {
	if c.closed.Load() {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// Hub is the registry of live connections, keyed by user id and,
// for chat connections, additionally by room id.
type Hub struct {
	mu    sync.RWMutex
	users map[uint64]map[*Client]struct{}
	rooms map[uint64]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		users: make(map[uint64]map[*Client]struct{}),
		rooms: make(map[uint64]map[*Client]struct{}),
	}
}

// Register adds the client to its user's connection set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[*Client]struct{})
	}
	h.users[c.UserID][c] = struct{}{}
}

// Unregister removes the client everywhere and closes it.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set := h.users[c.UserID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.UserID)
		}
	}
	for roomID, set := range h.rooms {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()
	c.Close()
}

// JoinRoom adds the client to a chat room group.
func (h *Hub) JoinRoom(roomID uint64, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
}

// PushToUser sends v to every live connection of the user.
// Fire-and-forget: an offline user simply receives nothing.
func (h *Hub) PushToUser(userID uint64, v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[userID] {
		c.enqueue(msg)
	}
}

// BroadcastRoom sends v to every connection joined to the room.
func (h *Hub) BroadcastRoom(roomID uint64, v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.enqueue(msg)
	}
}
