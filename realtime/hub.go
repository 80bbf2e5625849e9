// realtime/hub.go - Room registry and fan-out
//
// The hub tracks which connections watch which game session. Broadcast order
// matches mutation order: Room.Do runs the mutation and its emits under the
// room lock, so two concurrent state changes can never interleave their
// frames differently for different clients.
package realtime

import (
	"log"
	"sync"
)

const sendBufferSize = 256

// Sender is the transport half of a client connection. The websocket handler
// implements it with a write pump draining a buffered channel.
type Sender interface {
	// Send queues a message. It must not block; a false return means the
	// client is too slow and the hub will drop it.
	Send(msg Message) bool
	// CloseSlow tears the connection down after a failed Send.
	CloseSlow()
}

// Client is one connection subscribed to a room.
type Client struct {
	UserID   uint
	Username string
	sender   Sender
}

func NewClient(userID uint, username string, sender Sender) *Client {
	return &Client{UserID: userID, Username: username, sender: sender}
}

// Room is the set of live connections watching one game session.
type Room struct {
	SessionID uint

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// Do runs fn while holding the room lock. Messages passed to emit are
// fanned out to every client, in call order, before the next Do can run.
func (r *Room) Do(fn func(emit func(Message))) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn(func(msg Message) {
		r.broadcastLocked(msg)
	})
}

// Broadcast sends one message to every client in the room.
func (r *Room) Broadcast(msg Message) {
	r.Do(func(emit func(Message)) {
		emit(msg)
	})
}

func (r *Room) broadcastLocked(msg Message) {
	for c := range r.clients {
		if !c.sender.Send(msg) {
			// Slow consumer, cut it loose rather than stall the room.
			delete(r.clients, c)
			c.sender.CloseSlow()
			log.Printf("🔌 Dropped slow client %s from session %d", c.Username, r.SessionID)
		}
	}
}

func (r *Room) add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
}

func (r *Room) remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; !ok {
		return false
	}
	delete(r.clients, c)
	return true
}

// Size returns the number of live connections.
func (r *Room) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// HasUser reports whether any live connection belongs to the user. A player
// with two tabs open still counts as present after closing one.
func (r *Room) HasUser(userID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// Hub owns the room registry.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]*Room
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]*Room)}
}

// Join subscribes a client to the session's room, creating it on first use.
func (h *Hub) Join(sessionID uint, c *Client) *Room {
	h.mu.Lock()
	room, ok := h.rooms[sessionID]
	if !ok {
		room = &Room{SessionID: sessionID, clients: make(map[*Client]struct{})}
		h.rooms[sessionID] = room
	}
	h.mu.Unlock()

	room.add(c)
	return room
}

// Leave unsubscribes a client and garbage-collects empty rooms. It reports
// whether the client was actually subscribed.
func (h *Hub) Leave(sessionID uint, c *Client) bool {
	h.mu.Lock()
	room, ok := h.rooms[sessionID]
	h.mu.Unlock()
	if !ok {
		return false
	}

	removed := room.remove(c)

	if room.Size() == 0 {
		h.mu.Lock()
		if r, ok := h.rooms[sessionID]; ok && r.Size() == 0 {
			delete(h.rooms, sessionID)
		}
		h.mu.Unlock()
	}
	return removed
}

// Room returns the live room for a session, nil if nobody is connected.
func (h *Hub) Room(sessionID uint) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[sessionID]
}

// RoomStats is a point-in-time view for diagnostics.
type RoomStats struct {
	SessionID uint `json:"session_id"`
	Clients   int  `json:"clients"`
}

// Stats snapshots every live room.
func (h *Hub) Stats() []RoomStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := make([]RoomStats, 0, len(h.rooms))
	for id, room := range h.rooms {
		stats = append(stats, RoomStats{SessionID: id, Clients: room.Size()})
	}
	return stats
}
