package realtime

import (
	"context"
	"sync"
	"time"

	"dotted/internal/metrics"

	"go.uber.org/zap"
)

// Hub tracks clients and their room subscriptions in this process.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	logger  *zap.Logger
	now     func() time.Time
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		logger:  logger,
		now:     time.Now,
	}
}

// Publish encodes the event and fans it out to the room.
func (h *Hub) Publish(_ context.Context, room, eventType string, payload any) error {
	frame, err := encode(room, eventType, payload, h.now())
	if err != nil {
		return err
	}
	h.Deliver(room, frame)
	return nil
}

// Deliver fans an already encoded frame out to the room. A client whose
// queue is full misses the frame.
func (h *Hub) Deliver(room string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		select {
		case c.send <- frame:
		default:
			metrics.RealtimeDropped.Inc()
			h.logger.Warn("client queue full, dropping event",
				zap.String("room", room),
				zap.String("user_id", c.userID),
			)
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	metrics.RealtimeClients.Inc()
}

// unregister removes the client from every room and closes its queue.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.removeLocked(c, room)
	}
	close(c.send)
	metrics.RealtimeClients.Dec()
}

// Join subscribes the client to room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// Leave unsubscribes the client from room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, room)
}

func (h *Hub) removeLocked(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// RoomSize returns the number of subscribers of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
