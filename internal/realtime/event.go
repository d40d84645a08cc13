// Package realtime pushes domain events to websocket clients grouped into
// named rooms.
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Event types.
const (
	EventCyclePhase  = "cycle.phase"
	EventVoteUpdated = "vote.updated"
	EventBidPlaced   = "bid.placed"
	EventBidSelected = "bid.selected"
	EventOrderStatus = "order.status"
	EventPOStatus    = "po.status"
)

// Event is the JSON frame sent to clients.
type Event struct {
	Type    string          `json:"type"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

// Publisher delivers an event to every subscriber of a room. Implementations
// never block on slow subscribers.
type Publisher interface {
	Publish(ctx context.Context, room, eventType string, payload any) error
}

// Room names.
func ZoneRoom(zoneID string) string   { return "zone:" + zoneID }
func CycleRoom(cycleID string) string { return "cycle:" + cycleID }
func UserRoom(userID string) string   { return "user:" + userID }

// CanJoin reports whether userID may subscribe to room. Zone and cycle rooms
// are public to authenticated users; user rooms only to their owner.
func CanJoin(userID, room string) bool {
	kind, id, ok := strings.Cut(room, ":")
	if !ok || id == "" {
		return false
	}
	switch kind {
	case "zone", "cycle":
		return true
	case "user":
		return id == userID
	default:
		return false
	}
}

func encode(room, eventType string, payload any, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: eventType, Room: room, Payload: raw, At: at.UTC()})
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, string, string, any) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, room, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Type: eventType, Room: room, Payload: raw, At: time.Now().UTC()})
	return nil
}

// Events returns a copy of what was recorded.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Of returns the recorded events of one type.
func (r *Recorder) Of(eventType string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
