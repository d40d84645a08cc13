package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*Order
	order  map[string]int // orderID -> insertion sequence
	seq    int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]*Order), order: make(map[string]int)}
}

func (r *MemoryRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	r.seq++
	r.order[o.ID] = r.seq
	now := time.Now().UTC()
	o.Status = StatusPending
	o.CreatedAt, o.UpdatedAt = now, now
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepository) list(match func(*Order) bool) []*Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Order
	for _, o := range r.orders {
		if match(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	// Newest first by insertion, which survives two orders in one clock tick.
	sort.Slice(out, func(i, j int) bool { return r.order[out[i].ID] > r.order[out[j].ID] })
	return out
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]*Order, error) {
	return r.list(func(o *Order) bool { return o.UserID == userID }), nil
}

func (r *MemoryRepository) ListByCycle(_ context.Context, cycleID string) ([]*Order, error) {
	return r.list(func(o *Order) bool { return o.CycleID == cycleID }), nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, o *Order, from Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != from {
		return ErrInvalidTransition
	}
	stored.Status = o.Status
	stored.UpdatedAt = time.Now().UTC()
	o.UpdatedAt = stored.UpdatedAt
	return nil
}
