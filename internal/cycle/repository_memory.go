package cycle

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	cycles map[string]*Cycle
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{cycles: make(map[string]*Cycle)}
}

func clone(c *Cycle) *Cycle {
	cp := *c
	cp.Unsourced = append([]string{}, c.Unsourced...)
	return &cp
}

func (r *MemoryRepository) Create(_ context.Context, c *Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.cycles {
		if existing.ZoneID == c.ZoneID && existing.Date == c.Date {
			return ErrExists
		}
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	r.cycles[c.ID] = clone(c)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Cycle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cycles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(c), nil
}

func (r *MemoryRepository) GetByZoneDate(_ context.Context, zoneID, date string) (*Cycle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cycles {
		if c.ZoneID == zoneID && c.Date == date {
			return clone(c), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListOpen(_ context.Context) ([]*Cycle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Cycle
	for _, c := range r.cycles {
		if !c.Phase.IsTerminal() {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *MemoryRepository) RecentWinners(_ context.Context, zoneID string, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var won []*Cycle
	for _, c := range r.cycles {
		if c.ZoneID == zoneID && c.WinningDishID != nil {
			won = append(won, c)
		}
	}
	sort.Slice(won, func(i, j int) bool { return won[i].Date > won[j].Date })
	var ids []string
	for i := 0; i < len(won) && i < limit; i++ {
		ids = append(ids, *won[i].WinningDishID)
	}
	return ids, nil
}

func (r *MemoryRepository) Update(_ context.Context, c *Cycle, from Phase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cycles[c.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Phase != from {
		return ErrInvalidTransition
	}
	c.UpdatedAt = time.Now().UTC()
	r.cycles[c.ID] = clone(c)
	return nil
}
