package competition

import (
	"context"
	"sync"
	"time"
)

type MemoryRepository struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
	now       func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		snapshots: make(map[string]*Snapshot),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) Upsert(_ context.Context, s *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if existing, ok := r.snapshots[s.ZoneID]; ok {
		s.CreatedAt = existing.CreatedAt
	} else {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	cp := *s
	r.snapshots[s.ZoneID] = &cp
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, zoneID string) (*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[zoneID]
	if !ok {
		return nil, ErrNoSnapshot
	}
	cp := *s
	return &cp, nil
}
