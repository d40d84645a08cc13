package zone

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu      sync.RWMutex
	zones   map[string]*Zone
	members map[string]*Membership // by user id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		zones:   make(map[string]*Zone),
		members: make(map[string]*Membership),
	}
}

func (r *MemoryRepository) Create(_ context.Context, z *Zone) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.zones {
		if existing.Slug == z.Slug {
			return ErrSlugTaken
		}
	}
	if z.ID == "" {
		z.ID = uuid.New().String()
	}
	z.CreatedAt = time.Now().UTC()
	cp := *z
	r.zones[z.ID] = &cp
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.zones[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *z
	return &cp, nil
}

func (r *MemoryRepository) List(_ context.Context, activeOnly bool) ([]*Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Zone
	for _, z := range r.zones {
		if activeOnly && !z.Active {
			continue
		}
		cp := *z
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) SetMembership(_ context.Context, m *Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	cp := *m
	r.members[m.UserID] = &cp
	return nil
}

func (r *MemoryRepository) DeleteMembership(_ context.Context, userID, zoneID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[userID]; ok && m.ZoneID == zoneID {
		delete(r.members, userID)
	}
	return nil
}

func (r *MemoryRepository) GetMembership(_ context.Context, userID string) (*Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[userID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepository) CountMembers(_ context.Context, zoneID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, m := range r.members {
		if m.ZoneID == zoneID {
			n++
		}
	}
	return n, nil
}
