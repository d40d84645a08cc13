package restaurant

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu          sync.RWMutex
	restaurants map[string]*Restaurant
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{restaurants: make(map[string]*Restaurant)}
}

func (m *MemoryRepository) Create(_ context.Context, r *Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now().UTC()
	cp := *r
	m.restaurants[r.ID] = &cp
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.restaurants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]*Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Restaurant
	for _, r := range m.restaurants {
		if r.OwnerID == ownerID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) SetImage(_ context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.restaurants[id]
	if !ok {
		return ErrNotFound
	}
	r.ImageURL = &url
	return nil
}

func (m *MemoryRepository) IsOwner(_ context.Context, restaurantID, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.restaurants[restaurantID]
	return ok && r.OwnerID == userID, nil
}
