package quality

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu      sync.RWMutex
	byOrder map[string]*Score
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byOrder: make(map[string]*Score)}
}

func (r *MemoryRepository) Create(_ context.Context, s *Score) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byOrder[s.OrderID]; ok {
		return ErrAlreadyRated
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CreatedAt = time.Now().UTC()
	cp := *s
	r.byOrder[s.OrderID] = &cp
	return nil
}

func (r *MemoryRepository) Summary(_ context.Context, restaurantID string) (*Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := &Summary{RestaurantID: restaurantID}
	for _, s := range r.byOrder {
		if s.RestaurantID != restaurantID {
			continue
		}
		sum.Count++
		sum.Taste += float64(s.Taste)
		sum.Freshness += float64(s.Freshness)
		sum.Presentation += float64(s.Presentation)
		sum.Portion += float64(s.Portion)
	}
	if sum.Count > 0 {
		n := float64(sum.Count)
		sum.Taste /= n
		sum.Freshness /= n
		sum.Presentation /= n
		sum.Portion /= n
	}
	sum.Overall = overall(sum)
	return sum, nil
}

func overall(s *Summary) float64 {
	if s.Count == 0 {
		return 0
	}
	return (s.Taste + s.Freshness + s.Presentation + s.Portion) / 4
}
