package bid

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu   sync.Mutex
	bids map[string]*Bid
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bids: make(map[string]*Bid),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func cloneBid(b *Bid) *Bid {
	cp := *b
	if b.Score != nil {
		s := *b.Score
		cp.Score = &s
	}
	if b.SelectedAt != nil {
		at := *b.SelectedAt
		cp.SelectedAt = &at
	}
	return &cp
}

func (r *MemoryRepository) Upsert(_ context.Context, b *Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, existing := range r.bids {
		if existing.CycleID == b.CycleID && existing.RestaurantID == b.RestaurantID {
			if existing.Status != StatusPending {
				return ErrBiddingClosed
			}
			existing.PricePerServing = b.PricePerServing
			existing.PrepMinutes = b.PrepMinutes
			existing.Capacity = b.Capacity
			existing.CreatedAt = now
			existing.UpdatedAt = now
			*b = *cloneBid(existing)
			return nil
		}
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	b.Status = StatusPending
	b.CreatedAt, b.UpdatedAt = now, now
	r.bids[b.ID] = cloneBid(b)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bids[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBid(b), nil
}

func (r *MemoryRepository) ListByCycle(_ context.Context, cycleID string) ([]*Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Bid
	for _, b := range r.bids {
		if b.CycleID == cycleID {
			out = append(out, cloneBid(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) SaveResults(_ context.Context, results []Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range results {
		if _, ok := r.bids[res.BidID]; !ok {
			return ErrNotFound
		}
	}
	now := r.now()
	for _, res := range results {
		b := r.bids[res.BidID]
		score := res.Score
		b.Score = &score
		b.Status = res.Status
		b.SelectedAt = &now
		b.UpdatedAt = now
	}
	return nil
}

func (r *MemoryRepository) Reserve(_ context.Context, bidID string, qty int) (*Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bids[bidID]
	if !ok {
		return nil, ErrNotFound
	}
	if b.Reserved+qty > b.Capacity {
		return nil, ErrCapacityExceeded
	}
	b.Reserved += qty
	b.UpdatedAt = r.now()
	return cloneBid(b), nil
}

func (r *MemoryRepository) Release(_ context.Context, bidID string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bids[bidID]
	if !ok {
		return ErrNotFound
	}
	b.Reserved = max(0, b.Reserved-qty)
	b.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) WinningPrices(_ context.Context, zoneID string, limit int) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var won []*Bid
	for _, b := range r.bids {
		if b.ZoneID == zoneID && b.Status == StatusWon {
			won = append(won, b)
		}
	}
	sort.Slice(won, func(i, j int) bool { return won[i].SelectedAt.After(*won[j].SelectedAt) })
	var prices []float64
	for i := 0; i < len(won) && i < limit; i++ {
		prices = append(prices, won[i].PricePerServing)
	}
	return prices, nil
}

func (r *MemoryRepository) LatestPrice(_ context.Context, restaurantID string) (float64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *Bid
	for _, b := range r.bids {
		if b.RestaurantID == restaurantID && (latest == nil || b.CreatedAt.After(latest.CreatedAt)) {
			latest = b
		}
	}
	if latest == nil {
		return 0, false, nil
	}
	return latest.PricePerServing, true, nil
}
