package dish

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	dishes map[string]*Dish
	votes  map[string]*Vote // cycleID|userID
	order  map[string]int   // dishID -> insertion sequence
	seq    int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		dishes: make(map[string]*Dish),
		votes:  make(map[string]*Vote),
		order:  make(map[string]int),
	}
}

func cloneDish(d *Dish) *Dish {
	cp := *d
	cp.Ingredients = append([]Ingredient(nil), d.Ingredients...)
	return &cp
}

func (r *MemoryRepository) Create(_ context.Context, d *Dish) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	r.seq++
	r.order[d.ID] = r.seq
	d.CreatedAt = time.Now().UTC()
	r.dishes[d.ID] = cloneDish(d)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Dish, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dishes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDish(d), nil
}

func (r *MemoryRepository) ListByCycle(_ context.Context, cycleID string) ([]*Dish, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Dish
	for _, d := range r.dishes {
		if d.CycleID == cycleID {
			out = append(out, cloneDish(d))
		}
	}
	// Insertion order, which two dishes created in one clock tick still have.
	sort.Slice(out, func(i, j int) bool { return r.order[out[i].ID] < r.order[out[j].ID] })
	return out, nil
}

func (r *MemoryRepository) Names(_ context.Context, ids []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, id := range ids {
		if d, ok := r.dishes[id]; ok {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

func (r *MemoryRepository) SetImage(_ context.Context, id, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dishes[id]
	if !ok {
		return ErrNotFound
	}
	d.ImageURL = &url
	return nil
}

func (r *MemoryRepository) UpsertVote(_ context.Context, v *Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := v.CycleID + "|" + v.UserID
	now := time.Now().UTC()
	if existing, ok := r.votes[key]; ok {
		existing.DishID = v.DishID
		existing.UpdatedAt = now
		*v = *existing
		return nil
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	v.CreatedAt, v.UpdatedAt = now, now
	cp := *v
	r.votes[key] = &cp
	return nil
}

func (r *MemoryRepository) GetVote(_ context.Context, cycleID, userID string) (*Vote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.votes[cycleID+"|"+userID]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *MemoryRepository) CountVotes(_ context.Context, cycleID string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, v := range r.votes {
		if v.CycleID == cycleID {
			counts[v.DishID]++
		}
	}
	return counts, nil
}
