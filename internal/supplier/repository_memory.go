package supplier

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu        sync.Mutex
	suppliers map[string]*Supplier
	offerings map[string]*Offering
	orders    map[string]*PurchaseOrder
	now       func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		suppliers: make(map[string]*Supplier),
		offerings: make(map[string]*Offering),
		orders:    make(map[string]*PurchaseOrder),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func clonePO(po *PurchaseOrder) *PurchaseOrder {
	cp := *po
	cp.Lines = append([]POLine(nil), po.Lines...)
	return &cp
}

// -------------------------------
// Suppliers
// -------------------------------

func (r *MemoryRepository) CreateSupplier(_ context.Context, s *Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CreatedAt = r.now()
	cp := *s
	r.suppliers[s.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetSupplier(_ context.Context, id string) (*Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.suppliers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]*Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Supplier
	for _, s := range r.suppliers {
		if s.OwnerID == ownerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// -------------------------------
// Offerings
// -------------------------------

func (r *MemoryRepository) UpsertOffering(_ context.Context, o *Offering) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.UpdatedAt = r.now()
	for _, existing := range r.offerings {
		if existing.SupplierID == o.SupplierID && existing.Ingredient == o.Ingredient && existing.Unit == o.Unit {
			o.ID = existing.ID
			break
		}
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	cp := *o
	r.offerings[o.ID] = &cp
	return nil
}

func (r *MemoryRepository) ListOfferings(_ context.Context, supplierID string) ([]*Offering, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Offering
	for _, o := range r.offerings {
		if o.SupplierID == supplierID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ingredient < out[j].Ingredient })
	return out, nil
}

func (r *MemoryRepository) ZoneCandidates(_ context.Context, zoneID string) ([]Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Candidate
	for _, o := range r.offerings {
		s, ok := r.suppliers[o.SupplierID]
		if !ok || s.ZoneID != zoneID || o.Available <= 0 {
			continue
		}
		cp := *o
		out = append(out, Candidate{Offering: &cp, Lat: s.Lat, Lng: s.Lng})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offering.ID < out[j].Offering.ID })
	return out, nil
}

// -------------------------------
// Purchase orders
// -------------------------------

func (r *MemoryRepository) CreatePurchaseOrders(_ context.Context, pos []*PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check everything before touching stock.
	need := make(map[string]float64)
	for _, po := range pos {
		for _, existing := range r.orders {
			if existing.CycleID == po.CycleID && existing.SupplierID == po.SupplierID {
				return ErrPOExists
			}
		}
		for _, l := range po.Lines {
			need[l.OfferingID] += l.Quantity
		}
	}
	for id, qty := range need {
		o, ok := r.offerings[id]
		if !ok {
			return ErrOfferingNotFound
		}
		if o.Available+epsilon < qty {
			return ErrOutOfStock
		}
	}

	now := r.now()
	for id, qty := range need {
		o := r.offerings[id]
		o.Available = max(0, o.Available-qty)
		o.UpdatedAt = now
	}
	for _, po := range pos {
		if po.ID == "" {
			po.ID = uuid.New().String()
		}
		po.Status = POPending
		po.CreatedAt, po.UpdatedAt = now, now
		r.orders[po.ID] = clonePO(po)
	}
	return nil
}

func (r *MemoryRepository) GetPurchaseOrder(_ context.Context, id string) (*PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	po, ok := r.orders[id]
	if !ok {
		return nil, ErrPONotFound
	}
	return clonePO(po), nil
}

func (r *MemoryRepository) list(match func(*PurchaseOrder) bool) []*PurchaseOrder {
	var out []*PurchaseOrder
	for _, po := range r.orders {
		if match(po) {
			out = append(out, clonePO(po))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *MemoryRepository) ListBySupplier(_ context.Context, supplierID string) ([]*PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(po *PurchaseOrder) bool { return po.SupplierID == supplierID }), nil
}

func (r *MemoryRepository) ListByCycle(_ context.Context, cycleID string) ([]*PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(po *PurchaseOrder) bool { return po.CycleID == cycleID }), nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, po *PurchaseOrder, from POStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[po.ID]
	if !ok {
		return ErrPONotFound
	}
	if stored.Status != from {
		return ErrInvalidTransition
	}
	now := r.now()
	stored.Status = po.Status
	stored.UpdatedAt = now
	if po.Status == POCancelled {
		for _, l := range stored.Lines {
			if o, ok := r.offerings[l.OfferingID]; ok {
				o.Available += l.Quantity
				o.UpdatedAt = now
			}
		}
	}
	po.UpdatedAt = now
	return nil
}
