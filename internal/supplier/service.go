package supplier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"dotted/internal/bid"
	"dotted/internal/config"
	"dotted/internal/core"
	"dotted/internal/cycle"
	"dotted/internal/dish"
	"dotted/internal/metrics"
	"dotted/internal/realtime"
	"dotted/internal/zone"

	"go.uber.org/zap"
)

type Zones interface {
	Get(ctx context.Context, id string) (*zone.Zone, error)
}

type Cycles interface {
	Get(ctx context.Context, id string) (*cycle.Cycle, error)
}

type Dishes interface {
	Winner(ctx context.Context, c *cycle.Cycle) (*dish.Dish, error)
}

type Bids interface {
	Winning(ctx context.Context, c *cycle.Cycle) (*bid.Bid, error)
}

type Service struct {
	repo        Repository
	zones       Zones
	cycles      Cycles
	dishes      Dishes
	bids        Bids
	restaurants core.RestaurantReader
	publisher   realtime.Publisher
	logger      *zap.Logger
	now         func() time.Time

	optimization atomic.Pointer[config.OptimizationConfig]
}

func NewService(
	repo Repository,
	zones Zones,
	cycles Cycles,
	dishes Dishes,
	bids Bids,
	restaurants core.RestaurantReader,
	publisher realtime.Publisher,
	opt config.OptimizationConfig,
	logger *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = realtime.Discard
	}
	s := &Service{
		repo:        repo,
		zones:       zones,
		cycles:      cycles,
		dishes:      dishes,
		bids:        bids,
		restaurants: restaurants,
		publisher:   publisher,
		logger:      logger.Named("supplier"),
		now:         time.Now,
	}
	s.SetOptimization(opt)
	return s
}

// SetOptimization replaces the matching weights used by the next sourcing.
func (s *Service) SetOptimization(opt config.OptimizationConfig) {
	s.optimization.Store(&opt)
}

func (s *Service) Optimization() config.OptimizationConfig {
	return *s.optimization.Load()
}

// --------------------------------------------------
// Suppliers
// --------------------------------------------------

type CreateInput struct {
	ZoneID string
	Name   string
	Lat    float64
	Lng    float64
}

func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*Supplier, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name required", core.ErrInvalid)
	}
	z, err := s.zones.Get(ctx, in.ZoneID)
	if err != nil {
		return nil, err
	}
	if !z.Active {
		return nil, zone.ErrInactive
	}

	sup := &Supplier{
		OwnerID: ownerID,
		ZoneID:  z.ID,
		Name:    in.Name,
		Lat:     in.Lat,
		Lng:     in.Lng,
	}
	if err := s.repo.CreateSupplier(ctx, sup); err != nil {
		return nil, err
	}
	return sup, nil
}

func (s *Service) ListMine(ctx context.Context, ownerID string) ([]*Supplier, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *Service) Get(ctx context.Context, id string) (*Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

func (s *Service) owned(ctx context.Context, supplierID, userID string) (*Supplier, error) {
	sup, err := s.repo.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if sup.OwnerID != userID {
		return nil, ErrNotOwner
	}
	return sup, nil
}

// --------------------------------------------------
// Offerings
// --------------------------------------------------

type OfferingInput struct {
	Ingredient  string
	Unit        string
	UnitCost    float64 // per Unit as given
	Available   float64 // in Unit as given
	HarvestedAt time.Time
}

// UpsertOffering stores stock in canonical units. A second call for the same
// ingredient and unit replaces the first.
func (s *Service) UpsertOffering(ctx context.Context, supplierID, userID string, in OfferingInput) (*Offering, error) {
	sup, err := s.owned(ctx, supplierID, userID)
	if err != nil {
		return nil, err
	}

	name := core.NormalizeIngredient(in.Ingredient)
	if name == "" {
		return nil, fmt.Errorf("%w: ingredient required", core.ErrInvalid)
	}
	factor, unit, ok := core.NormalizeQuantity(1, in.Unit)
	if !ok {
		return nil, fmt.Errorf("%w: unknown unit %q", core.ErrInvalid, in.Unit)
	}
	if in.UnitCost <= 0 {
		return nil, fmt.Errorf("%w: unit cost must be positive", core.ErrInvalid)
	}
	if in.Available < 0 {
		return nil, fmt.Errorf("%w: available must not be negative", core.ErrInvalid)
	}
	now := s.now().UTC()
	harvested := in.HarvestedAt
	if harvested.IsZero() {
		harvested = now
	}
	if harvested.After(now.Add(time.Minute)) {
		return nil, fmt.Errorf("%w: harvest time is in the future", core.ErrInvalid)
	}

	o := &Offering{
		SupplierID:  sup.ID,
		Ingredient:  name,
		Unit:        unit,
		UnitCost:    in.UnitCost / factor,
		Available:   in.Available * factor,
		HarvestedAt: harvested.UTC(),
	}
	if err := s.repo.UpsertOffering(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) ListOfferings(ctx context.Context, supplierID string) ([]*Offering, error) {
	if _, err := s.repo.GetSupplier(ctx, supplierID); err != nil {
		return nil, err
	}
	return s.repo.ListOfferings(ctx, supplierID)
}

// --------------------------------------------------
// Sourcing
// --------------------------------------------------

// Requirements scales the dish recipe to servings, merging repeated
// ingredients.
func Requirements(d *dish.Dish, servings int) []Requirement {
	var reqs []Requirement
	index := make(map[string]int)
	for _, ing := range d.Ingredients {
		name := core.NormalizeIngredient(ing.Name)
		key := name + "|" + ing.Unit
		qty := ing.Quantity * float64(servings)
		if i, ok := index[key]; ok {
			reqs[i].Quantity += qty
			continue
		}
		index[key] = len(reqs)
		reqs = append(reqs, Requirement{Ingredient: name, Quantity: qty, Unit: ing.Unit})
	}
	return reqs
}

// Plan matches the cycle's requirements against the zone's stock without
// reserving anything.
func (s *Service) Plan(ctx context.Context, c *cycle.Cycle) (*MatchResult, *core.RestaurantInfo, error) {
	d, err := s.dishes.Winner(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.bids.Winning(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	r, err := s.restaurants.RestaurantInfo(ctx, b.RestaurantID)
	if err != nil {
		return nil, nil, err
	}
	candidates, err := s.repo.ZoneCandidates(ctx, c.ZoneID)
	if err != nil {
		return nil, nil, err
	}

	res := Match(Requirements(d, b.Capacity), candidates, Location{Lat: r.Lat, Lng: r.Lng}, s.now(), s.Optimization())
	return &res, r, nil
}

// Preview is Plan for a cycle id.
func (s *Service) Preview(ctx context.Context, cycleID string) (*MatchResult, error) {
	c, err := s.cycles.Get(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	res, _, err := s.Plan(ctx, c)
	return res, err
}

// SourceCycle raises one purchase order per matched supplier and returns the
// ingredients nobody could cover. It implements cycle.Sourcer.
func (s *Service) SourceCycle(ctx context.Context, c *cycle.Cycle) ([]string, error) {
	existing, err := s.repo.ListByCycle(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return s.uncovered(ctx, c, existing)
	}

	res, r, err := s.Plan(ctx, c)
	if err != nil {
		return nil, err
	}

	bySupplier := make(map[string]*PurchaseOrder)
	var pos []*PurchaseOrder
	for _, a := range res.Allocations {
		po, ok := bySupplier[a.SupplierID]
		if !ok {
			po = &PurchaseOrder{CycleID: c.ID, SupplierID: a.SupplierID, RestaurantID: r.ID}
			bySupplier[a.SupplierID] = po
			pos = append(pos, po)
		}
		po.Lines = append(po.Lines, POLine{
			OfferingID: a.OfferingID,
			Ingredient: a.Ingredient,
			Quantity:   a.Quantity,
			Unit:       a.Unit,
			UnitCost:   a.UnitCost,
		})
		po.Total += a.Quantity * a.UnitCost
	}

	if len(pos) > 0 {
		if err := s.repo.CreatePurchaseOrders(ctx, pos); err != nil {
			return nil, err
		}
		metrics.PurchaseOrders.WithLabelValues(string(POPending)).Add(float64(len(pos)))
	}

	unsourced := make([]string, 0, len(res.Shortfalls))
	for _, sf := range res.Shortfalls {
		unsourced = append(unsourced, sf.Ingredient)
	}
	sort.Strings(unsourced)

	s.logger.Info("cycle sourced",
		zap.String("cycle_id", c.ID),
		zap.Int("purchase_orders", len(pos)),
		zap.Strings("unsourced", unsourced),
	)
	for _, po := range pos {
		s.announce(ctx, po, r.OwnerID)
	}
	return unsourced, nil
}

// uncovered rebuilds the shortfall of an already sourced cycle from its live
// purchase orders, so a retried transition reports the same ingredients.
func (s *Service) uncovered(ctx context.Context, c *cycle.Cycle, pos []*PurchaseOrder) ([]string, error) {
	d, err := s.dishes.Winner(ctx, c)
	if err != nil {
		return nil, err
	}
	b, err := s.bids.Winning(ctx, c)
	if err != nil {
		return nil, err
	}

	covered := make(map[string]float64)
	for _, po := range pos {
		if po.Status == POCancelled {
			continue
		}
		for _, l := range po.Lines {
			covered[core.NormalizeIngredient(l.Ingredient)+"|"+l.Unit] += l.Quantity
		}
	}

	unsourced := []string{}
	for _, req := range Requirements(d, b.Capacity) {
		if req.Quantity-covered[req.Ingredient+"|"+req.Unit] > epsilon {
			unsourced = append(unsourced, req.Ingredient)
		}
	}
	sort.Strings(unsourced)
	return unsourced, nil
}

// --------------------------------------------------
// Purchase orders
// --------------------------------------------------

func (s *Service) GetPurchaseOrder(ctx context.Context, id string) (*PurchaseOrder, error) {
	return s.repo.GetPurchaseOrder(ctx, id)
}

func (s *Service) ListSupplierOrders(ctx context.Context, supplierID, userID string) ([]*PurchaseOrder, error) {
	if _, err := s.owned(ctx, supplierID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListBySupplier(ctx, supplierID)
}

func (s *Service) ListCycleOrders(ctx context.Context, cycleID string) ([]*PurchaseOrder, error) {
	if _, err := s.cycles.Get(ctx, cycleID); err != nil {
		return nil, err
	}
	return s.repo.ListByCycle(ctx, cycleID)
}

// UpdateStatus moves a purchase order along its lifecycle. Only the owning
// supplier may do it.
func (s *Service) UpdateStatus(ctx context.Context, poID, userID string, to POStatus) (*PurchaseOrder, error) {
	po, err := s.repo.GetPurchaseOrder(ctx, poID)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, po.SupplierID, userID); err != nil {
		return nil, err
	}
	if !po.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, po.Status, to)
	}

	from := po.Status
	po.Status = to
	if err := s.repo.UpdateStatus(ctx, po, from); err != nil {
		return nil, err
	}
	metrics.PurchaseOrders.WithLabelValues(string(to)).Inc()

	ownerID := ""
	if r, err := s.restaurants.RestaurantInfo(ctx, po.RestaurantID); err == nil {
		ownerID = r.OwnerID
	} else if !errors.Is(err, core.ErrNotFound) {
		s.logger.Warn("restaurant lookup", zap.String("restaurant_id", po.RestaurantID), zap.Error(err))
	}
	s.announce(ctx, po, ownerID)
	return po, nil
}

func (s *Service) announce(ctx context.Context, po *PurchaseOrder, restaurantOwner string) {
	evt := StatusChanged{
		PurchaseOrderID: po.ID,
		CycleID:         po.CycleID,
		SupplierID:      po.SupplierID,
		RestaurantID:    po.RestaurantID,
		Status:          po.Status,
		Total:           po.Total,
	}
	rooms := []string{realtime.CycleRoom(po.CycleID)}
	if restaurantOwner != "" {
		rooms = append(rooms, realtime.UserRoom(restaurantOwner))
	}
	for _, room := range rooms {
		if err := s.publisher.Publish(ctx, room, realtime.EventPOStatus, evt); err != nil {
			s.logger.Warn("publish", zap.String("room", room), zap.Error(err))
		}
	}
}
