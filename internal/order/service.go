package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dotted/internal/bid"
	"dotted/internal/core"
	"dotted/internal/cycle"
	"dotted/internal/metrics"
	"dotted/internal/realtime"

	"go.uber.org/zap"
)

type Cycles interface {
	Get(ctx context.Context, id string) (*cycle.Cycle, error)
}

// Bids is the part of the bid service orders draw capacity from.
type Bids interface {
	Get(ctx context.Context, id string) (*bid.Bid, error)
	Winning(ctx context.Context, c *cycle.Cycle) (*bid.Bid, error)
	Reserve(ctx context.Context, bidID string, qty int) (*bid.Bid, error)
	Release(ctx context.Context, bidID string, qty int) error
}

type Service struct {
	repo        Repository
	cycles      Cycles
	bids        Bids
	members     core.MembershipReader
	restaurants core.RestaurantReader
	publisher   realtime.Publisher
	logger      *zap.Logger
}

func NewService(
	repo Repository,
	cycles Cycles,
	bids Bids,
	members core.MembershipReader,
	restaurants core.RestaurantReader,
	publisher realtime.Publisher,
	logger *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = realtime.Discard
	}
	return &Service{
		repo:        repo,
		cycles:      cycles,
		bids:        bids,
		members:     members,
		restaurants: restaurants,
		publisher:   publisher,
		logger:      logger.Named("order"),
	}
}

type PlaceInput struct {
	Quantity int
	Notes    string
}

// --------------------------------------------------
// Placing orders
// --------------------------------------------------

// Place orders servings of the cycle's dish from the winning bid.
func (s *Service) Place(ctx context.Context, cycleID, userID string, in PlaceInput) (*Order, error) {
	if in.Quantity < 1 || in.Quantity > MaxQuantity {
		return nil, fmt.Errorf("%w: quantity must be 1..%d", core.ErrInvalid, MaxQuantity)
	}
	c, err := s.cycles.Get(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if err := c.Require(cycle.PhaseOrdering); err != nil {
		return nil, err
	}
	ok, err := s.members.IsMember(ctx, userID, c.ZoneID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}

	winning, err := s.bids.Winning(ctx, c)
	if err != nil {
		return nil, err
	}
	b, err := s.bids.Reserve(ctx, winning.ID, in.Quantity)
	if err != nil {
		return nil, err
	}

	o := &Order{
		CycleID:      c.ID,
		BidID:        b.ID,
		RestaurantID: b.RestaurantID,
		UserID:       userID,
		Quantity:     in.Quantity,
		UnitPrice:    b.PricePerServing,
		Total:        b.PricePerServing * float64(in.Quantity),
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		o.Notes = &notes
	}
	if err := s.repo.Create(ctx, o); err != nil {
		if relErr := s.bids.Release(ctx, b.ID, in.Quantity); relErr != nil {
			s.logger.Error("release after failed order", zap.String("bid_id", b.ID), zap.Error(relErr))
		}
		return nil, err
	}
	// The cycle may have left ORDERING while this request was in flight. The
	// closing sweep has either seen the order or runs after the phase is
	// stored, so a late order cancels itself here.
	if latest, err := s.cycles.Get(ctx, c.ID); err == nil && latest.Phase != cycle.PhaseOrdering {
		if _, err := s.transition(ctx, o, StatusCancelled); err != nil && !errors.Is(err, ErrInvalidTransition) {
			s.logger.Error("cancel late order", zap.String("order_id", o.ID), zap.Error(err))
		}
		return nil, fmt.Errorf("%w: cycle is %s", ErrOrderingClosed, latest.Phase)
	}
	metrics.OrdersPlaced.Inc()

	s.logger.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("cycle_id", c.ID),
		zap.Int("quantity", o.Quantity),
		zap.Int("remaining", b.Remaining()),
	)
	s.announce(ctx, o)
	return o, nil
}

// --------------------------------------------------
// Reads
// --------------------------------------------------

// Get returns the order to its consumer or to the cooking restaurant.
func (s *Service) Get(ctx context.Context, id, userID string) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID == userID {
		return o, nil
	}
	isCook, err := s.isRestaurantOwner(ctx, o.RestaurantID, userID)
	if err != nil {
		return nil, err
	}
	if !isCook {
		return nil, ErrNotAllowed
	}
	return o, nil
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]*Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListForCycle lists the cycle's orders for the winning restaurant's owner.
func (s *Service) ListForCycle(ctx context.Context, cycleID, userID string) ([]*Order, error) {
	c, err := s.cycles.Get(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	winning, err := s.bids.Winning(ctx, c)
	if err != nil {
		return nil, err
	}
	isCook, err := s.isRestaurantOwner(ctx, winning.RestaurantID, userID)
	if err != nil {
		return nil, err
	}
	if !isCook {
		return nil, fmt.Errorf("%w: only the cooking restaurant sees the cycle's orders", core.ErrForbidden)
	}
	return s.repo.ListByCycle(ctx, cycleID)
}

func (s *Service) isRestaurantOwner(ctx context.Context, restaurantID, userID string) (bool, error) {
	r, err := s.restaurants.RestaurantInfo(ctx, restaurantID)
	if err != nil {
		return false, err
	}
	return r.OwnerID == userID, nil
}

// --------------------------------------------------
// Status
// --------------------------------------------------

// UpdateStatus moves the order along. The restaurant drives it forward; the
// consumer may only cancel.
func (s *Service) UpdateStatus(ctx context.Context, id, userID string, to Status) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	isCook, err := s.isRestaurantOwner(ctx, o.RestaurantID, userID)
	if err != nil {
		return nil, err
	}
	isConsumer := o.UserID == userID
	switch {
	case isCook:
	case isConsumer && to == StatusCancelled:
	default:
		return nil, ErrNotAllowed
	}
	return s.transition(ctx, o, to)
}

func (s *Service) transition(ctx context.Context, o *Order, to Status) (*Order, error) {
	if !o.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, to)
	}
	from := o.Status
	o.Status = to
	if err := s.repo.UpdateStatus(ctx, o, from); err != nil {
		return nil, err
	}
	if to == StatusCancelled {
		if err := s.bids.Release(ctx, o.BidID, o.Quantity); err != nil {
			// The order is cancelled either way; capacity is only advisory
			// once the cycle moves on.
			s.logger.Error("release capacity", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	s.announce(ctx, o)
	return o, nil
}

// CloseCycle cancels the orders the restaurant never confirmed. It
// implements cycle.OrderCloser.
func (s *Service) CloseCycle(ctx context.Context, c *cycle.Cycle) error {
	orders, err := s.repo.ListByCycle(ctx, c.ID)
	if err != nil {
		return err
	}
	cancelled := 0
	for _, o := range orders {
		if o.Status != StatusPending {
			continue
		}
		if _, err := s.transition(ctx, o, StatusCancelled); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				// Confirmed concurrently.
				continue
			}
			return err
		}
		cancelled++
	}
	s.logger.Info("ordering closed",
		zap.String("cycle_id", c.ID),
		zap.Int("orders", len(orders)),
		zap.Int("cancelled", cancelled),
	)
	return nil
}

// Settle repeats the closing sweep once the cycle has left ORDERING, catching
// orders written while CloseCycle was running. It implements cycle.Settler.
func (s *Service) Settle(ctx context.Context, c *cycle.Cycle) error {
	return s.CloseCycle(ctx, c)
}

func (s *Service) announce(ctx context.Context, o *Order) {
	evt := StatusChanged{
		OrderID:  o.ID,
		CycleID:  o.CycleID,
		UserID:   o.UserID,
		Quantity: o.Quantity,
		Status:   o.Status,
	}
	for _, room := range []string{realtime.UserRoom(o.UserID), realtime.CycleRoom(o.CycleID)} {
		if err := s.publisher.Publish(ctx, room, realtime.EventOrderStatus, evt); err != nil {
			s.logger.Warn("publish", zap.String("room", room), zap.Error(err))
		}
	}
}
