package bid

import (
	"context"
	"fmt"
	"sync/atomic"

	"dotted/internal/config"
	"dotted/internal/core"
	"dotted/internal/cycle"
	"dotted/internal/metrics"
	"dotted/internal/realtime"

	"go.uber.org/zap"
)

type Cycles interface {
	Get(ctx context.Context, id string) (*cycle.Cycle, error)
}

type Service struct {
	repo        Repository
	cycles      Cycles
	restaurants core.RestaurantReader
	quality     core.QualityReader
	publisher   realtime.Publisher
	logger      *zap.Logger

	// optimization is swapped whole when the config file changes.
	optimization atomic.Pointer[config.OptimizationConfig]
}

func NewService(
	repo Repository,
	cycles Cycles,
	restaurants core.RestaurantReader,
	quality core.QualityReader,
	publisher realtime.Publisher,
	opt config.OptimizationConfig,
	logger *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = realtime.Discard
	}
	s := &Service{
		repo:        repo,
		cycles:      cycles,
		restaurants: restaurants,
		quality:     quality,
		publisher:   publisher,
		logger:      logger.Named("bid"),
	}
	s.SetOptimization(opt)
	return s
}

// SetOptimization replaces the scoring weights used by the next selection.
func (s *Service) SetOptimization(opt config.OptimizationConfig) {
	s.optimization.Store(&opt)
}

func (s *Service) Optimization() config.OptimizationConfig {
	return *s.optimization.Load()
}

type PlaceInput struct {
	RestaurantID    string
	PricePerServing float64
	PrepMinutes     int
	Capacity        int
}

func (in PlaceInput) validate() error {
	switch {
	case in.PricePerServing <= 0:
		return fmt.Errorf("%w: price must be positive", core.ErrInvalid)
	case in.PrepMinutes < 1 || in.PrepMinutes > 240:
		return fmt.Errorf("%w: prep time must be 1..240 minutes", core.ErrInvalid)
	case in.Capacity < 1 || in.Capacity > 1000:
		return fmt.Errorf("%w: capacity must be 1..1000 servings", core.ErrInvalid)
	}
	return nil
}

// --------------------------------------------------
// Placing bids
// --------------------------------------------------

// Place records the restaurant's bid, replacing its earlier one.
func (s *Service) Place(ctx context.Context, cycleID, userID string, in PlaceInput) (*Bid, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c, err := s.cycles.Get(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if err := c.Require(cycle.PhaseBidding); err != nil {
		return nil, err
	}
	r, err := s.restaurants.RestaurantInfo(ctx, in.RestaurantID)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != userID {
		return nil, ErrNotOwner
	}
	if r.ZoneID != c.ZoneID {
		return nil, ErrWrongZone
	}

	b := &Bid{
		CycleID:         c.ID,
		ZoneID:          c.ZoneID,
		RestaurantID:    r.ID,
		PricePerServing: in.PricePerServing,
		PrepMinutes:     in.PrepMinutes,
		Capacity:        in.Capacity,
	}
	if err := s.repo.Upsert(ctx, b); err != nil {
		return nil, err
	}
	// Selection may have run while this request was in flight. A bid it
	// never scored cannot win, so it is recorded as lost.
	if latest, err := s.cycles.Get(ctx, c.ID); err == nil && latest.Phase != cycle.PhaseBidding {
		if err := s.repo.SaveResults(ctx, []Result{{BidID: b.ID, Status: StatusLost}}); err != nil {
			s.logger.Error("mark late bid lost", zap.String("bid_id", b.ID), zap.Error(err))
		}
		return nil, fmt.Errorf("%w: cycle is %s", ErrBiddingClosed, latest.Phase)
	}
	metrics.BidsPlaced.Inc()

	s.publish(ctx, realtime.CycleRoom(c.ID), realtime.EventBidPlaced, Placed{
		BidID:           b.ID,
		CycleID:         c.ID,
		RestaurantID:    r.ID,
		RestaurantName:  r.Name,
		PricePerServing: b.PricePerServing,
		PrepMinutes:     b.PrepMinutes,
		Capacity:        b.Capacity,
	})
	return b, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Bid, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, cycleID string) ([]*Bid, error) {
	if _, err := s.cycles.Get(ctx, cycleID); err != nil {
		return nil, err
	}
	return s.repo.ListByCycle(ctx, cycleID)
}

// Winning returns the cycle's selected bid.
func (s *Service) Winning(ctx context.Context, c *cycle.Cycle) (*Bid, error) {
	if c.WinningBidID == nil {
		return nil, ErrNoWinner
	}
	return s.repo.Get(ctx, *c.WinningBidID)
}

// --------------------------------------------------
// Selection
// --------------------------------------------------

// Rank scores the cycle's bids with the current weights without saving.
func (s *Service) Rank(ctx context.Context, cycleID string) ([]Scored, error) {
	bids, err := s.repo.ListByCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	return s.rank(ctx, bids)
}

func (s *Service) rank(ctx context.Context, bids []*Bid) ([]Scored, error) {
	opt := s.Optimization()
	quality := make(map[string]float64, len(bids))
	for _, b := range bids {
		avg, samples, err := s.quality.OverallAverage(ctx, b.RestaurantID)
		if err != nil {
			return nil, err
		}
		if samples > 0 {
			quality[b.RestaurantID] = avg / 5
		}
	}
	return Score(bids, quality, opt.NeutralQuality, opt.Bid), nil
}

// SelectWinner scores every bid, stores the outcome and returns the winning
// bid id. It implements cycle.BidPicker.
func (s *Service) SelectWinner(ctx context.Context, c *cycle.Cycle) (string, error) {
	bids, err := s.repo.ListByCycle(ctx, c.ID)
	if err != nil {
		return "", err
	}
	if len(bids) == 0 {
		return "", fmt.Errorf("%w: no bids", cycle.ErrCancelCycle)
	}

	ranking, err := s.rank(ctx, bids)
	if err != nil {
		return "", err
	}

	results := make([]Result, 0, len(ranking))
	for i, r := range ranking {
		status := StatusLost
		if i == 0 {
			status = StatusWon
		}
		results = append(results, Result{BidID: r.BidID, Score: r.Score, Status: status})
	}
	if err := s.repo.SaveResults(ctx, results); err != nil {
		return "", err
	}

	winner := ranking[0]
	s.logger.Info("bid selected",
		zap.String("cycle_id", c.ID),
		zap.String("bid_id", winner.BidID),
		zap.String("restaurant_id", winner.RestaurantID),
		zap.Float64("score", winner.Score),
		zap.Int("bids", len(bids)),
	)

	evt := Selected{
		CycleID:      c.ID,
		BidID:        winner.BidID,
		RestaurantID: winner.RestaurantID,
		Score:        winner.Score,
		Ranking:      ranking,
	}
	s.publish(ctx, realtime.CycleRoom(c.ID), realtime.EventBidSelected, evt)
	if info, err := s.restaurants.RestaurantInfo(ctx, winner.RestaurantID); err == nil {
		s.publish(ctx, realtime.UserRoom(info.OwnerID), realtime.EventBidSelected, evt)
	}
	return winner.BidID, nil
}

// Settle marks bids that reached the store after selection as lost. It
// implements cycle.Settler.
func (s *Service) Settle(ctx context.Context, c *cycle.Cycle) error {
	bids, err := s.repo.ListByCycle(ctx, c.ID)
	if err != nil {
		return err
	}
	var late []Result
	for _, b := range bids {
		if b.Status == StatusPending {
			late = append(late, Result{BidID: b.ID, Status: StatusLost})
		}
	}
	if len(late) == 0 {
		return nil
	}
	s.logger.Info("late bids closed", zap.String("cycle_id", c.ID), zap.Int("bids", len(late)))
	return s.repo.SaveResults(ctx, late)
}

// --------------------------------------------------
// Capacity
// --------------------------------------------------

// Reserve takes qty servings from the bid's capacity.
func (s *Service) Reserve(ctx context.Context, bidID string, qty int) (*Bid, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", core.ErrInvalid)
	}
	return s.repo.Reserve(ctx, bidID, qty)
}

// Release gives qty servings back.
func (s *Service) Release(ctx context.Context, bidID string, qty int) error {
	return s.repo.Release(ctx, bidID, qty)
}

// --------------------------------------------------
// Market prices
// --------------------------------------------------

func (s *Service) WinningPrices(ctx context.Context, zoneID string, limit int) ([]float64, error) {
	return s.repo.WinningPrices(ctx, zoneID, limit)
}

func (s *Service) LatestPrice(ctx context.Context, restaurantID string) (float64, bool, error) {
	return s.repo.LatestPrice(ctx, restaurantID)
}

func (s *Service) publish(ctx context.Context, room, eventType string, payload any) {
	if err := s.publisher.Publish(ctx, room, eventType, payload); err != nil {
		s.logger.Warn("publish", zap.String("type", eventType), zap.String("room", room), zap.Error(err))
	}
}
