package quality

import (
	"context"
	"fmt"
	"strings"

	"dotted/internal/core"
	"dotted/internal/order"

	"go.uber.org/zap"
)

type Orders interface {
	Get(ctx context.Context, id, userID string) (*order.Order, error)
}

type Service struct {
	repo        Repository
	orders      Orders
	restaurants core.RestaurantReader
	logger      *zap.Logger
}

func NewService(repo Repository, orders Orders, restaurants core.RestaurantReader, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		orders:      orders,
		restaurants: restaurants,
		logger:      logger.Named("quality"),
	}
}

type SubmitInput struct {
	Taste        int
	Freshness    int
	Presentation int
	Portion      int
	Comment      string
}

func (in SubmitInput) validate() error {
	for name, v := range map[string]int{
		"taste":        in.Taste,
		"freshness":    in.Freshness,
		"presentation": in.Presentation,
		"portion":      in.Portion,
	} {
		if v < 1 || v > 5 {
			return fmt.Errorf("%w: %s must be 1..5", core.ErrInvalid, name)
		}
	}
	return nil
}

// Submit rates a delivered order. Each order is rated once, by the consumer
// who placed it.
func (s *Service) Submit(ctx context.Context, orderID, userID string, in SubmitInput) (*Score, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	o, err := s.orders.Get(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotYourOrder
	}
	if o.Status != order.StatusDelivered {
		return nil, ErrNotDelivered
	}

	score := &Score{
		OrderID:      o.ID,
		UserID:       userID,
		RestaurantID: o.RestaurantID,
		Taste:        in.Taste,
		Freshness:    in.Freshness,
		Presentation: in.Presentation,
		Portion:      in.Portion,
	}
	if c := strings.TrimSpace(in.Comment); c != "" {
		score.Comment = &c
	}
	if err := s.repo.Create(ctx, score); err != nil {
		return nil, err
	}

	s.logger.Info("order rated",
		zap.String("order_id", o.ID),
		zap.String("restaurant_id", o.RestaurantID),
	)
	return score, nil
}

// Summary averages every score the restaurant has received.
func (s *Service) Summary(ctx context.Context, restaurantID string) (*Summary, error) {
	if _, err := s.restaurants.RestaurantInfo(ctx, restaurantID); err != nil {
		return nil, err
	}
	return s.repo.Summary(ctx, restaurantID)
}

// OverallAverage implements core.QualityReader.
func (s *Service) OverallAverage(ctx context.Context, restaurantID string) (float64, int, error) {
	return Averages{repo: s.repo}.OverallAverage(ctx, restaurantID)
}

// Averages is the read side of the scores on its own. Bid scoring needs it
// before the order service, and so the quality service, can be built.
type Averages struct {
	repo Repository
}

func NewAverages(repo Repository) Averages {
	return Averages{repo: repo}
}

func (a Averages) OverallAverage(ctx context.Context, restaurantID string) (float64, int, error) {
	sum, err := a.repo.Summary(ctx, restaurantID)
	if err != nil {
		return 0, 0, err
	}
	return sum.Overall, sum.Count, nil
}
