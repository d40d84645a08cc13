package competition

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"dotted/internal/core"
	"dotted/internal/zone"

	"go.uber.org/zap"
)

const (
	minSamples  = 3
	priceWindow = 30
	// Snapshots older than this are recomputed on read.
	maxSnapshotAge = 6 * time.Hour
)

// PriceSource reads bid prices.
type PriceSource interface {
	WinningPrices(ctx context.Context, zoneID string, limit int) ([]float64, error)
	LatestPrice(ctx context.Context, restaurantID string) (float64, bool, error)
}

type Zones interface {
	ListActive(ctx context.Context) ([]*zone.Zone, error)
}

type Service struct {
	repo        Repository
	prices      PriceSource
	restaurants core.RestaurantReader
	zones       Zones
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(
	repo Repository,
	prices PriceSource,
	restaurants core.RestaurantReader,
	zones Zones,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:        repo,
		prices:      prices,
		restaurants: restaurants,
		zones:       zones,
		logger:      logger.Named("competition"),
		now:         time.Now,
	}
}

// --------------------------------------------------
// Snapshots
// --------------------------------------------------

// Recompute aggregates the zone's recent winning bid prices.
func (s *Service) Recompute(ctx context.Context, zoneID string) (*Snapshot, error) {
	values, err := s.prices.WinningPrices(ctx, zoneID, priceWindow)
	if err != nil {
		return nil, err
	}

	if len(values) < minSamples {
		s.logger.Debug("skipping snapshot",
			zap.String("zone_id", zoneID),
			zap.Int("samples", len(values)),
		)
		return nil, ErrNotEnoughData
	}

	sort.Float64s(values)

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	snap := &Snapshot{
		ZoneID:      zoneID,
		AvgPrice:    sum / float64(len(values)),
		MedianPrice: values[len(values)/2],
		SampleSize:  len(values),
	}
	if err := s.repo.Upsert(ctx, snap); err != nil {
		return nil, err
	}

	s.logger.Info("snapshot recomputed",
		zap.String("zone_id", zoneID),
		zap.Float64("avg", snap.AvgPrice),
		zap.Float64("median", snap.MedianPrice),
		zap.Int("samples", snap.SampleSize),
	)
	return snap, nil
}

// RecomputeAll refreshes every active zone with enough data and returns how
// many snapshots it wrote.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	zones, err := s.zones.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	var errs []error
	written := 0
	for _, z := range zones {
		_, err := s.Recompute(ctx, z.ID)
		switch {
		case err == nil:
			written++
		case errors.Is(err, ErrNotEnoughData):
		default:
			errs = append(errs, fmt.Errorf("zone %s: %w", z.Slug, err))
		}
	}
	return written, errors.Join(errs...)
}

// Snapshot returns the zone's snapshot, recomputing it when missing or
// stale.
func (s *Service) Snapshot(ctx context.Context, zoneID string) (*Snapshot, error) {
	snap, err := s.repo.Get(ctx, zoneID)
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return nil, err
	}
	if snap != nil && s.now().Sub(snap.UpdatedAt) < maxSnapshotAge {
		return snap, nil
	}

	fresh, err := s.Recompute(ctx, zoneID)
	if errors.Is(err, ErrNotEnoughData) && snap != nil {
		// Keep serving the old numbers.
		return snap, nil
	}
	return fresh, err
}

// --------------------------------------------------
// Restaurant insight
// --------------------------------------------------

// Insight positions the restaurant's latest bid against its zone. Only the
// owner may read it.
func (s *Service) Insight(ctx context.Context, restaurantID, userID string) (*Insight, error) {
	r, err := s.restaurants.RestaurantInfo(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != userID {
		return nil, ErrNotOwner
	}

	price, ok, err := s.prices.LatestPrice(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoBids
	}

	snap, err := s.Snapshot(ctx, r.ZoneID)
	if err != nil {
		return nil, err
	}

	position := determinePosition(price, snap.MedianPrice)

	return &Insight{
		RestaurantID: r.ID,
		ZoneID:       r.ZoneID,
		LatestPrice:  price,
		MarketAvg:    snap.AvgPrice,
		MarketMedian: snap.MedianPrice,
		SampleSize:   snap.SampleSize,
		Positioning:  position,
		Advice:       adviseFor(position),
	}, nil
}

// --------------------------------------------------
// Positioning logic
// --------------------------------------------------
func determinePosition(price, median float64) Position {
	switch {
	case price < median*0.9:
		return PositionUnderMarket
	case price > median*1.1:
		return PositionPremium
	default:
		return PositionAverage
	}
}

func adviseFor(p Position) Advice {
	switch p {
	case PositionPremium:
		return Advice{Action: "LOWER_PRICE", Reason: "Priced above recent winning bids"}
	case PositionUnderMarket:
		return Advice{Action: "RAISE_CAPACITY", Reason: "Priced competitively, offer more servings"}
	default:
		return Advice{Action: "HOLD_PRICE", Reason: "In line with the zone, compete on prep time"}
	}
}
