package competition

import (
	"fmt"
	"time"

	"dotted/internal/core"
)

var (
	ErrNoSnapshot    = fmt.Errorf("competition snapshot %w", core.ErrNotFound)
	ErrNotEnoughData = fmt.Errorf("%w: not enough winning bids in zone", core.ErrNotFound)
	ErrNoBids        = fmt.Errorf("%w: restaurant has not bid yet", core.ErrNotFound)
	ErrNotOwner      = fmt.Errorf("%w: not your restaurant", core.ErrForbidden)
)

// Snapshot aggregates the prices of a zone's recent winning bids.
type Snapshot struct {
	ZoneID      string    `json:"zone_id"`
	AvgPrice    float64   `json:"avg_price"`
	MedianPrice float64   `json:"median_price"`
	SampleSize  int       `json:"sample_size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Position string

const (
	PositionUnderMarket Position = "UNDER_MARKET"
	PositionAverage     Position = "MARKET_AVERAGE"
	PositionPremium     Position = "PREMIUM"
)

// Insight compares a restaurant's latest bid price with its zone.
type Insight struct {
	RestaurantID string   `json:"restaurant_id"`
	ZoneID       string   `json:"zone_id"`
	LatestPrice  float64  `json:"latest_price"`
	MarketAvg    float64  `json:"market_avg"`
	MarketMedian float64  `json:"market_median"`
	SampleSize   int      `json:"sample_size"`
	Positioning  Position `json:"positioning"`
	Advice       Advice   `json:"advice"`
}

// Advice is a suggestion for the restaurant's next bid.
type Advice struct {
	Action string `json:"action"` // LOWER_PRICE | HOLD_PRICE | RAISE_CAPACITY
	Reason string `json:"reason"`
}
