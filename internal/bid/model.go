package bid

import (
	"fmt"
	"time"

	"dotted/internal/core"
)

var (
	ErrNotFound         = fmt.Errorf("bid %w", core.ErrNotFound)
	ErrNotOwner         = fmt.Errorf("%w: not your restaurant", core.ErrForbidden)
	ErrWrongZone        = fmt.Errorf("%w: restaurant is not in the cycle's zone", core.ErrForbidden)
	ErrCapacityExceeded = fmt.Errorf("%w: not enough servings left", core.ErrConflict)
	ErrNoWinner         = fmt.Errorf("%w: cycle has no winning bid", core.ErrConflict)
	ErrBiddingClosed    = fmt.Errorf("%w: bidding has closed for this cycle", core.ErrPhaseClosed)
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusWon     Status = "WON"
	StatusLost    Status = "LOST"
)

// Bid is a restaurant's offer to cook the cycle's winning dish.
type Bid struct {
	ID              string     `json:"id"`
	CycleID         string     `json:"cycle_id"`
	ZoneID          string     `json:"zone_id"`
	RestaurantID    string     `json:"restaurant_id"`
	PricePerServing float64    `json:"price_per_serving"`
	PrepMinutes     int        `json:"prep_minutes"`
	Capacity        int        `json:"capacity"`
	Reserved        int        `json:"reserved"`
	Score           *float64   `json:"score,omitempty"`
	Status          Status     `json:"status"`
	SelectedAt      *time.Time `json:"selected_at,omitempty"` // set when scored, not moved by orders
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Remaining is how many servings can still be ordered.
func (b *Bid) Remaining() int {
	return b.Capacity - b.Reserved
}

// Result is the persisted outcome of scoring one bid.
type Result struct {
	BidID  string
	Score  float64
	Status Status
}

// Placed is the payload of a bid.placed event.
type Placed struct {
	BidID           string  `json:"bid_id"`
	CycleID         string  `json:"cycle_id"`
	RestaurantID    string  `json:"restaurant_id"`
	RestaurantName  string  `json:"restaurant_name"`
	PricePerServing float64 `json:"price_per_serving"`
	PrepMinutes     int     `json:"prep_minutes"`
	Capacity        int     `json:"capacity"`
}

// Selected is the payload of a bid.selected event.
type Selected struct {
	CycleID      string   `json:"cycle_id"`
	BidID        string   `json:"bid_id"`
	RestaurantID string   `json:"restaurant_id"`
	Score        float64  `json:"score"`
	Ranking      []Scored `json:"ranking"`
}
