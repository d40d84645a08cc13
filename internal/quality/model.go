package quality

import (
	"fmt"
	"time"

	"dotted/internal/core"
)

var (
	ErrAlreadyRated = fmt.Errorf("%w: order already rated", core.ErrConflict)
	ErrNotDelivered = fmt.Errorf("%w: only delivered orders can be rated", core.ErrConflict)
	ErrNotYourOrder = fmt.Errorf("%w: not your order", core.ErrForbidden)
)

// Score is a consumer's rating of one delivered order. Each dimension is
// 1..5.
type Score struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	UserID       string    `json:"user_id"`
	RestaurantID string    `json:"restaurant_id"`
	Taste        int       `json:"taste"`
	Freshness    int       `json:"freshness"`
	Presentation int       `json:"presentation"`
	Portion      int       `json:"portion"`
	Comment      *string   `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary averages a restaurant's scores. Every field is zero when Count is.
type Summary struct {
	RestaurantID string  `json:"restaurant_id"`
	Taste        float64 `json:"taste"`
	Freshness    float64 `json:"freshness"`
	Presentation float64 `json:"presentation"`
	Portion      float64 `json:"portion"`
	Overall      float64 `json:"overall"`
	Count        int     `json:"count"`
}
