package restaurant

import (
	"fmt"
	"time"

	"dotted/internal/core"
)

var (
	ErrNotFound = fmt.Errorf("restaurant %w", core.ErrNotFound)
	ErrNotOwner = fmt.Errorf("%w: not your restaurant", core.ErrForbidden)
)

// Restaurant is a kitchen that bids to cook its zone's daily dish.
type Restaurant struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ZoneID    string    `json:"zone_id"`
	Name      string    `json:"name"`
	Cuisine   string    `json:"cuisine"`
	Address   string    `json:"address"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Capacity  int       `json:"capacity"` // servings per day
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Restaurant) Info() *core.RestaurantInfo {
	return &core.RestaurantInfo{
		ID:      r.ID,
		OwnerID: r.OwnerID,
		ZoneID:  r.ZoneID,
		Name:    r.Name,
		Lat:     r.Lat,
		Lng:     r.Lng,
	}
}
