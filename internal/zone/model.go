package zone

import (
	"fmt"
	"time"

	"dotted/internal/core"
)

var (
	ErrNotFound  = fmt.Errorf("zone %w", core.ErrNotFound)
	ErrSlugTaken = fmt.Errorf("%w: zone slug already exists", core.ErrConflict)
	ErrInactive  = fmt.Errorf("%w: zone is not active", core.ErrConflict)
)

// Zone is a neighbourhood that scopes cycles, restaurants and suppliers.
type Zone struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Timezone  string    `json:"timezone"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	RadiusKm  float64   `json:"radius_km"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Location returns the zone's IANA timezone, UTC when unknown.
func (z *Zone) Location() *time.Location {
	loc, err := time.LoadLocation(z.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Membership struct {
	UserID   string    `json:"user_id"`
	ZoneID   string    `json:"zone_id"`
	JoinedAt time.Time `json:"joined_at"`
}
