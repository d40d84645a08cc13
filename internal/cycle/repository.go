package cycle

import "context"

type Repository interface {
	// Create returns ErrExists when the zone already has a cycle for the date.
	Create(ctx context.Context, c *Cycle) error
	Get(ctx context.Context, id string) (*Cycle, error)
	GetByZoneDate(ctx context.Context, zoneID, date string) (*Cycle, error)
	ListOpen(ctx context.Context) ([]*Cycle, error)
	// RecentWinners returns the winning dish ids of the zone's last cycles,
	// newest first.
	RecentWinners(ctx context.Context, zoneID string, limit int) ([]string, error)

	// Update saves c only if its stored phase is still from. It returns
	// ErrInvalidTransition when another writer moved the cycle first.
	Update(ctx context.Context, c *Cycle, from Phase) error
}
