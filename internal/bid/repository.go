package bid

import "context"

type Repository interface {
	// Upsert stores the restaurant's bid for the cycle, replacing an
	// earlier one.
	Upsert(ctx context.Context, b *Bid) error
	Get(ctx context.Context, id string) (*Bid, error)
	ListByCycle(ctx context.Context, cycleID string) ([]*Bid, error)
	// SaveResults writes every score and status in one transaction.
	SaveResults(ctx context.Context, results []Result) error

	// Reserve adds qty to Reserved unless that would exceed Capacity, in
	// which case it returns ErrCapacityExceeded.
	Reserve(ctx context.Context, bidID string, qty int) (*Bid, error)
	Release(ctx context.Context, bidID string, qty int) error

	// WinningPrices returns the zone's most recent winning prices.
	WinningPrices(ctx context.Context, zoneID string, limit int) ([]float64, error)
	// LatestPrice returns the restaurant's most recent bid price.
	LatestPrice(ctx context.Context, restaurantID string) (float64, bool, error)
}
