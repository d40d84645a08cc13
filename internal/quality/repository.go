package quality

import "context"

type Repository interface {
	// Create fails with ErrAlreadyRated on a second score for an order.
	Create(ctx context.Context, s *Score) error
	Summary(ctx context.Context, restaurantID string) (*Summary, error)
}
