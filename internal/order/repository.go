package order

import "context"

type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	ListByCycle(ctx context.Context, cycleID string) ([]*Order, error)
	// UpdateStatus writes o.Status if the stored status is still from.
	UpdateStatus(ctx context.Context, o *Order, from Status) error
}
