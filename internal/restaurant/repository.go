package restaurant

import "context"

type Repository interface {
	// core
	Create(ctx context.Context, r *Restaurant) error
	Get(ctx context.Context, id string) (*Restaurant, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Restaurant, error)
	SetImage(ctx context.Context, id, url string) error

	// ownership
	IsOwner(ctx context.Context, restaurantID, userID string) (bool, error)
}
