package zone

import "context"

type Repository interface {
	Create(ctx context.Context, z *Zone) error
	Get(ctx context.Context, id string) (*Zone, error)
	List(ctx context.Context, activeOnly bool) ([]*Zone, error)

	// SetMembership replaces the user's membership, if any.
	SetMembership(ctx context.Context, m *Membership) error
	DeleteMembership(ctx context.Context, userID, zoneID string) error
	GetMembership(ctx context.Context, userID string) (*Membership, error)
	CountMembers(ctx context.Context, zoneID string) (int, error)
}
