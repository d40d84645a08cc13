package dish

import "context"

type Repository interface {
	Create(ctx context.Context, d *Dish) error
	Get(ctx context.Context, id string) (*Dish, error)
	// ListByCycle returns the cycle's dishes oldest first.
	ListByCycle(ctx context.Context, cycleID string) ([]*Dish, error)
	Names(ctx context.Context, ids []string) ([]string, error)
	SetImage(ctx context.Context, id, url string) error

	// UpsertVote records or changes the user's vote for the cycle.
	UpsertVote(ctx context.Context, v *Vote) error
	GetVote(ctx context.Context, cycleID, userID string) (*Vote, error)
	// CountVotes returns votes per dish id.
	CountVotes(ctx context.Context, cycleID string) (map[string]int, error)
}
