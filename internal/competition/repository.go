package competition

import "context"

type Repository interface {
	Upsert(ctx context.Context, s *Snapshot) error
	Get(ctx context.Context, zoneID string) (*Snapshot, error)
}
