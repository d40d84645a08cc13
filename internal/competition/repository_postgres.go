package competition

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert or update the snapshot for a zone
func (r *PostgresRepository) Upsert(ctx context.Context, s *Snapshot) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO competitive_snapshots (
			zone_id,
			avg_price,
			median_price,
			sample_size
		)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (zone_id)
		DO UPDATE SET
			avg_price = EXCLUDED.avg_price,
			median_price = EXCLUDED.median_price,
			sample_size = EXCLUDED.sample_size,
			updated_at = now()
		RETURNING created_at, updated_at
	`,
		s.ZoneID,
		s.AvgPrice,
		s.MedianPrice,
		s.SampleSize,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *PostgresRepository) Get(ctx context.Context, zoneID string) (*Snapshot, error) {
	var s Snapshot
	err := r.db.QueryRow(ctx, `
		SELECT
			zone_id,
			avg_price,
			median_price,
			sample_size,
			created_at,
			updated_at
		FROM competitive_snapshots
		WHERE zone_id = $1
	`, zoneID).Scan(
		&s.ZoneID,
		&s.AvgPrice,
		&s.MedianPrice,
		&s.SampleSize,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
