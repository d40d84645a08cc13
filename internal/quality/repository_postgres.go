package quality

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *Score) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO quality_scores
			(id, order_id, user_id, restaurant_id, taste, freshness, presentation, portion, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`,
		s.ID, s.OrderID, s.UserID, s.RestaurantID,
		s.Taste, s.Freshness, s.Presentation, s.Portion, s.Comment,
	).Scan(&s.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyRated
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) Summary(ctx context.Context, restaurantID string) (*Summary, error) {
	sum := &Summary{RestaurantID: restaurantID}
	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(AVG(taste), 0)::float8,
			COALESCE(AVG(freshness), 0)::float8,
			COALESCE(AVG(presentation), 0)::float8,
			COALESCE(AVG(portion), 0)::float8,
			COUNT(*)
		FROM quality_scores
		WHERE restaurant_id = $1
	`, restaurantID).Scan(&sum.Taste, &sum.Freshness, &sum.Presentation, &sum.Portion, &sum.Count)
	if err != nil {
		return nil, err
	}
	sum.Overall = overall(sum)
	return sum, nil
}
