package cycle

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const cycleColumns = `
	id, zone_id, to_char(cycle_date, 'YYYY-MM-DD'), phase,
	winning_dish_id::text, winning_bid_id::text, phase_ends_at,
	cancel_reason, cancelled_from, unsourced, created_at, updated_at`

func scanCycle(row pgx.Row) (*Cycle, error) {
	var (
		c             Cycle
		cancelledFrom *string
	)
	err := row.Scan(
		&c.ID, &c.ZoneID, &c.Date, &c.Phase,
		&c.WinningDishID, &c.WinningBidID, &c.PhaseEndsAt,
		&c.CancelReason, &cancelledFrom, &c.Unsourced, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if cancelledFrom != nil {
		p := Phase(*cancelledFrom)
		c.CancelledFrom = &p
	}
	return &c, nil
}

func collect(rows pgx.Rows) ([]*Cycle, error) {
	defer rows.Close()
	var out []*Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, c *Cycle) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Unsourced == nil {
		c.Unsourced = []string{}
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO cycles (id, zone_id, cycle_date, phase, phase_ends_at, unsourced)
		VALUES ($1, $2, $3::date, $4, $5, $6)
		RETURNING created_at, updated_at
	`,
		c.ID, c.ZoneID, c.Date, c.Phase, c.PhaseEndsAt, c.Unsourced,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrExists
	}
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Cycle, error) {
	return scanCycle(r.db.QueryRow(ctx,
		`SELECT `+cycleColumns+` FROM cycles WHERE id = $1`, id))
}

func (r *PostgresRepository) GetByZoneDate(ctx context.Context, zoneID, date string) (*Cycle, error) {
	return scanCycle(r.db.QueryRow(ctx,
		`SELECT `+cycleColumns+` FROM cycles WHERE zone_id = $1 AND cycle_date = $2::date`,
		zoneID, date))
}

func (r *PostgresRepository) ListOpen(ctx context.Context) ([]*Cycle, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+cycleColumns+`
		FROM cycles
		WHERE phase NOT IN ('COMPLETED', 'CANCELLED')
		ORDER BY cycle_date
	`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PostgresRepository) RecentWinners(ctx context.Context, zoneID string, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT winning_dish_id::text
		FROM cycles
		WHERE zone_id = $1 AND winning_dish_id IS NOT NULL
		ORDER BY cycle_date DESC
		LIMIT $2
	`, zoneID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, c *Cycle, from Phase) error {
	var cancelledFrom *string
	if c.CancelledFrom != nil {
		s := string(*c.CancelledFrom)
		cancelledFrom = &s
	}
	if c.Unsourced == nil {
		c.Unsourced = []string{}
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE cycles
		SET phase = $3,
		    winning_dish_id = $4,
		    winning_bid_id = $5,
		    phase_ends_at = $6,
		    cancel_reason = $7,
		    cancelled_from = $8,
		    unsourced = $9,
		    updated_at = now()
		WHERE id = $1 AND phase = $2
	`,
		c.ID, from, c.Phase, c.WinningDishID, c.WinningBidID, c.PhaseEndsAt,
		c.CancelReason, cancelledFrom, c.Unsourced,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, c.ID); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}
