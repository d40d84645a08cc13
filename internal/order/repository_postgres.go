package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = `id, cycle_id, bid_id, restaurant_id, user_id, quantity, unit_price,
	total, status, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CycleID, &o.BidID, &o.RestaurantID, &o.UserID, &o.Quantity,
		&o.UnitPrice, &o.Total, &o.Status, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PostgresRepository) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.Status = StatusPending
	return r.db.QueryRow(ctx, `
		INSERT INTO orders (id, cycle_id, bid_id, restaurant_id, user_id, quantity, unit_price, total, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`,
		o.ID, o.CycleID, o.BidID, o.RestaurantID, o.UserID, o.Quantity,
		o.UnitPrice, o.Total, o.Status, o.Notes,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Order, error) {
	return scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (r *PostgresRepository) list(ctx context.Context, column, value string) ([]*Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE `+column+` = $1
		ORDER BY created_at DESC
	`, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	return r.list(ctx, "user_id", userID)
}

func (r *PostgresRepository) ListByCycle(ctx context.Context, cycleID string) ([]*Order, error) {
	return r.list(ctx, "cycle_id", cycleID)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, o *Order, from Status) error {
	err := r.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING updated_at
	`, o.ID, o.Status, from).Scan(&o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.Get(ctx, o.ID); getErr != nil {
			return getErr
		}
		return ErrInvalidTransition
	}
	return err
}
