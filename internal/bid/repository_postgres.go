package bid

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

const bidColumns = `id, cycle_id, zone_id, restaurant_id, price_per_serving, prep_minutes,
	capacity, reserved, score, status, selected_at, created_at, updated_at`

func scanBid(row pgx.Row) (*Bid, error) {
	var b Bid
	err := row.Scan(&b.ID, &b.CycleID, &b.ZoneID, &b.RestaurantID, &b.PricePerServing,
		&b.PrepMinutes, &b.Capacity, &b.Reserved, &b.Score, &b.Status,
		&b.SelectedAt, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, b *Bid) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO bids (id, cycle_id, zone_id, restaurant_id, price_per_serving, prep_minutes, capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cycle_id, restaurant_id) DO UPDATE SET
			price_per_serving = EXCLUDED.price_per_serving,
			prep_minutes = EXCLUDED.prep_minutes,
			capacity = EXCLUDED.capacity,
			created_at = now(),
			updated_at = now()
		WHERE bids.status = 'PENDING'
		RETURNING `+bidColumns,
		b.ID, b.CycleID, b.ZoneID, b.RestaurantID, b.PricePerServing, b.PrepMinutes, b.Capacity,
	)
	saved, err := scanBid(row)
	if errors.Is(err, ErrNotFound) {
		// The conflicting row was already scored.
		return ErrBiddingClosed
	}
	if err != nil {
		return err
	}
	*b = *saved
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Bid, error) {
	return scanBid(r.db.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id))
}

func (r *PostgresRepository) ListByCycle(ctx context.Context, cycleID string) ([]*Bid, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bidColumns+`
		FROM bids
		WHERE cycle_id = $1
		ORDER BY created_at, id
	`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (r *PostgresRepository) SaveResults(ctx context.Context, results []Result) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, res := range results {
		batch.Queue(`
			UPDATE bids
			SET score = $2, status = $3, selected_at = now(), updated_at = now()
			WHERE id = $1
		`, res.BidID, res.Score, res.Status)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) Reserve(ctx context.Context, bidID string, qty int) (*Bid, error) {
	b, err := scanBid(r.db.QueryRow(ctx, `
		UPDATE bids
		SET reserved = reserved + $2, updated_at = now()
		WHERE id = $1 AND reserved + $2 <= capacity
		RETURNING `+bidColumns,
		bidID, qty,
	))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.Get(ctx, bidID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrCapacityExceeded
	}
	return b, err
}

func (r *PostgresRepository) Release(ctx context.Context, bidID string, qty int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bids
		SET reserved = GREATEST(reserved - $2, 0), updated_at = now()
		WHERE id = $1
	`, bidID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) WinningPrices(ctx context.Context, zoneID string, limit int) ([]float64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT price_per_serving
		FROM bids
		WHERE zone_id = $1 AND status = 'WON'
		ORDER BY selected_at DESC NULLS LAST, id
		LIMIT $2
	`, zoneID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[float64])
}

func (r *PostgresRepository) LatestPrice(ctx context.Context, restaurantID string) (float64, bool, error) {
	var price float64
	err := r.db.QueryRow(ctx, `
		SELECT price_per_serving
		FROM bids
		WHERE restaurant_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, restaurantID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}
