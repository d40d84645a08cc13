package restaurant

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

const restaurantColumns = `id, owner_id, zone_id, name, cuisine, address,
	lat, lng, capacity, image_url, created_at`

func scanRestaurant(row pgx.Row) (*Restaurant, error) {
	var res Restaurant
	err := row.Scan(
		&res.ID,
		&res.OwnerID,
		&res.ZoneID,
		&res.Name,
		&res.Cuisine,
		&res.Address,
		&res.Lat,
		&res.Lng,
		&res.Capacity,
		&res.ImageURL,
		&res.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// --------------------------------------------------
// Create a new restaurant
// --------------------------------------------------
func (r *PostgresRepository) Create(ctx context.Context, res *Restaurant) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	query := `
		INSERT INTO restaurants (
			id,
			owner_id,
			zone_id,
			name,
			cuisine,
			address,
			lat,
			lng,
			capacity
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	return r.db.QueryRow(
		ctx,
		query,
		res.ID,
		res.OwnerID,
		res.ZoneID,
		res.Name,
		res.Cuisine,
		res.Address,
		res.Lat,
		res.Lng,
		res.Capacity,
	).Scan(&res.CreatedAt)
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Restaurant, error) {
	return scanRestaurant(r.db.QueryRow(ctx,
		`SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`, id))
}

// --------------------------------------------------
// List restaurants owned by a user
// --------------------------------------------------
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Restaurant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+restaurantColumns+`
		FROM restaurants
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var restaurants []*Restaurant
	for rows.Next() {
		res, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		restaurants = append(restaurants, res)
	}

	return restaurants, rows.Err()
}

func (r *PostgresRepository) SetImage(ctx context.Context, id, url string) error {
	tag, err := r.db.Exec(ctx, `UPDATE restaurants SET image_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --------------------------------------------------
// Ownership check (SECURITY)
// --------------------------------------------------
func (r *PostgresRepository) IsOwner(
	ctx context.Context,
	restaurantID string,
	userID string,
) (bool, error) {

	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM restaurants
			WHERE id = $1
			  AND owner_id = $2
		)
	`, restaurantID, userID).Scan(&exists)

	return exists, err
}
