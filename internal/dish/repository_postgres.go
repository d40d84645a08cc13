package dish

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

const dishColumns = `id, cycle_id, name, description, cuisine, ingredients,
	estimated_price, source, image_url, created_at`

func scanDish(row pgx.Row) (*Dish, error) {
	var d Dish
	err := row.Scan(&d.ID, &d.CycleID, &d.Name, &d.Description, &d.Cuisine,
		&d.Ingredients, &d.EstimatedPrice, &d.Source, &d.ImageURL, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PostgresRepository) Create(ctx context.Context, d *Dish) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Ingredients == nil {
		d.Ingredients = []Ingredient{}
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO dishes (id, cycle_id, name, description, cuisine, ingredients, estimated_price, source, image_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`,
		d.ID, d.CycleID, d.Name, d.Description, d.Cuisine, d.Ingredients,
		d.EstimatedPrice, d.Source, d.ImageURL,
	).Scan(&d.CreatedAt)
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Dish, error) {
	return scanDish(r.db.QueryRow(ctx,
		`SELECT `+dishColumns+` FROM dishes WHERE id = $1`, id))
}

func (r *PostgresRepository) ListByCycle(ctx context.Context, cycleID string) ([]*Dish, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+dishColumns+`
		FROM dishes
		WHERE cycle_id = $1
		ORDER BY created_at, id
	`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dishes []*Dish
	for rows.Next() {
		d, err := scanDish(rows)
		if err != nil {
			return nil, err
		}
		dishes = append(dishes, d)
	}
	return dishes, rows.Err()
}

func (r *PostgresRepository) Names(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT name FROM dishes WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PostgresRepository) SetImage(ctx context.Context, id, url string) error {
	tag, err := r.db.Exec(ctx, `UPDATE dishes SET image_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) UpsertVote(ctx context.Context, v *Vote) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO votes (id, cycle_id, dish_id, user_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cycle_id, user_id)
		DO UPDATE SET dish_id = EXCLUDED.dish_id, updated_at = now()
		RETURNING id, created_at, updated_at
	`, v.ID, v.CycleID, v.DishID, v.UserID).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

func (r *PostgresRepository) GetVote(ctx context.Context, cycleID, userID string) (*Vote, error) {
	var v Vote
	err := r.db.QueryRow(ctx, `
		SELECT id, cycle_id, dish_id, user_id, created_at, updated_at
		FROM votes
		WHERE cycle_id = $1 AND user_id = $2
	`, cycleID, userID).Scan(&v.ID, &v.CycleID, &v.DishID, &v.UserID, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *PostgresRepository) CountVotes(ctx context.Context, cycleID string) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT dish_id, count(*)
		FROM votes
		WHERE cycle_id = $1
		GROUP BY dish_id
	`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			dishID string
			n      int
		)
		if err := rows.Scan(&dishID, &n); err != nil {
			return nil, err
		}
		counts[dishID] = n
	}
	return counts, rows.Err()
}
