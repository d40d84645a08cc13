package zone

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

const zoneColumns = `id, slug, name, city, timezone, lat, lng, radius_km, active, created_at`

func scanZone(row pgx.Row) (*Zone, error) {
	var z Zone
	err := row.Scan(&z.ID, &z.Slug, &z.Name, &z.City, &z.Timezone,
		&z.Lat, &z.Lng, &z.RadiusKm, &z.Active, &z.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &z, nil
}

func (r *PostgresRepository) Create(ctx context.Context, z *Zone) error {
	if z.ID == "" {
		z.ID = uuid.New().String()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO zones (id, slug, name, city, timezone, lat, lng, radius_km, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`,
		z.ID, z.Slug, z.Name, z.City, z.Timezone, z.Lat, z.Lng, z.RadiusKm, z.Active,
	).Scan(&z.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrSlugTaken
	}
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Zone, error) {
	return scanZone(r.db.QueryRow(ctx,
		`SELECT `+zoneColumns+` FROM zones WHERE id = $1`, id))
}

func (r *PostgresRepository) List(ctx context.Context, activeOnly bool) ([]*Zone, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+zoneColumns+`
		FROM zones
		WHERE ($1 = false OR active)
		ORDER BY name
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []*Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

func (r *PostgresRepository) SetMembership(ctx context.Context, m *Membership) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO zone_memberships (user_id, zone_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET zone_id = EXCLUDED.zone_id, joined_at = now()
		RETURNING joined_at
	`, m.UserID, m.ZoneID).Scan(&m.JoinedAt)
}

func (r *PostgresRepository) DeleteMembership(ctx context.Context, userID, zoneID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM zone_memberships WHERE user_id = $1 AND zone_id = $2`,
		userID, zoneID)
	return err
}

func (r *PostgresRepository) GetMembership(ctx context.Context, userID string) (*Membership, error) {
	var m Membership
	err := r.db.QueryRow(ctx, `
		SELECT user_id, zone_id, joined_at
		FROM zone_memberships
		WHERE user_id = $1
	`, userID).Scan(&m.UserID, &m.ZoneID, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PostgresRepository) CountMembers(ctx context.Context, zoneID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM zone_memberships WHERE zone_id = $1`, zoneID,
	).Scan(&n)
	return n, err
}
