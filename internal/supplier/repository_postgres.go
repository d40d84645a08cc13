package supplier

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

// -------------------------------
// Suppliers
// -------------------------------

func (r *PostgresRepository) CreateSupplier(ctx context.Context, s *Supplier) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO suppliers (id, owner_id, zone_id, name, lat, lng)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, s.ID, s.OwnerID, s.ZoneID, s.Name, s.Lat, s.Lng).Scan(&s.CreatedAt)
}

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.OwnerID, &s.ZoneID, &s.Name, &s.Lat, &s.Lng, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) GetSupplier(ctx context.Context, id string) (*Supplier, error) {
	return scanSupplier(r.db.QueryRow(ctx, `
		SELECT id, owner_id, zone_id, name, lat, lng, created_at
		FROM suppliers WHERE id = $1
	`, id))
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Supplier, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, owner_id, zone_id, name, lat, lng, created_at
		FROM suppliers
		WHERE owner_id = $1
		ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// -------------------------------
// Offerings
// -------------------------------

const offeringColumns = `id, supplier_id, ingredient, unit, unit_cost, available, harvested_at, updated_at`

func scanOffering(row pgx.Row, extra ...any) (*Offering, error) {
	var o Offering
	dest := append([]any{&o.ID, &o.SupplierID, &o.Ingredient, &o.Unit, &o.UnitCost,
		&o.Available, &o.HarvestedAt, &o.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferingNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *PostgresRepository) UpsertOffering(ctx context.Context, o *Offering) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	saved, err := scanOffering(r.db.QueryRow(ctx, `
		INSERT INTO offerings (id, supplier_id, ingredient, unit, unit_cost, available, harvested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (supplier_id, ingredient, unit) DO UPDATE SET
			unit_cost = EXCLUDED.unit_cost,
			available = EXCLUDED.available,
			harvested_at = EXCLUDED.harvested_at,
			updated_at = now()
		RETURNING `+offeringColumns,
		o.ID, o.SupplierID, o.Ingredient, o.Unit, o.UnitCost, o.Available, o.HarvestedAt,
	))
	if err != nil {
		return err
	}
	*o = *saved
	return nil
}

func (r *PostgresRepository) ListOfferings(ctx context.Context, supplierID string) ([]*Offering, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+offeringColumns+`
		FROM offerings
		WHERE supplier_id = $1
		ORDER BY ingredient
	`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Offering
	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ZoneCandidates(ctx context.Context, zoneID string) ([]Candidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT o.id, o.supplier_id, o.ingredient, o.unit, o.unit_cost, o.available,
			o.harvested_at, o.updated_at, s.lat, s.lng
		FROM offerings o
		JOIN suppliers s ON s.id = o.supplier_id
		WHERE s.zone_id = $1 AND o.available > 0
		ORDER BY o.id
	`, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		o, err := scanOffering(rows, &c.Lat, &c.Lng)
		if err != nil {
			return nil, err
		}
		c.Offering = o
		out = append(out, c)
	}
	return out, rows.Err()
}

// -------------------------------
// Purchase orders
// -------------------------------

const poColumns = `id, cycle_id, supplier_id, restaurant_id, lines, total, status, created_at, updated_at`

func scanPO(row pgx.Row) (*PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.CycleID, &po.SupplierID, &po.RestaurantID,
		&po.Lines, &po.Total, &po.Status, &po.CreatedAt, &po.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPONotFound
	}
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *PostgresRepository) CreatePurchaseOrders(ctx context.Context, pos []*PurchaseOrder) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, po := range pos {
		for _, l := range po.Lines {
			tag, err := tx.Exec(ctx, `
				UPDATE offerings
				SET available = available - $2, updated_at = now()
				WHERE id = $1 AND available >= $2
			`, l.OfferingID, l.Quantity)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return ErrOutOfStock
			}
		}

		if po.ID == "" {
			po.ID = uuid.New().String()
		}
		po.Status = POPending
		err := tx.QueryRow(ctx, `
			INSERT INTO purchase_orders (id, cycle_id, supplier_id, restaurant_id, lines, total, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`, po.ID, po.CycleID, po.SupplierID, po.RestaurantID, po.Lines, po.Total, po.Status,
		).Scan(&po.CreatedAt, &po.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrPOExists
			}
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) GetPurchaseOrder(ctx context.Context, id string) (*PurchaseOrder, error) {
	return scanPO(r.db.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id))
}

func (r *PostgresRepository) listPOs(ctx context.Context, where string, arg any) ([]*PurchaseOrder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+poColumns+`
		FROM purchase_orders
		WHERE `+where+` = $1
		ORDER BY created_at DESC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListBySupplier(ctx context.Context, supplierID string) ([]*PurchaseOrder, error) {
	return r.listPOs(ctx, "supplier_id", supplierID)
}

func (r *PostgresRepository) ListByCycle(ctx context.Context, cycleID string) ([]*PurchaseOrder, error) {
	return r.listPOs(ctx, "cycle_id", cycleID)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, po *PurchaseOrder, from POStatus) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		UPDATE purchase_orders
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING updated_at
	`, po.ID, po.Status, from).Scan(&po.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInvalidTransition
	}
	if err != nil {
		return err
	}

	if po.Status == POCancelled {
		batch := &pgx.Batch{}
		for _, l := range po.Lines {
			batch.Queue(`UPDATE offerings SET available = available + $2, updated_at = now() WHERE id = $1`,
				l.OfferingID, l.Quantity)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
