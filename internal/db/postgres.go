package db

import (
	"context"
	"errors"
	"fmt"

	"dotted/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Connect opens and pings a pgx pool.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("DATABASE_URL not set")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	logger.Info("connected to postgres",
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Int32("min_conns", poolCfg.MinConns),
	)
	return pool, nil
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	logger.Info("schema initialized", zap.Int("statements", len(schema)))
	return nil
}

var schema = []string{
	// -------------------------------
	// USERS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'CONSUMER',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// -------------------------------
	// ZONES
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS zones (
		id UUID PRIMARY KEY,
		slug VARCHAR(100) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		city VARCHAR(255) NOT NULL,
		timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		radius_km DOUBLE PRECISION NOT NULL DEFAULT 3,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS zone_memberships (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		zone_id UUID NOT NULL REFERENCES zones(id) ON DELETE CASCADE,
		joined_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS zone_memberships_zone_idx ON zone_memberships (zone_id)`,

	// -------------------------------
	// DAILY CYCLES
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS cycles (
		id UUID PRIMARY KEY,
		zone_id UUID NOT NULL REFERENCES zones(id),
		cycle_date DATE NOT NULL,
		phase VARCHAR(20) NOT NULL,
		winning_dish_id UUID NULL,
		winning_bid_id UUID NULL,
		phase_ends_at TIMESTAMPTZ NOT NULL,
		cancel_reason TEXT NULL,
		cancelled_from VARCHAR(20) NULL,
		unsourced TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (zone_id, cycle_date)
	)`,
	`CREATE INDEX IF NOT EXISTS cycles_open_idx ON cycles (phase)
		WHERE phase NOT IN ('COMPLETED', 'CANCELLED')`,

	// -------------------------------
	// DISHES + VOTES
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS dishes (
		id UUID PRIMARY KEY,
		cycle_id UUID NOT NULL REFERENCES cycles(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		cuisine VARCHAR(100) NOT NULL DEFAULT '',
		ingredients JSONB NOT NULL DEFAULT '[]',
		estimated_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		source VARCHAR(10) NOT NULL,
		image_url VARCHAR(500) NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id UUID PRIMARY KEY,
		cycle_id UUID NOT NULL REFERENCES cycles(id) ON DELETE CASCADE,
		dish_id UUID NOT NULL REFERENCES dishes(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (cycle_id, user_id)
	)`,

	// -------------------------------
	// RESTAURANTS + BIDS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS restaurants (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id),
		zone_id UUID NOT NULL REFERENCES zones(id),
		name VARCHAR(255) NOT NULL,
		cuisine VARCHAR(100) NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		capacity INT NOT NULL DEFAULT 0,
		image_url VARCHAR(500) NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS bids (
		id UUID PRIMARY KEY,
		cycle_id UUID NOT NULL REFERENCES cycles(id) ON DELETE CASCADE,
		zone_id UUID NOT NULL REFERENCES zones(id),
		restaurant_id UUID NOT NULL REFERENCES restaurants(id),
		price_per_serving DOUBLE PRECISION NOT NULL CHECK (price_per_serving > 0),
		prep_minutes INT NOT NULL,
		capacity INT NOT NULL,
		reserved INT NOT NULL DEFAULT 0,
		score DOUBLE PRECISION NULL,
		status VARCHAR(10) NOT NULL DEFAULT 'PENDING',
		selected_at TIMESTAMPTZ NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (cycle_id, restaurant_id),
		CHECK (reserved >= 0 AND reserved <= capacity)
	)`,
	`ALTER TABLE bids ADD COLUMN IF NOT EXISTS selected_at TIMESTAMPTZ NULL`,
	`UPDATE bids SET selected_at = updated_at WHERE selected_at IS NULL AND status <> 'PENDING'`,
	`DROP INDEX IF EXISTS bids_zone_won_idx`,
	`CREATE INDEX IF NOT EXISTS bids_zone_selected_idx ON bids (zone_id, selected_at DESC)
		WHERE status = 'WON'`,
	`CREATE TABLE IF NOT EXISTS competitive_snapshots (
		zone_id UUID PRIMARY KEY REFERENCES zones(id) ON DELETE CASCADE,
		avg_price DOUBLE PRECISION NOT NULL,
		median_price DOUBLE PRECISION NOT NULL,
		sample_size INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// -------------------------------
	// SUPPLIERS + PURCHASE ORDERS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS suppliers (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id),
		zone_id UUID NOT NULL REFERENCES zones(id),
		name VARCHAR(255) NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS offerings (
		id UUID PRIMARY KEY,
		supplier_id UUID NOT NULL REFERENCES suppliers(id) ON DELETE CASCADE,
		ingredient VARCHAR(255) NOT NULL,
		unit VARCHAR(20) NOT NULL,
		unit_cost DOUBLE PRECISION NOT NULL CHECK (unit_cost > 0),
		available DOUBLE PRECISION NOT NULL CHECK (available >= 0),
		harvested_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (supplier_id, ingredient, unit)
	)`,
	`CREATE TABLE IF NOT EXISTS purchase_orders (
		id UUID PRIMARY KEY,
		cycle_id UUID NOT NULL REFERENCES cycles(id) ON DELETE CASCADE,
		supplier_id UUID NOT NULL REFERENCES suppliers(id),
		restaurant_id UUID NOT NULL REFERENCES restaurants(id),
		lines JSONB NOT NULL,
		total DOUBLE PRECISION NOT NULL,
		status VARCHAR(12) NOT NULL DEFAULT 'PENDING',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (cycle_id, supplier_id)
	)`,

	// -------------------------------
	// ORDERS + QUALITY
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		cycle_id UUID NOT NULL REFERENCES cycles(id),
		bid_id UUID NOT NULL REFERENCES bids(id),
		restaurant_id UUID NOT NULL REFERENCES restaurants(id),
		user_id UUID NOT NULL REFERENCES users(id),
		quantity INT NOT NULL CHECK (quantity > 0),
		unit_price DOUBLE PRECISION NOT NULL,
		total DOUBLE PRECISION NOT NULL,
		status VARCHAR(12) NOT NULL DEFAULT 'PENDING',
		notes TEXT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_idx ON orders (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS orders_cycle_idx ON orders (cycle_id, status)`,
	`CREATE TABLE IF NOT EXISTS quality_scores (
		id UUID PRIMARY KEY,
		order_id UUID UNIQUE NOT NULL REFERENCES orders(id),
		user_id UUID NOT NULL REFERENCES users(id),
		restaurant_id UUID NOT NULL REFERENCES restaurants(id),
		taste SMALLINT NOT NULL CHECK (taste BETWEEN 1 AND 5),
		freshness SMALLINT NOT NULL CHECK (freshness BETWEEN 1 AND 5),
		presentation SMALLINT NOT NULL CHECK (presentation BETWEEN 1 AND 5),
		portion SMALLINT NOT NULL CHECK (portion BETWEEN 1 AND 5),
		comment TEXT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS quality_scores_restaurant_idx ON quality_scores (restaurant_id)`,
}
