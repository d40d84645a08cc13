// Package app wires one Dotted process: repositories, services, hooks,
// realtime fan-out and the background jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dotted/internal/auth"
	"dotted/internal/bid"
	"dotted/internal/competition"
	"dotted/internal/config"
	"dotted/internal/cycle"
	"dotted/internal/db"
	"dotted/internal/dish"
	"dotted/internal/llm"
	"dotted/internal/order"
	"dotted/internal/quality"
	"dotted/internal/realtime"
	"dotted/internal/restaurant"
	"dotted/internal/router"
	"dotted/internal/storage"
	"dotted/internal/supplier"
	"dotted/internal/zone"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Options struct {
	// InMemory keeps every repository in process memory. Nothing survives a
	// restart; it exists for demos and local frontend work.
	InMemory bool
}

type App struct {
	Config *config.Config
	Logger *zap.Logger

	Pool      *pgxpool.Pool
	Hub       *realtime.Hub
	Publisher realtime.Publisher
	Tokens    *auth.TokenIssuer

	Users       *auth.Service
	Zones       *zone.Service
	Cycles      *cycle.Service
	Dishes      *dish.Service
	Restaurants *restaurant.Service
	Bids        *bid.Service
	Suppliers   *supplier.Service
	Orders      *order.Service
	Quality     *quality.Service
	Competition *competition.Service

	nc     *nats.Conn
	bridge *realtime.NATSBridge
}

type repositories struct {
	users       auth.UserRepository
	zones       zone.Repository
	cycles      cycle.Repository
	dishes      dish.Repository
	restaurants restaurant.Repository
	bids        bid.Repository
	suppliers   supplier.Repository
	orders      order.Repository
	quality     quality.Repository
	competition competition.Repository
}

func memoryRepositories() repositories {
	return repositories{
		users:       auth.NewInMemoryUserRepository(),
		zones:       zone.NewMemoryRepository(),
		cycles:      cycle.NewMemoryRepository(),
		dishes:      dish.NewMemoryRepository(),
		restaurants: restaurant.NewMemoryRepository(),
		bids:        bid.NewMemoryRepository(),
		suppliers:   supplier.NewMemoryRepository(),
		orders:      order.NewMemoryRepository(),
		quality:     quality.NewMemoryRepository(),
		competition: competition.NewMemoryRepository(),
	}
}

func postgresRepositories(pool *pgxpool.Pool) repositories {
	return repositories{
		users:       auth.NewPostgresUserRepository(pool),
		zones:       zone.NewPostgresRepository(pool),
		cycles:      cycle.NewPostgresRepository(pool),
		dishes:      dish.NewPostgresRepository(pool),
		restaurants: restaurant.NewPostgresRepository(pool),
		bids:        bid.NewPostgresRepository(pool),
		suppliers:   supplier.NewPostgresRepository(pool),
		orders:      order.NewPostgresRepository(pool),
		quality:     quality.NewPostgresRepository(pool),
		competition: competition.NewPostgresRepository(pool),
	}
}

// New builds the service graph. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opt Options) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		Hub:    realtime.NewHub(logger.Named("realtime")),
		Tokens: auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
	}
	a.Publisher = a.Hub

	// ───────────────────────── DB ─────────────────────────
	var repos repositories
	if opt.InMemory {
		logger.Warn("running with in-memory repositories, state is lost on exit")
		repos = memoryRepositories()
	} else {
		pool, err := db.Connect(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		a.Pool = pool
		repos = postgresRepositories(pool)
	}

	// ───────────────────────── REALTIME ─────────────────────────
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("dotted"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		a.nc = nc
		bridge, err := realtime.NewNATSBridge(nc, a.Hub, cfg.NATS.SubjectPrefix, logger.Named("nats"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.bridge = bridge
		a.Publisher = bridge
		logger.Info("realtime rooms shared over NATS", zap.String("prefix", cfg.NATS.SubjectPrefix))
	}

	// ───────────────────────── LLM + STORAGE ─────────────────────────
	var suggester llm.Client = llm.NewStatic()
	if cfg.LLM.APIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg.LLM, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		suggester = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, using the static dish rotation")
	}

	store := storage.Disabled
	if cfg.Storage.Enabled() {
		r2, err := storage.NewR2Client(ctx, cfg.Storage)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("r2 init: %w", err)
		}
		store = r2
	}

	// ───────────────────────── SERVICES (ORDER MATTERS) ─────────────────────────
	schedule, err := cycle.NewSchedule(cfg.Cycle.Schedule)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Users = auth.NewService(repos.users, a.Tokens)
	a.Zones = zone.NewService(repos.zones)
	a.Cycles = cycle.NewService(repos.cycles, a.Zones, schedule, a.Publisher, logger)
	a.Restaurants = restaurant.NewService(repos.restaurants, a.Zones, store, logger)
	a.Dishes = dish.NewService(
		repos.dishes,
		a.Cycles,
		a.Zones,
		a.Zones,
		suggester,
		store,
		a.Publisher,
		dish.Options{
			MinSuggestions: cfg.Cycle.MinSuggestions,
			MaxSuggestions: cfg.Cycle.MaxSuggestions,
		},
		logger,
	)
	a.Bids = bid.NewService(
		repos.bids,
		a.Cycles,
		a.Restaurants,
		quality.NewAverages(repos.quality),
		a.Publisher,
		cfg.Optimization,
		logger,
	)
	a.Suppliers = supplier.NewService(
		repos.suppliers,
		a.Zones,
		a.Cycles,
		a.Dishes,
		a.Bids,
		a.Restaurants,
		a.Publisher,
		cfg.Optimization,
		logger,
	)
	a.Orders = order.NewService(repos.orders, a.Cycles, a.Bids, a.Zones, a.Restaurants, a.Publisher, logger)
	a.Quality = quality.NewService(repos.quality, a.Orders, a.Restaurants, logger)
	a.Competition = competition.NewService(repos.competition, a.Bids, a.Restaurants, a.Zones, logger)

	a.Cycles.SetHooks(cycle.Hooks{
		Suggester:   a.Dishes,
		DishPicker:  a.Dishes,
		BidPicker:   a.Bids,
		Sourcer:     a.Suppliers,
		OrderCloser: a.Orders,
	})

	return a, nil
}

// Migrate applies the schema. It is a no-op in memory mode.
func (a *App) Migrate(ctx context.Context) error {
	if a.Pool == nil {
		return nil
	}
	return db.Migrate(ctx, a.Pool, a.Logger)
}

// Handlers builds the HTTP handlers over the services.
func (a *App) Handlers() router.Handlers {
	return router.Handlers{
		Auth:        auth.NewHandler(a.Users),
		Zone:        zone.NewHandler(a.Zones),
		Cycle:       cycle.NewHandler(a.Cycles),
		Dish:        dish.NewHandler(a.Dishes),
		Restaurant:  restaurant.NewHandler(a.Restaurants),
		Bid:         bid.NewHandler(a.Bids),
		Supplier:    supplier.NewHandler(a.Suppliers),
		Order:       order.NewHandler(a.Orders),
		Quality:     quality.NewHandler(a.Quality),
		Competition: competition.NewHandler(a.Competition),
		Realtime:    realtime.NewHandler(a.Hub, a.Tokens, a.Config.HTTP.CORSOrigins),
	}
}

func (a *App) Router() (*gin.Engine, error) {
	return router.NewRouter(a.Handlers(), router.Options{
		Tokens:      a.Tokens,
		CORSOrigins: a.Config.HTTP.CORSOrigins,
		Logger:      a.Logger,
	})
}

// --------------------------------------------------
// Background jobs
// --------------------------------------------------

// RunScheduler opens and advances cycles until ctx is done.
func (a *App) RunScheduler(ctx context.Context) error {
	return cycle.NewScheduler(a.Cycles, a.Config.Cycle.TickInterval, a.Config.Cycle.OpenCron, a.Logger).Run(ctx)
}

// RunCompetition refreshes the zone price snapshots on the configured cron
// until ctx is done.
func (a *App) RunCompetition(ctx context.Context) error {
	logger := a.Logger.Named("competition-cron")
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(a.Config.Competition.RecomputeCron, func() {
		n, err := a.Competition.RecomputeAll(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Warn("recompute snapshots", zap.Error(err))
			return
		}
		logger.Info("snapshots recomputed", zap.Int("zones", n))
	})
	if err != nil {
		return fmt.Errorf("competition cron %q: %w", a.Config.Competition.RecomputeCron, err)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// WatchOptimization hot-reloads the scoring weights from path. Without a
// config file there is nothing to watch and it waits for ctx.
func (a *App) WatchOptimization(ctx context.Context, path string) error {
	if path == "" {
		<-ctx.Done()
		return nil
	}
	return config.WatchOptimization(ctx, path, a.Logger.Named("config"), func(opt config.OptimizationConfig) {
		a.Bids.SetOptimization(opt)
		a.Suppliers.SetOptimization(opt)
	})
}

// Close drains realtime fan-out and closes the pool.
func (a *App) Close() {
	var errs []error
	if a.bridge != nil {
		errs = append(errs, a.bridge.Close())
	}
	if a.nc != nil {
		errs = append(errs, a.nc.Drain())
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("shutdown", zap.Error(err))
	}
}
