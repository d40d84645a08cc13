// Command cycle-worker runs the background jobs on their own: the cycle
// scheduler, the competition snapshot cron and weight hot-reload. Run the API
// with --scheduler=false next to it.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"dotted/internal/app"
	"dotted/internal/config"
	"dotted/internal/logging"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := config.ResolvePath(*configPath)
	cfg, err := config.NewLoader(nil).Load(path)
	if err != nil {
		logging.Must("info", false).Fatal("config", zap.Error(err))
	}
	logger := logging.Must(cfg.Log.Level, cfg.Log.Development).Named("worker")
	defer func() { _ = logger.Sync() }()

	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal("startup", zap.Error(err))
	}
	defer a.Close()

	logger.Info("cycle worker started",
		zap.Duration("tick", cfg.Cycle.TickInterval),
		zap.String("open_cron", cfg.Cycle.OpenCron),
		zap.String("competition_cron", cfg.Competition.RecomputeCron),
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return a.RunScheduler(ctx) })
	group.Go(func() error { return a.RunCompetition(ctx) })
	group.Go(func() error { return a.WatchOptimization(ctx, path) })

	if err := group.Wait(); err != nil {
		logger.Error("worker stopped", zap.Error(err))
		return
	}
	logger.Info("worker stopped")
}
