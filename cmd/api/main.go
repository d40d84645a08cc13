package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dotted/internal/app"
	"dotted/internal/config"
	"dotted/internal/cycle"
	"dotted/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	inMemory   bool
}

func rootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:           "dotted",
		Short:         "Hyperlocal daily dish marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file (default ./"+config.DefaultFile+" when present)")
	cmd.PersistentFlags().BoolVar(&g.inMemory, "memory", false, "Keep all state in memory instead of Postgres")

	cmd.AddCommand(serveCmd(&g), migrateCmd(&g), cycleCmd(&g))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("dotted", version)
		},
	})
	return cmd
}

// boot loads the configuration and builds the app for a subcommand.
func boot(ctx context.Context, g *globalFlags) (*app.App, error) {
	// Resolve once so the watcher follows the same file the loader read.
	g.configPath = config.ResolvePath(g.configPath)
	cfg, err := config.NewLoader(nil).LoadUnvalidated(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	validate := cfg.Validate
	if g.inMemory {
		validate = cfg.ValidateWithoutDatabase
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	return app.New(ctx, cfg, logger, app.Options{InMemory: g.inMemory})
}

// ───────────────────────── SERVE ─────────────────────────

func serveCmd(g *globalFlags) *cobra.Command {
	var (
		withScheduler bool
		migrate       bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := boot(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()
			defer func() { _ = a.Logger.Sync() }()

			if migrate {
				if err := a.Migrate(ctx); err != nil {
					return err
				}
			}
			return serve(ctx, a, g.configPath, withScheduler)
		},
	}
	cmd.Flags().BoolVar(&withScheduler, "scheduler", true, "Also run the cycle scheduler and competition cron in this process")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply the schema before serving")
	return cmd
}

func serve(ctx context.Context, a *app.App, configPath string, withScheduler bool) error {
	r, err := a.Router()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		a.Logger.Info("API listening", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		return a.WatchOptimization(ctx, configPath)
	})
	if withScheduler {
		group.Go(func() error { return a.RunScheduler(ctx) })
		group.Go(func() error { return a.RunCompetition(ctx) })
	}

	err = group.Wait()
	a.Logger.Info("API stopped")
	return err
}

// ───────────────────────── MIGRATE ─────────────────────────

func migrateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := boot(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Migrate(cmd.Context())
		},
	}
}

// ───────────────────────── CYCLE ─────────────────────────

func cycleCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Operate daily cycles by hand",
	}

	var date string
	open := &cobra.Command{
		Use:   "open <zone-id>",
		Short: "Open a zone's cycle (zone-local today by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := boot(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			if date == "" {
				z, err := a.Zones.Get(ctx, args[0])
				if err != nil {
					return err
				}
				date = cycle.Today(time.Now(), z.Location())
			}
			c, err := a.Cycles.Open(ctx, args[0], date)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s %s\n", c.ID, c.Date, c.Phase)
			return nil
		},
	}
	open.Flags().StringVar(&date, "date", "", "Cycle date, YYYY-MM-DD")

	advance := &cobra.Command{
		Use:   "advance <cycle-id>",
		Short: "Move a cycle one phase forward, running its transition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := boot(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.Cycles.ForceAdvance(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", c.ID, c.Phase)
			return nil
		},
	}

	tick := &cobra.Command{
		Use:   "tick",
		Short: "Advance every open cycle to the phase the clock says",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := boot(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Cycles.AdvanceAll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%d cycles moved\n", n)
			return nil
		},
	}

	cmd.AddCommand(open, advance, tick)
	return cmd
}
