package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler drives every zone's cycle along the clock. A ticker advances the
// open cycles; a cron job opens the zone-local day's cycles.
type Scheduler struct {
	service  *Service
	interval time.Duration
	openSpec string
	logger   *zap.Logger
}

func NewScheduler(service *Service, interval time.Duration, openSpec string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		service:  service,
		interval: interval,
		openSpec: openSpec,
		logger:   logger.Named("scheduler"),
	}
}

// Run blocks until ctx is cancelled. It opens and advances once on start.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.interval)
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(s.openSpec, func() { s.open(ctx) }); err != nil {
		return fmt.Errorf("open cron %q: %w", s.openSpec, err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		zap.Duration("interval", s.interval),
		zap.String("open_cron", s.openSpec),
	)

	s.open(ctx)
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) open(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := s.service.OpenToday(ctx)
	if err != nil {
		s.logger.Warn("open cycles", zap.Error(err))
	}
	s.logger.Debug("cycles opened", zap.Int("zones", n))
}

func (s *Scheduler) tick(ctx context.Context) {
	moved, err := s.service.AdvanceAll(ctx)
	if err != nil && ctx.Err() == nil {
		s.logger.Error("advance cycles", zap.Error(err))
		return
	}
	if moved > 0 {
		s.logger.Info("cycles advanced", zap.Int("count", moved))
	}
}
