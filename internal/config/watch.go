package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchOptimization re-reads path whenever it changes and hands the new
// optimization weights to apply. Invalid edits are logged and ignored.
// It blocks until ctx is done.
func WatchOptimization(
	ctx context.Context,
	path string,
	logger *zap.Logger,
	apply func(OptimizationConfig),
) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			cfg, err := LoadFromFile(path)
			if err != nil {
				logger.Warn("config reload failed", zap.String("path", path), zap.Error(err))
				continue
			}
			if err := cfg.Optimization.Validate(); err != nil {
				logger.Warn("rejected optimization weights", zap.Error(err))
				continue
			}
			logger.Info("optimization weights reloaded",
				zap.Float64("bid_price", cfg.Optimization.Bid.Price),
				zap.Float64("supplier_freshness", cfg.Optimization.Supplier.Freshness),
			)
			apply(cfg.Optimization)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", zap.Error(err))
		}
	}
}
