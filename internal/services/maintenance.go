package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/OnlyArkMani/Flowboard/internal/config"
)

// PurgeTask is the registered name for export housekeeping.
const PurgeTask = "maintenance.purge_exports"

// PurgeExpiredExports removes export artifacts older than the retention
// window. Registered as a queue task and safe to run repeatedly.
func PurgeExpiredExports(cfg *config.Config, logger *slog.Logger) func(ctx context.Context, args ...string) error {
	if logger == nil {
		logger = slog.Default()
	}
	return func(_ context.Context, _ ...string) error {
		retention := time.Duration(cfg.Storage.RetentionDays) * 24 * time.Hour
		if retention <= 0 {
			return nil
		}
		cutoff := time.Now().Add(-retention)

		entries, err := os.ReadDir(cfg.Storage.ExportDir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		purged := 0
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(cfg.Storage.ExportDir, entry.Name())
			if err := os.Remove(path); err != nil {
				logger.Warn("purge skipped file",
					slog.String("path", path),
					slog.String("error", err.Error()))
				continue
			}
			purged++
		}

		if purged > 0 {
			logger.Info("purged expired exports", slog.Int("count", purged))
		}
		return nil
	}
}
