package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/angas/eloverblik-exporter/config"
)

type Maintainer interface {
	Backup(ctx context.Context) error
	PurgeBackups(ctx context.Context, retentionDays int) error
	PurgeLog(ctx context.Context, maxEntries int) error
	PurgeData(ctx context.Context, retentionDays int) error
}

func NewMaintenanceTask(logger *slog.Logger, db Maintainer, cnfg *config.AppConfig) func() {
	return func() {
		logger.Debug("running maintenance task...")

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()

		if err := db.Backup(ctx); err != nil {
			logger.Error("database backup error", slog.Any("error", err))
		}

		if err := db.PurgeBackups(ctx, cnfg.Database.BackupRetentionDays); err != nil {
			logger.Error("backup maintenance error", slog.Any("error", err))
		}

		if err := db.PurgeLog(ctx, cnfg.Logging.DbMaxEntries); err != nil {
			logger.Error("log maintenance error", slog.Any("error", err))
		}

		if err := db.PurgeData(ctx, cnfg.Database.DataRetentionDays); err != nil {
			logger.Error("data maintenance error", slog.Any("error", err))
		}

		logger.Info("maintenance task done")
	}
}
