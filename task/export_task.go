package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/angas/eloverblik-exporter/exporter"
	"github.com/mailgun/holster/v4/clock"
)

type Exporter interface {
	Run(ctx context.Context, from, to time.Time) (exporter.RunSummary, error)
}

// NewExportTask exports the daysBack whole days before the time it runs.
// Eloverblik publishes a day's readings the morning after, so the window
// is re-exported each run and late corrections are picked up.
func NewExportTask(logger *slog.Logger, ex Exporter, daysBack int) func() {
	return func() {
		logger.Debug("running export task...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		from, to := exporter.Window(clock.Now(), daysBack)
		summary, err := ex.Run(ctx, from, to)
		if errors.Is(err, exporter.ErrRunInProgress) {
			logger.Info("export task skipped, an export is already running")
			return
		}
		if err != nil {
			logger.Error("export task error", slog.Any("error", err))
			return
		}

		logger.Info("export task done", slog.String("run", summary.ID), slog.Int("buckets", summary.Buckets))
	}
}
