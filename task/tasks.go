package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/angas/eloverblik-exporter/config"
	"github.com/robfig/cron/v3"
)

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	ExportTask      func()
	MaintenanceTask func()
}

func NewTasks(logger *slog.Logger, ex Exporter, db Maintainer, cnfg *config.AppConfig) *Tasks {
	logger = logger.With("module", "tasks")
	return &Tasks{
		cron:            cron.New(),
		cnfg:            cnfg,
		ExportTask:      NewExportTask(logger.With(slog.String("task", "export")), ex, cnfg.Export.DaysBack),
		MaintenanceTask: NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), db, cnfg),
	}
}

// Run schedules the tasks and starts the scheduler.
func (t *Tasks) Run() error {
	if _, err := t.cron.AddFunc(t.cnfg.Export.RunAt, t.ExportTask); err != nil {
		return fmt.Errorf("scheduling export task %q: %w", t.cnfg.Export.RunAt, err)
	}
	if _, err := t.cron.AddFunc(t.cnfg.Maintenance.RunAt, t.MaintenanceTask); err != nil {
		return fmt.Errorf("scheduling maintenance task %q: %w", t.cnfg.Maintenance.RunAt, err)
	}
	t.cron.Start()
	return nil
}

// Entries is the number of scheduled tasks.
func (t *Tasks) Entries() int {
	return len(t.cron.Entries())
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}
