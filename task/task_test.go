package task

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/angas/eloverblik-exporter/config"
	"github.com/angas/eloverblik-exporter/exporter"
	"github.com/mailgun/holster/v4/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExporter struct {
	from, to time.Time
	err      error
	calls    int
}

func (f *fakeExporter) Run(ctx context.Context, from, to time.Time) (exporter.RunSummary, error) {
	f.calls++
	f.from, f.to = from, to
	return exporter.RunSummary{ID: "run"}, f.err
}

type fakeMaintainer struct {
	calls []string
	err   error
}

func (f *fakeMaintainer) Backup(ctx context.Context) error {
	f.calls = append(f.calls, "backup")
	return f.err
}

func (f *fakeMaintainer) PurgeBackups(ctx context.Context, retentionDays int) error {
	f.calls = append(f.calls, "purge_backups")
	return f.err
}

func (f *fakeMaintainer) PurgeLog(ctx context.Context, maxEntries int) error {
	f.calls = append(f.calls, "purge_log")
	return f.err
}

func (f *fakeMaintainer) PurgeData(ctx context.Context, retentionDays int) error {
	f.calls = append(f.calls, "purge_data")
	return f.err
}

func testConfig() *config.AppConfig {
	c := &config.AppConfig{}
	c.Export.RunAt = "0 7 * * *"
	c.Export.DaysBack = 3
	c.Maintenance.RunAt = "0 3 * * *"
	c.Database.DataRetentionDays = 90
	c.Database.BackupRetentionDays = 30
	c.Logging.DbMaxEntries = 1000
	return c
}

func TestExportTaskUsesWindow(t *testing.T) {
	defer clock.Freeze(time.Date(2023, 8, 10, 7, 0, 0, 0, time.UTC)).Unfreeze()

	ex := &fakeExporter{}
	NewExportTask(slog.Default(), ex, 3)()

	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, time.Date(2023, 8, 7, 0, 0, 0, 0, time.UTC), ex.from)
	assert.Equal(t, time.Date(2023, 8, 10, 0, 0, 0, 0, time.UTC), ex.to)
}

func TestExportTaskSurvivesErrors(t *testing.T) {
	for _, err := range []error{exporter.ErrRunInProgress, errors.New("boom")} {
		ex := &fakeExporter{err: err}
		assert.NotPanics(t, NewExportTask(slog.Default(), ex, 1))
		assert.Equal(t, 1, ex.calls)
	}
}

func TestMaintenanceTaskRunsAllSteps(t *testing.T) {
	// A failing step does not stop the following ones
	db := &fakeMaintainer{err: errors.New("locked")}
	NewMaintenanceTask(slog.Default(), db, testConfig())()
	assert.Equal(t, []string{"backup", "purge_backups", "purge_log", "purge_data"}, db.calls)
}

func TestTasksSchedule(t *testing.T) {
	tasks := NewTasks(slog.Default(), &fakeExporter{}, &fakeMaintainer{}, testConfig())
	require.NoError(t, tasks.Run())
	defer tasks.Stop()
	assert.Equal(t, 2, tasks.Entries())

	bad := testConfig()
	bad.Export.RunAt = "every now and then"
	assert.Error(t, NewTasks(slog.Default(), &fakeExporter{}, &fakeMaintainer{}, bad).Run())
}
