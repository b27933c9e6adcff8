package database

import (
	"context"
	"fmt"
	"time"
)

type ExportRunRow struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	MeteringPoints int       `json:"metering_points"`
	Buckets        int       `json:"buckets"`
	Error          string    `json:"error,omitempty"`
}

func (d *Database) SaveExportRun(ctx context.Context, r ExportRunRow) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO export_run (id, started_at, finished_at, period_from, period_to, metering_points, buckets, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.StartedAt.UTC().Format(timeLayout),
		r.FinishedAt.UTC().Format(timeLayout),
		r.From.UTC().Format(timeLayout),
		r.To.UTC().Format(timeLayout),
		r.MeteringPoints,
		r.Buckets,
		r.Error)
	if err != nil {
		return fmt.Errorf("saving export run %s: %w", r.ID, err)
	}
	return nil
}

// GetExportRuns returns the most recent runs first.
func (d *Database) GetExportRuns(ctx context.Context, limit int) ([]ExportRunRow, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := d.read.QueryContext(ctx, `
		SELECT id, started_at, finished_at, period_from, period_to, metering_points, buckets, error
		FROM export_run
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching export runs: %w", err)
	}
	defer rows.Close()

	var runs []ExportRunRow
	for rows.Next() {
		var r ExportRunRow
		var started, finished, from, to string
		if err := rows.Scan(&r.ID, &started, &finished, &from, &to, &r.MeteringPoints, &r.Buckets, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning export run row: %w", err)
		}
		for _, f := range []struct {
			src string
			dst *time.Time
		}{{started, &r.StartedAt}, {finished, &r.FinishedAt}, {from, &r.From}, {to, &r.To}} {
			if *f.dst, err = time.Parse(timeLayout, f.src); err != nil {
				return nil, fmt.Errorf("parsing timestamp: %w", err)
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading export run rows: %w", err)
	}

	return runs, nil
}
