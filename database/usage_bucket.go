package database

import (
	"context"
	"fmt"
	"time"

	"github.com/angas/eloverblik-exporter/hours"
	"github.com/angas/eloverblik-exporter/usage"
	"github.com/mailgun/holster/v4/clock"
	"github.com/shopspring/decimal"
)

// SaveUsageSeries upserts every bucket of the series. Decimals are stored as
// text to keep their exact value.
func (d *Database) SaveUsageSeries(ctx context.Context, meteringPointID string, series usage.Series) error {
	tx, err := d.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving usage series: %w", err)
	}
	defer tx.Rollback()

	now := clock.Now().UTC().Format(timeLayout)
	for _, key := range series.Keys() {
		b := series.Buckets[key]
		start, err := bucketStart(key)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO usage_bucket (metering_point_id, granularity, key, period_start, energy_wh, cost, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(metering_point_id, granularity, key) DO UPDATE SET
				energy_wh = excluded.energy_wh,
				cost = excluded.cost,
				updated_at = excluded.updated_at`,
			meteringPointID,
			series.Granularity.String(),
			key,
			start.Format(timeLayout),
			b.EnergyWh.String(),
			b.Cost.String(),
			now)
		if err != nil {
			return fmt.Errorf("saving usage bucket %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving usage series: %w", err)
	}
	return nil
}

// GetUsageSeries returns the buckets whose period starts in [from, to).
func (d *Database) GetUsageSeries(ctx context.Context, meteringPointID string, g usage.Granularity, from, to time.Time) (usage.Series, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT key, energy_wh, cost
		FROM usage_bucket
		WHERE metering_point_id = ? AND granularity = ? AND period_start >= ? AND period_start < ?
		ORDER BY period_start ASC`,
		meteringPointID, g.String(), from.UTC().Format(timeLayout), to.UTC().Format(timeLayout))
	if err != nil {
		return usage.Series{}, fmt.Errorf("fetching usage buckets: %w", err)
	}
	defer rows.Close()

	series := usage.NewSeries(g)
	for rows.Next() {
		var key, energy, cost string
		if err := rows.Scan(&key, &energy, &cost); err != nil {
			return usage.Series{}, fmt.Errorf("scanning usage bucket row: %w", err)
		}
		b := usage.UsageBucket{Key: key}
		if b.EnergyWh, err = decimal.NewFromString(energy); err != nil {
			return usage.Series{}, fmt.Errorf("parsing energy of %s: %w", key, err)
		}
		if b.Cost, err = decimal.NewFromString(cost); err != nil {
			return usage.Series{}, fmt.Errorf("parsing cost of %s: %w", key, err)
		}
		series.Buckets[key] = b
	}
	if err := rows.Err(); err != nil {
		return usage.Series{}, fmt.Errorf("reading usage bucket rows: %w", err)
	}

	return series, nil
}

func (d *Database) GetMeteringPointIDs(ctx context.Context) ([]string, error) {
	rows, err := d.read.QueryContext(ctx, `SELECT DISTINCT metering_point_id FROM usage_bucket ORDER BY metering_point_id`)
	if err != nil {
		return nil, fmt.Errorf("fetching metering points: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning metering point row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func bucketStart(key string) (time.Time, error) {
	dh, err := hours.ParseKey(key)
	if err != nil {
		return time.Time{}, err
	}
	return dh.Time()
}
