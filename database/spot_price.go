package database

import (
	"context"
	"fmt"
	"time"

	"github.com/angas/eloverblik-exporter/types"
)

func (d *Database) SaveSpotPrices(ctx context.Context, prices []types.PriceRecord) error {
	tx, err := d.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving spot prices: %w", err)
	}
	defer tx.Rollback()

	for _, p := range prices {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO spot_price (area, hour_utc, price_local, price_eur) VALUES (?, ?, ?, ?)
			ON CONFLICT(area, hour_utc) DO UPDATE SET
				price_local = excluded.price_local,
				price_eur = excluded.price_eur`,
			p.PriceArea,
			p.HourUTC.UTC().Format(timeLayout),
			p.PriceLocal,
			p.PriceEUR)
		if err != nil {
			return fmt.Errorf("saving spot price for %s: %w", p.HourUTC, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving spot prices: %w", err)
	}
	return nil
}

// GetSpotPrices serves previously fetched prices, which makes the database
// the last resort of the price providers.
func (d *Database) GetSpotPrices(ctx context.Context, area string, from, to time.Time) ([]types.PriceRecord, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT area, hour_utc, price_local, price_eur
		FROM spot_price
		WHERE area = ? AND hour_utc >= ? AND hour_utc < ?
		ORDER BY hour_utc ASC`,
		area, from.UTC().Format(timeLayout), to.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("fetching spot prices: %w", err)
	}
	defer rows.Close()

	var prices []types.PriceRecord
	for rows.Next() {
		var p types.PriceRecord
		var hour string
		if err := rows.Scan(&p.PriceArea, &hour, &p.PriceLocal, &p.PriceEUR); err != nil {
			return nil, fmt.Errorf("scanning spot price row: %w", err)
		}
		p.HourUTC, err = time.Parse(timeLayout, hour)
		if err != nil {
			return nil, fmt.Errorf("parsing hour %q: %w", hour, err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading spot price rows: %w", err)
	}

	return prices, nil
}
