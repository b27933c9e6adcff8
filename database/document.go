package database

import (
	"context"
	"fmt"

	"github.com/angas/eloverblik-exporter/store"
	"github.com/mailgun/holster/v4/clock"
)

// Put makes the database a store.Store. Documents are kept as written, usage
// buckets are queried through SaveUsageSeries and GetUsageSeries instead.
func (d *Database) Put(ctx context.Context, doc store.Document) error {
	body, err := doc.Body()
	if err != nil {
		return err
	}

	_, err = d.write.ExecContext(ctx, `
		INSERT INTO document (kind, key, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		string(doc.Kind), doc.Key, body, clock.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("saving %s document %s: %w", doc.Kind, doc.Key, err)
	}
	return nil
}

func (d *Database) GetDocument(ctx context.Context, kind store.Kind, key string) ([]byte, error) {
	var body []byte
	err := d.read.QueryRowContext(ctx, `SELECT body FROM document WHERE kind = ? AND key = ?`, string(kind), key).Scan(&body)
	if err != nil {
		return nil, fmt.Errorf("fetching %s document %s: %w", kind, key, err)
	}
	return body, nil
}
