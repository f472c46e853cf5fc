package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/otasync/internal/record"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// MirrorKeys returns the urls currently published for a mirror, ordered by url.
// Returns an empty slice (not nil) if the mirror has no rows.
func (s *Store) MirrorKeys(ctx context.Context, mirrorID int64) ([]string, error) {
	return mirrorKeys(ctx, s.db, s.dialect, mirrorID)
}

// ListUpdates returns every row of a mirror, ordered by url.
func (s *Store) ListUpdates(ctx context.Context, mirrorID int64) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT filename, device, incremental, timestamp, md5sum, channel, api_level, url, changes, mirror_id
		FROM updates
		WHERE mirror_id = ?
		ORDER BY url ASC
	`), mirrorID)
	if err != nil {
		return nil, fmt.Errorf("query updates: %w", err)
	}
	defer rows.Close()

	records := []record.Record{}
	for rows.Next() {
		var r record.Record
		if err := rows.Scan(
			&r.Filename,
			&r.Device,
			&r.IncrementalVersion,
			&r.TimestampUTC,
			&r.Checksum,
			&r.Channel,
			&r.APILevel,
			&r.Key,
			&r.ChangelogURL,
			&r.MirrorID,
		); err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate updates: %w", err)
	}

	return records, nil
}

// Upsert writes a single record outside of a transaction.
func (s *Store) Upsert(ctx context.Context, r record.Record) error {
	return upsert(ctx, s.db, s.dialect, r)
}

// Delete removes a single (mirror, url) row outside of a transaction.
func (s *Store) Delete(ctx context.Context, mirrorID int64, key string) error {
	return deleteUpdate(ctx, s.db, s.dialect, mirrorID, key)
}

func mirrorKeys(ctx context.Context, q querier, d dialect, mirrorID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, d.rebind(`
		SELECT url FROM updates
		WHERE mirror_id = ?
		ORDER BY url ASC
	`), mirrorID)
	if err != nil {
		return nil, fmt.Errorf("query mirror keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan mirror key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mirror keys: %w", err)
	}

	return keys, nil
}

// upsert inserts a record or overwrites every column of the existing
// (mirror_id, url) row in one statement.
func upsert(ctx context.Context, q querier, d dialect, r record.Record) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}

	_, err := q.ExecContext(ctx, d.rebind(`
		INSERT INTO updates
		(filename, device, incremental, timestamp, md5sum, channel, api_level, url, changes, mirror_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (mirror_id, url) DO UPDATE SET
			filename    = excluded.filename,
			device      = excluded.device,
			incremental = excluded.incremental,
			timestamp   = excluded.timestamp,
			md5sum      = excluded.md5sum,
			channel     = excluded.channel,
			api_level   = excluded.api_level,
			changes     = excluded.changes,
			mirror_id   = excluded.mirror_id
	`),
		r.Filename,
		r.Device,
		r.IncrementalVersion,
		r.TimestampUTC,
		r.Checksum,
		r.Channel,
		r.APILevel,
		r.Key,
		r.ChangelogURL,
		r.MirrorID,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", r.Key, err)
	}

	return nil
}

func deleteUpdate(ctx context.Context, q querier, d dialect, mirrorID int64, key string) error {
	_, err := q.ExecContext(ctx, d.rebind(`
		DELETE FROM updates
		WHERE mirror_id = ? AND url = ?
	`), mirrorID, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
