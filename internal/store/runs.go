package store

import (
	"context"
	"fmt"
	"time"
)

// Run is the audit row of one committed reconciliation.
type Run struct {
	ID         string    `json:"id"`
	MirrorID   int64     `json:"mirror_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Deleted    int       `json:"deleted"`
	Skipped    int       `json:"skipped"`
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DefaultRunLimit bounds ListRuns when the caller passes a non-positive limit.
const DefaultRunLimit = 20

// ListRuns returns the most recent runs of a mirror, newest first.
func (s *Store) ListRuns(ctx context.Context, mirrorID int64, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT id, mirror_id, started_at, finished_at, inserted, updated, deleted, skipped
		FROM sync_runs
		WHERE mirror_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`), mirrorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run               Run
			started, finished string
		)
		if err := rows.Scan(
			&run.ID,
			&run.MirrorID,
			&started,
			&finished,
			&run.Inserted,
			&run.Updated,
			&run.Deleted,
			&run.Skipped,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse run %s started_at: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("parse run %s finished_at: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// Timestamps are stored as UTC text so both engines sort them the same way.
func insertRun(ctx context.Context, q querier, d dialect, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("insert run: empty id")
	}

	_, err := q.ExecContext(ctx, d.rebind(`
		INSERT INTO sync_runs
		(id, mirror_id, started_at, finished_at, inserted, updated, deleted, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`),
		run.ID,
		run.MirrorID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.Inserted,
		run.Updated,
		run.Deleted,
		run.Skipped,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}
