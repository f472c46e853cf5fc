package store

import (
	"context"
	"fmt"

	"github.com/roach88/otasync/internal/record"
)

// Tx is a reconciliation unit of work. Either every write made through it is
// committed or none is.
type Tx struct {
	tx      querierTx
	dialect dialect
}

// querierTx is the subset of *sql.Tx used by Tx.
type querierTx interface {
	querier
	Commit() error
	Rollback() error
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx, dialect: s.dialect}, nil
}

// MirrorKeys returns the urls published for a mirror as seen by this transaction.
func (t *Tx) MirrorKeys(ctx context.Context, mirrorID int64) ([]string, error) {
	return mirrorKeys(ctx, t.tx, t.dialect, mirrorID)
}

// Upsert inserts r or overwrites the existing (mirror_id, url) row.
func (t *Tx) Upsert(ctx context.Context, r record.Record) error {
	return upsert(ctx, t.tx, t.dialect, r)
}

// Delete removes the (mirrorID, key) row.
func (t *Tx) Delete(ctx context.Context, mirrorID int64, key string) error {
	return deleteUpdate(ctx, t.tx, t.dialect, mirrorID, key)
}

// InsertRun records a run in sync_runs.
func (t *Tx) InsertRun(ctx context.Context, run Run) error {
	return insertRun(ctx, t.tx, t.dialect, run)
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. After Commit it returns sql.ErrTxDone.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}
