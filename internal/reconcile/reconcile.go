package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/juju/collections/set"

	"github.com/roach88/otasync/internal/record"
	"github.com/roach88/otasync/internal/store"
)

// Tx is the persistence contract of one reconciliation run.
// *store.Tx implements it.
type Tx interface {
	MirrorKeys(ctx context.Context, mirrorID int64) ([]string, error)
	Upsert(ctx context.Context, r record.Record) error
	Delete(ctx context.Context, mirrorID int64, key string) error
	InsertRun(ctx context.Context, run store.Run) error
	Commit() error
	Rollback() error
}

// Beginner starts the transaction a run executes in.
type Beginner func(ctx context.Context) (Tx, error)

// FromStore adapts a store to a Beginner.
func FromStore(s *store.Store) Beginner {
	return func(ctx context.Context) (Tx, error) {
		tx, err := s.Begin(ctx)
		if err != nil {
			return nil, err
		}
		return tx, nil
	}
}

// Options configures a Reconciler. Zero values select production defaults.
type Options struct {
	Logger *slog.Logger
	// Now stamps sync_runs rows; defaults to time.Now.
	Now func() time.Time
	// RunIDs defaults to UUIDv7Generator.
	RunIDs RunIDGenerator
	// DryRun computes the Result from the snapshot without writing anything.
	DryRun bool
}

// Result reports what a run changed. It is meant for logging, not control flow.
type Result struct {
	RunID    string `json:"run_id,omitempty"`
	MirrorID int64  `json:"mirror_id"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Deleted  int    `json:"deleted"`
	Skipped  int    `json:"skipped"`
	DryRun   bool   `json:"dry_run,omitempty"`
	// DeletedKeys lists pruned urls in sorted order.
	DeletedKeys []string `json:"deleted_keys,omitempty"`
}

// Upserted is the number of distinct urls written.
func (r Result) Upserted() int {
	return r.Inserted + r.Updated
}

// Reconciler applies current records to storage.
type Reconciler struct {
	begin  Beginner
	logger *slog.Logger
	now    func() time.Time
	runIDs RunIDGenerator
	dryRun bool
}

// New creates a Reconciler.
func New(begin Beginner, opts Options) *Reconciler {
	r := &Reconciler{
		begin:  begin,
		logger: opts.Logger,
		now:    opts.Now,
		runIDs: opts.RunIDs,
		dryRun: opts.DryRun,
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.runIDs == nil {
		r.runIDs = UUIDv7Generator{}
	}
	return r
}

// ReconcileOutcomes reconciles the accepted outcomes and counts the skipped ones.
func (r *Reconciler) ReconcileOutcomes(ctx context.Context, mirrorID int64, outcomes []record.Outcome) (Result, error) {
	records, skipped := record.Split(outcomes)
	return r.reconcile(ctx, mirrorID, records, skipped)
}

// Reconcile makes the rows of mirrorID equal to current.
//
// Every record is upserted whether or not it changed. Each record is written
// under mirrorID regardless of its own MirrorID field, so a run can never
// touch another mirror. When current holds the same key twice the last one
// wins.
func (r *Reconciler) Reconcile(ctx context.Context, mirrorID int64, current []record.Record) (Result, error) {
	return r.reconcile(ctx, mirrorID, current, 0)
}

func (r *Reconciler) reconcile(ctx context.Context, mirrorID int64, current []record.Record, skipped int) (res Result, err error) {
	if mirrorID < 0 {
		return Result{}, fmt.Errorf("%w: negative mirror id %d", ErrInvalidInput, mirrorID)
	}
	for _, rec := range current {
		if err := rec.Validate(); err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}

	log := r.logger.With("mirror_id", mirrorID)
	started := r.now()
	res = Result{MirrorID: mirrorID, Skipped: skipped, DryRun: r.dryRun}

	tx, err := r.begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn("rollback failed", "error", rbErr)
		}
	}()

	// Step 1: snapshot
	persisted, err := tx.MirrorKeys(ctx, mirrorID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: snapshot: %w", ErrStorageUnavailable, err)
	}
	existing := set.NewStrings(persisted...)
	stale := set.NewStrings(persisted...)
	seen := set.NewStrings()
	log.Debug("snapshot taken", "persisted", existing.Size(), "current", len(current))

	// Step 2: upsert
	for _, rec := range current {
		rec.MirrorID = mirrorID
		if !r.dryRun {
			log.Debug("upserting", "url", rec.Key, "filename", rec.Filename)
			if err := tx.Upsert(ctx, rec); err != nil {
				return Result{}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
			}
		}
		stale.Remove(rec.Key)

		if seen.Contains(rec.Key) {
			log.Warn("duplicate url in current records, last one wins", "url", rec.Key)
			continue
		}
		seen.Add(rec.Key)
		if existing.Contains(rec.Key) {
			res.Updated++
		} else {
			res.Inserted++
		}
	}

	// Step 3: prune
	for _, key := range stale.SortedValues() {
		if !r.dryRun {
			log.Debug("removing", "url", key)
			if err := tx.Delete(ctx, mirrorID, key); err != nil {
				return Result{}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
			}
		}
		res.Deleted++
		res.DeletedKeys = append(res.DeletedKeys, key)
	}

	if r.dryRun {
		log.Info("dry run complete",
			"inserted", res.Inserted,
			"updated", res.Updated,
			"deleted", res.Deleted,
			"skipped", res.Skipped,
		)
		return res, nil
	}

	// Step 4: log the run and commit
	res.RunID = r.runIDs.Generate()
	run := store.Run{
		ID:         res.RunID,
		MirrorID:   mirrorID,
		StartedAt:  started,
		FinishedAt: r.now(),
		Inserted:   res.Inserted,
		Updated:    res.Updated,
		Deleted:    res.Deleted,
		Skipped:    res.Skipped,
	}
	if err := tx.InsertRun(ctx, run); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	committed = true

	log.Info("reconciled",
		"run_id", res.RunID,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"deleted", res.Deleted,
		"skipped", res.Skipped,
	)
	return res, nil
}
