package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/otasync/internal/collector"
	"github.com/roach88/otasync/internal/config"
	"github.com/roach88/otasync/internal/reconcile"
	"github.com/roach88/otasync/internal/store"
)

// SyncOptions holds flags for a sync run.
type SyncOptions struct {
	*RootOptions
	DryRun bool
}

// SyncSummary is the payload printed after a sync run.
type SyncSummary struct {
	reconcile.Result
	Collect collector.Stats `json:"collect"`
}

func (s SyncSummary) String() string {
	var b strings.Builder
	if s.DryRun {
		b.WriteString("dry run: ")
	}
	fmt.Fprintf(&b, "mirror %d: %d inserted, %d updated, %d deleted, %d skipped",
		s.MirrorID, s.Inserted, s.Updated, s.Deleted, s.Skipped)
	fmt.Fprintf(&b, " (%d archives, %d sidecar checksums, %s hashed)",
		s.Collect.Archives, s.Collect.Sidecars, humanize.Bytes(uint64(s.Collect.HashedBytes)))
	if s.RunID != "" {
		fmt.Fprintf(&b, "\nrun %s", s.RunID)
	}
	for _, key := range s.DeletedKeys {
		fmt.Fprintf(&b, "\n  - %s", key)
	}
	return b.String()
}

// runSync performs one sync run: open storage, collect, reconcile.
//
// Storage is opened before the scan so an unreachable database fails fast
// without reading any archive.
func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, formatter)
	if err != nil {
		return err
	}

	logger, syncLog := newLogger(opts.Verbose, cmd.ErrOrStderr())
	defer func() { _ = syncLog() }()

	ctx := cmd.Context()
	logger = logger.With("mirror_id", cfg.MirrorID)
	logger.Info("starting sync", "base_path", cfg.BasePath, "database", cfg.Database.Redacted(), "dry_run", opts.DryRun)

	st, err := openStore(ctx, cfg, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	outcomes, stats, err := collector.New(cfg, logger).Collect(ctx)
	if err != nil {
		return outputRunError(formatter, err)
	}

	rec := reconcile.New(reconcile.FromStore(st), reconcile.Options{
		Logger: logger,
		DryRun: opts.DryRun,
	})
	result, err := rec.ReconcileOutcomes(ctx, cfg.MirrorID, outcomes)
	if err != nil {
		return outputRunError(formatter, err)
	}

	return formatter.Success(SyncSummary{Result: result, Collect: stats})
}

// openStore opens and pings the configured database.
func openStore(ctx context.Context, cfg *config.Config, formatter *OutputFormatter) (*store.Store, error) {
	st, err := store.OpenDriver(cfg.Database.Driver, cfg.Database.DSN())
	if err == nil {
		if err = st.Ping(ctx); err != nil {
			_ = st.Close()
		}
	}
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", reconcile.ErrStorageUnavailable, cfg.Database.Redacted(), err)
		return nil, outputError(formatter, ExitFailure, ErrCodeStorage, "storage unavailable", err)
	}
	return st, nil
}

// outputRunError maps a collection or reconciliation failure to its code.
func outputRunError(formatter *OutputFormatter, err error) error {
	var extractErr *collector.ExtractError
	switch {
	case errors.As(err, &extractErr):
		return outputError(formatter, ExitFailure, ErrCodeExtract, "archive extraction failed", err)
	case errors.Is(err, reconcile.ErrStorageUnavailable):
		return outputError(formatter, ExitFailure, ErrCodeStorage, "storage unavailable", err)
	case errors.Is(err, reconcile.ErrWriteFailed):
		return outputError(formatter, ExitFailure, ErrCodeWriteFailed, "write failed, run rolled back", err)
	default:
		return outputError(formatter, ExitFailure, ErrCodeGeneric, "sync failed", err)
	}
}
