package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/otasync/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Limit int
}

// RunsReport is the payload of the runs command.
type RunsReport struct {
	MirrorID int64       `json:"mirror_id"`
	Runs     []store.Run `json:"runs"`
}

func (r RunsReport) String() string {
	if len(r.Runs) == 0 {
		return fmt.Sprintf("mirror %d: no runs recorded", r.MirrorID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "mirror %d: %d runs", r.MirrorID, len(r.Runs))
	for _, run := range r.Runs {
		fmt.Fprintf(&b, "\n%s  %s  %s  +%d ~%d -%d skipped %d",
			run.ID,
			run.StartedAt.UTC().Format(time.RFC3339),
			run.FinishedAt.Sub(run.StartedAt),
			run.Inserted, run.Updated, run.Deleted, run.Skipped)
	}
	return b.String()
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sync runs of the configured mirror",
		Long: `List the most recent committed sync runs of the configured mirror, newest
first. Dry runs are never recorded.

Example:
  otasync runs
  otasync runs --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", store.DefaultRunLimit, "maximum number of runs to list")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Limit < 1 {
		return outputError(formatter, ExitCommandError, ErrCodeGeneric, "invalid limit",
			fmt.Errorf("--limit must be positive, got %d", opts.Limit))
	}

	cfg, err := loadConfig(opts.RootOptions, formatter)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, cfg.MirrorID, opts.Limit)
	if err != nil {
		return outputError(formatter, ExitFailure, ErrCodeStorage, "listing runs failed", err)
	}

	return formatter.Success(RunsReport{MirrorID: cfg.MirrorID, Runs: runs})
}
