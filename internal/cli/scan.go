package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/otasync/internal/collector"
	"github.com/roach88/otasync/internal/record"
)

// ScanReport lists what a sync run would publish.
type ScanReport struct {
	Outcomes []record.Outcome `json:"outcomes"`
	Stats    collector.Stats  `json:"stats"`
}

func (r ScanReport) String() string {
	var b strings.Builder
	for _, o := range r.Outcomes {
		switch o.Kind {
		case record.Accepted:
			fmt.Fprintf(&b, "accepted %s %s/%s %s %s\n",
				o.Record.Key, o.Record.Device, o.Record.Channel, o.Record.IncrementalVersion, o.Record.Checksum)
		default:
			fmt.Fprintf(&b, "skipped  %s (%s)\n", o.Path, o.Reason)
		}
	}
	fmt.Fprintf(&b, "%d archives: %d accepted, %d skipped", r.Stats.Archives, r.Stats.Accepted, r.Stats.Skipped)
	return b.String()
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the archives a sync run would publish",
		Long: `Scan the configured directories and extract every archive exactly like a
sync run does, without opening the database.

Example:
  otasync scan
  otasync scan --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(rootOpts, cmd)
		},
	}
	return cmd
}

func runScan(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, formatter)
	if err != nil {
		return err
	}

	logger, syncLog := newLogger(opts.Verbose, cmd.ErrOrStderr())
	defer func() { _ = syncLog() }()

	outcomes, stats, err := collector.New(cfg, logger).Collect(cmd.Context())
	if err != nil {
		return outputRunError(formatter, err)
	}

	return formatter.Success(ScanReport{Outcomes: outcomes, Stats: stats})
}
