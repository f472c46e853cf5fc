package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/otasync/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the otasync CLI.
//
// Invoked without a subcommand it performs one sync run.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	syncOpts := &SyncOptions{RootOptions: opts}

	cmd := &cobra.Command{
		Use:   "otasync",
		Short: "Publish OTA archives found on disk to the downloads table",
		Long: `otasync scans the mirror's directories for OTA archives, reads the build
properties embedded in each one and reconciles the updates table of the
configured mirror with what is on disk: new archives are inserted, existing
ones refreshed and rows of archives that disappeared are deleted.

The configuration is read from config.ini in the working directory unless
--config is given.

Example:
  otasync
  otasync --config /etc/otasync/config.ini --verbose
  otasync --dry-run --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(syncOpts, cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultPath, "path to the INI configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.Flags().BoolVar(&syncOpts.DryRun, "dry-run", false, "report changes without writing them")

	// Add subcommands
	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadConfig reads the configuration, reporting failures as command errors.
func loadConfig(opts *RootOptions, formatter *OutputFormatter) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, outputError(formatter, ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	return cfg, nil
}

// outputError reports err through the formatter and returns the ExitError
// the command should fail with.
func outputError(formatter *OutputFormatter, exitCode int, code, message string, err error) error {
	_ = formatter.Error(code, message, err.Error())
	return WrapExitError(exitCode, message, err)
}
