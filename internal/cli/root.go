package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/timelock/internal/ir"
)

// DefaultDatabase is the store path used when --db is not given.
const DefaultDatabase = "timelock.db"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	Now      int64 // unix seconds; 0 means the system clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the timelock CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "timelock",
		Short:   "Time-locked custody vault",
		Version: ir.EngineVersion,
		Long: `Operate a single-asset vault that holds deposits until an unlock time.

Deposits are accepted until the deposit deadline; after the unlock time
the owner may withdraw the whole balance. Every attempt is journaled in a
SQLite database and can be replayed to verify the stored state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Now < 0 {
				return NewExitError(ExitCommandError, "--now must not be negative")
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", DefaultDatabase, "path to SQLite database")
	cmd.PersistentFlags().Int64Var(&opts.Now, "now", 0, "override the current time (unix seconds)")

	// Vault operations
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewDepositCommand(opts))
	cmd.AddCommand(NewWithdrawCommand(opts))
	cmd.AddCommand(NewSetOwnerCommand(opts))
	cmd.AddCommand(NewSetUnlockTimeCommand(opts))
	cmd.AddCommand(NewSetDepositDeadlineCommand(opts))

	// Inspection and tooling
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
