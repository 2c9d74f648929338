package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/timelock/internal/engine"
	"github.com/roach88/timelock/internal/store"
)

// ReplayView reports a successful replay.
type ReplayView struct {
	engine.ReplayResult
	Verified bool `json:"verified"`
}

// Text implements Texter.
func (r ReplayView) Text() string {
	if r.Operations == 0 {
		return "Journal is empty.\n"
	}
	return fmt.Sprintf("✓ Replayed %d operation(s): %d applied, %d rejected, %d event(s)\n",
		r.Operations, r.Applied, r.Rejected, r.Events)
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify the stored vault",
		Long: `Re-execute every journaled operation against a fresh vault and compare
each outcome, the rebuilt vault and the event log with what is stored.

Exit codes:
  0 - Replay reproduced the stored history
  1 - Replay diverged (details and a diff are printed)
  2 - Command error (database not found, etc.)

Examples:
  timelock replay --db ./timelock.db
  timelock replay --db ./timelock.db --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	// Open the store directly: a tampered vault row must reach Replay
	// rather than fail in Load.
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	return verifyReplay(ctx, st, newFormatter(opts, cmd))
}

// verifyReplay replays st and reports the outcome through f.
func verifyReplay(ctx context.Context, st *store.Store, f *OutputFormatter) error {
	result, err := engine.Replay(ctx, st)
	if err == nil {
		return f.Success(ReplayView{ReplayResult: result, Verified: true})
	}

	var rtErr *engine.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != engine.ErrCodeReplayDiverged {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	if f.Format == "json" {
		if ferr := f.Error(string(rtErr.Code), rtErr.Message, rtErr.Details); ferr != nil {
			return ferr
		}
	} else {
		fmt.Fprintf(f.Writer, "✗ Replay diverged: %s\n", rtErr.Message)
		if seq, ok := rtErr.Details["seq"]; ok {
			fmt.Fprintf(f.Writer, "  at seq %s (%s): %s\n", seq, rtErr.Details["kind"], rtErr.Details["detail"])
		}
		if diff, ok := rtErr.Details["diff"]; ok {
			fmt.Fprint(f.Writer, diff)
		}
	}
	return WrapExitError(ExitFailure, "replay diverged", err)
}
