package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/timelock/internal/engine"
)

// StatusView reports the vault as of the current time.
type StatusView struct {
	Created      bool       `json:"created"`
	Now          int64      `json:"now"`
	Seq          int64      `json:"seq"`
	Events       int        `json:"events"`
	Locked       bool       `json:"locked"`
	DepositsOpen bool       `json:"deposits_open"`
	State        *StateView `json:"state,omitempty"`
}

// Text implements Texter.
func (s StatusView) Text() string {
	if !s.Created {
		return "No vault created.\n"
	}
	var b strings.Builder
	lock := "unlocked"
	if s.Locked {
		lock = "locked"
	}
	deposits := "closed"
	if s.DepositsOpen {
		deposits = "open"
	}
	fmt.Fprintf(&b, "Vault %s, deposits %s (now %d)\n", lock, deposits, s.Now)
	b.WriteString(s.State.Text())
	fmt.Fprintf(&b, "  events:           %d\n", s.Events)
	fmt.Fprintf(&b, "  last seq:         %d\n", s.Seq)
	return b.String()
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the vault state",
		Long: `Show the vault's owner, balance and times, and whether it is still
locked and accepting deposits at the current time (or --now).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts, cmd)

	sess, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	now := sess.time.Now()
	view := StatusView{Now: now, Seq: sess.engine.Seq()}

	state, err := sess.engine.State()
	switch {
	case engine.IsNotCreated(err):
		return f.Success(view)
	case err != nil:
		return WrapExitError(ExitCommandError, "failed to read state", err)
	}

	events, err := sess.engine.Events(ctx, 0)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	sv := newStateView(state)
	view.Created = true
	view.State = &sv
	view.Events = len(events)
	view.Locked = now < state.UnlockTime
	view.DepositsOpen = now <= state.DepositDeadline
	return f.Success(view)
}
