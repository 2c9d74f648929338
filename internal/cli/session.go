package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/timelock/internal/engine"
	"github.com/roach88/timelock/internal/store"
)

// session is an open store with a loaded engine on top.
type session struct {
	store  *store.Store
	engine *engine.Engine
	time   engine.TimeSource
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession opens the database named by --db and restores the vault.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	ts := timeSource(opts)
	eng := engine.New(st,
		engine.WithTimeSource(ts),
		engine.WithLogger(newLogger(cmd.ErrOrStderr(), opts.Verbose)),
	)
	if err := eng.Load(ctx); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load vault", err)
	}

	return &session{store: st, engine: eng, time: ts}, nil
}

// timeSource honours --now, falling back to the system clock.
func timeSource(opts *RootOptions) engine.TimeSource {
	if opts.Now > 0 {
		return engine.FixedTime(opts.Now)
	}
	return engine.SystemTime{}
}

// newLogger writes engine logs as text to w. Only warnings and errors are
// shown unless verbose is set.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
