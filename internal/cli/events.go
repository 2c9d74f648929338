package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/timelock/internal/ir"
	"github.com/roach88/timelock/internal/queryir"
	"github.com/roach88/timelock/internal/vault"
)

// EventsView lists log entries from a cursor.
type EventsView struct {
	Since  int64       `json:"since"`
	Next   int64       `json:"next"`
	Events []EventView `json:"events"`
}

// Text implements Texter.
func (v EventsView) Text() string {
	if len(v.Events) == 0 {
		return fmt.Sprintf("No events since %d.\n", v.Since)
	}
	var b strings.Builder
	for _, ev := range v.Events {
		fmt.Fprintf(&b, "%s (seq %d, at %d)\n", ev.line(), ev.OpSeq, ev.At)
	}
	return b.String()
}

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Since  int64
	Kind   string
	Sender string
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the event log",
		Long: `List Deposited and Withdrawn events in log order.

--since is a cursor: pass the "next" value from a previous call to get
only newer entries. --kind and --sender narrow the listing.

Examples:
  timelock events
  timelock events --kind Deposited --sender 0x7099...79C8
  timelock events --since 3 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Since, "since", 0, "first log index to return")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only events of this kind (Deposited|Withdrawn)")
	cmd.Flags().StringVar(&opts.Sender, "sender", "", "only deposits from this account")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd)

	if opts.Since < 0 {
		return NewExitError(ExitCommandError, "--since must not be negative")
	}
	filter, err := eventFilter(opts)
	if err != nil {
		return err
	}

	sess, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	records, err := sess.store.QueryEvents(ctx, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	view := EventsView{Since: opts.Since, Next: opts.Since, Events: make([]EventView, 0, len(records))}
	for _, rec := range records {
		view.Events = append(view.Events, newEventView(rec))
		view.Next = rec.Index + 1
	}
	return f.Success(view)
}

func eventFilter(opts *EventsOptions) (queryir.Predicate, error) {
	preds := []queryir.Predicate{
		queryir.AtLeast{Field: "idx", Value: ir.IRInt(opts.Since)},
	}
	switch vault.EventKind(opts.Kind) {
	case "":
	case vault.EventDeposited, vault.EventWithdrawn:
		preds = append(preds, queryir.Equals{Field: "kind", Value: ir.IRString(opts.Kind)})
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("--kind: unknown event kind %q", opts.Kind))
	}
	if opts.Sender != "" {
		addr, err := parseAddressFlag("sender", opts.Sender)
		if err != nil {
			return nil, err
		}
		preds = append(preds, queryir.Equals{Field: "sender", Value: ir.IRString(addr.Hex())})
	}
	return queryir.All(preds...), nil
}
