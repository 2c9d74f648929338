package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/timelock/internal/engine"
	"github.com/roach88/timelock/internal/ir"
	"github.com/roach88/timelock/internal/queryir"
	"github.com/roach88/timelock/internal/store"
)

// OperationView is a journal entry as printed by the CLI.
type OperationView struct {
	Seq       int64             `json:"seq"`
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Caller    string            `json:"caller"`
	Args      map[string]string `json:"args"`
	Now       int64             `json:"now"`
	Outcome   string            `json:"outcome"`
	ErrorCode string            `json:"error_code,omitempty"`
}

// JournalView lists journal entries.
type JournalView struct {
	Operations []OperationView `json:"operations"`
}

// Text implements Texter.
func (v JournalView) Text() string {
	if len(v.Operations) == 0 {
		return "No operations found.\n"
	}
	var b strings.Builder
	for _, op := range v.Operations {
		fmt.Fprintf(&b, "[%d] %d %s by %s: %s", op.Seq, op.Now, op.Kind, op.Caller, op.Outcome)
		if op.ErrorCode != "" {
			fmt.Fprintf(&b, " %s", op.ErrorCode)
		}
		keys := make([]string, 0, len(op.Args))
		for k := range op.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, op.Args[k])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func newOperationView(op store.Operation) OperationView {
	return OperationView{
		Seq:       op.Seq,
		ID:        op.ID,
		Kind:      op.Kind,
		Caller:    op.Caller,
		Args:      op.Args,
		Now:       op.Now,
		Outcome:   op.Outcome,
		ErrorCode: op.ErrorCode,
	}
}

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Kind    string
	Outcome string
	Caller  string
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled operations",
		Long: `List every attempted operation in seq order, applied or rejected.

Examples:
  timelock journal
  timelock journal --outcome rejected
  timelock journal --kind withdraw --caller 0xf39F...2266 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only operations of this kind (create, deposit, withdraw, ...)")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only applied or rejected operations")
	cmd.Flags().StringVar(&opts.Caller, "caller", "", "only operations by this account")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd)

	filter, err := journalFilter(opts)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ops, err := st.QueryOperations(ctx, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	view := JournalView{Operations: make([]OperationView, 0, len(ops))}
	for _, op := range ops {
		view.Operations = append(view.Operations, newOperationView(op))
	}
	return f.Success(view)
}

func journalFilter(opts *JournalOptions) (queryir.Predicate, error) {
	var preds []queryir.Predicate

	if opts.Kind != "" {
		if !engine.OpKind(opts.Kind).Valid() {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("--kind: unknown operation %q", opts.Kind))
		}
		preds = append(preds, queryir.Equals{Field: "kind", Value: ir.IRString(opts.Kind)})
	}

	switch opts.Outcome {
	case "":
	case store.OutcomeApplied, store.OutcomeRejected:
		preds = append(preds, queryir.Equals{Field: "outcome", Value: ir.IRString(opts.Outcome)})
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("--outcome: must be %s or %s", store.OutcomeApplied, store.OutcomeRejected))
	}

	if opts.Caller != "" {
		addr, err := parseAddressFlag("caller", opts.Caller)
		if err != nil {
			return nil, err
		}
		preds = append(preds, queryir.Equals{Field: "caller", Value: ir.IRString(addr.Hex())})
	}

	return queryir.All(preds...), nil
}
