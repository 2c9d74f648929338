package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/roach88/timelock/internal/engine"
	"github.com/roach88/timelock/internal/store"
	"github.com/roach88/timelock/internal/testutil"
	"github.com/roach88/timelock/internal/vault"
)

// Run executes a scenario against a fresh engine and returns the result.
//
// The engine is backed by an in-memory SQLite store, a manual time source
// positioned at each step's offset, and sequential op IDs, so the same
// scenario always produces the same trace. After the last step the journal
// is replayed and any divergence fails the scenario.
//
// Expectation mismatches and failed assertions are reported in Result.Errors.
// A returned error means the scenario could not be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewManualTime(scenario.Start)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(st,
		engine.WithTimeSource(clock),
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator("op")),
		engine.WithLogger(logger),
	)

	result := NewResult()
	r := &runner{scenario: scenario, engine: eng, result: result}

	steps := append([]Step{scenario.Create.step()}, scenario.Steps...)
	for i, step := range steps {
		clock.Set(scenario.Start + step.At)
		if err := r.runStep(ctx, i, step); err != nil {
			return nil, err
		}
	}

	if err := r.collect(ctx); err != nil {
		return nil, err
	}

	if _, err := engine.Replay(ctx, st); err != nil {
		result.AddError(fmt.Sprintf("replay: %v", err))
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// step turns the create block into an ordinary create step.
func (c CreateStep) step() Step {
	unlock, deadline := c.UnlockTime, c.DepositDeadline
	return Step{
		At:              c.At,
		Op:              string(engine.OpCreate),
		Caller:          c.Owner,
		UnlockTime:      &unlock,
		DepositDeadline: &deadline,
		InitialValue:    c.InitialValue,
		ExpectError:     c.ExpectError,
	}
}

type runner struct {
	scenario *Scenario
	engine   *engine.Engine
	result   *Result
}

// runStep invokes one step, records it in the trace and checks its
// expectations. Only failures that are neither guard rejections nor
// lifecycle misuse abort the run.
func (r *runner) runStep(ctx context.Context, i int, step Step) error {
	label := fmt.Sprintf("step %d (%s by %s at +%d)", i, step.Op, step.Caller, step.At)

	receipt, err := r.invoke(ctx, step)
	code, rejected := rejectionCode(err)
	if err != nil && !rejected {
		return fmt.Errorf("%s: %w", label, err)
	}

	entry := TraceEntry{
		Seq:     receipt.Seq,
		At:      step.At,
		Op:      step.Op,
		Caller:  step.Caller,
		Outcome: OutcomeApplied,
	}
	if rejected {
		entry.Outcome = OutcomeRejected
		entry.Error = code
	}
	for _, ev := range receipt.Events {
		entry.Events = append(entry.Events, r.traceEvent(ev.Index, string(ev.Kind), ev.Sender, ev.Amount.String()))
	}
	r.result.Trace = append(r.result.Trace, entry)

	switch {
	case step.ExpectError != "" && !rejected:
		r.result.AddError(fmt.Sprintf("%s: expected %s, got success", label, step.ExpectError))
	case step.ExpectError != "" && code != step.ExpectError:
		r.result.AddError(fmt.Sprintf("%s: expected %s, got %s", label, step.ExpectError, code))
	case step.ExpectError == "" && rejected:
		r.result.AddError(fmt.Sprintf("%s: unexpected rejection: %v", label, err))
	case step.Expect != nil:
		r.checkExpect(label, step.Expect, receipt)
	}
	return nil
}

func (r *runner) checkExpect(label string, expect *ExpectClause, receipt engine.Receipt) {
	if expect.Amount != "" {
		got := "none"
		if receipt.Amount != nil {
			got = receipt.Amount.String()
		}
		if !amountsEqual(expect.Amount, got) {
			r.result.AddError(fmt.Sprintf("%s: expected amount %s, got %s", label, expect.Amount, got))
		}
	}
	if expect.Balance != "" {
		got := receipt.State.Balance.String()
		if !amountsEqual(expect.Balance, got) {
			r.result.AddError(fmt.Sprintf("%s: expected balance %s, got %s", label, expect.Balance, got))
		}
	}
}

func (r *runner) invoke(ctx context.Context, step Step) (engine.Receipt, error) {
	s := r.scenario
	caller, err := s.account(step.Caller)
	if err != nil {
		return engine.Receipt{}, err
	}

	switch engine.OpKind(step.Op) {
	case engine.OpCreate:
		initial, err := parseAmount(step.InitialValue)
		if err != nil {
			return engine.Receipt{}, fmt.Errorf("initial_value: %w", err)
		}
		return r.engine.Create(ctx, caller, s.Start+*step.UnlockTime, s.Start+*step.DepositDeadline, initial)
	case engine.OpDeposit:
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return engine.Receipt{}, fmt.Errorf("amount: %w", err)
		}
		return r.engine.Deposit(ctx, caller, amount)
	case engine.OpWithdraw:
		return r.engine.Withdraw(ctx, caller)
	case engine.OpSetOwner:
		newOwner, err := s.account(step.NewOwner)
		if err != nil {
			return engine.Receipt{}, err
		}
		return r.engine.SetOwner(ctx, caller, newOwner)
	case engine.OpSetUnlockTime:
		return r.engine.SetUnlockTime(ctx, caller, s.Start+*step.UnlockTime)
	case engine.OpSetDepositDeadline:
		return r.engine.SetDepositDeadline(ctx, caller, s.Start+*step.DepositDeadline)
	default:
		return engine.Receipt{}, fmt.Errorf("unknown op %q", step.Op)
	}
}

// collect captures the final vault state and event log.
func (r *runner) collect(ctx context.Context) error {
	state, err := r.engine.State()
	switch {
	case engine.IsNotCreated(err):
	case err != nil:
		return fmt.Errorf("read state: %w", err)
	default:
		r.result.State = &FinalState{
			Owner:           r.scenario.accountName(state.Owner),
			Balance:         state.Balance.String(),
			UnlockTime:      state.UnlockTime - r.scenario.Start,
			DepositDeadline: state.DepositDeadline - r.scenario.Start,
		}
	}

	records, err := r.engine.Events(ctx, 0)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	for _, rec := range records {
		r.result.Events = append(r.result.Events,
			r.traceEvent(rec.Index, rec.Kind, common.HexToAddress(rec.Sender), rec.Amount))
	}
	return nil
}

func (r *runner) traceEvent(index int64, kind string, sender common.Address, amount string) TraceEvent {
	ev := TraceEvent{Index: index, Kind: kind, Amount: amount}
	if sender != (common.Address{}) {
		ev.Sender = r.scenario.accountName(sender)
	}
	return ev
}

// rejectionCode reports whether err is an expected refusal (a guard
// rejection or lifecycle misuse) and its code.
func rejectionCode(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if vault.IsRejection(err) {
		return string(vault.CodeOf(err)), true
	}
	var rtErr *engine.RuntimeError
	if errors.As(err, &rtErr) {
		switch rtErr.Code {
		case engine.ErrCodeNotCreated, engine.ErrCodeAlreadyCreated:
			return string(rtErr.Code), true
		}
	}
	return "", false
}

// parseAmount accepts decimal or 0x-prefixed hex; empty means zero.
// Negative values pass through so scenarios can exercise INVALID_AMOUNT.
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	n, ok := math.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

func amountsEqual(expected, actual string) bool {
	e, err := parseAmount(expected)
	if err != nil {
		return false
	}
	a, err := parseAmount(actual)
	if err != nil {
		return false
	}
	return e.Cmp(a) == 0
}
