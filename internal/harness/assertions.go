package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEntry // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, entry := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] +%d %s by %s: %s", entry.Seq, entry.At, entry.Op, entry.Caller, entry.Outcome)
		if entry.Error != "" {
			fmt.Fprintf(&buf, " %s", entry.Error)
		}
		for _, ev := range entry.Events {
			fmt.Fprintf(&buf, " %s", formatEvent(ev))
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// assertFinalState compares the listed vault fields with the final state.
func assertFinalState(result *Result, assertion Assertion) error {
	if result.State == nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: formatExpect(assertion.Expect),
			Actual:   "no vault",
			Trace:    result.Trace,
		}
	}

	var mismatches []string
	for _, key := range sortedKeys(assertion.Expect) {
		want := assertion.Expect[key]
		var ok bool
		var got string
		switch key {
		case "owner":
			got = result.State.Owner
			ok = accountsEqual(fmt.Sprint(want), got)
		case "balance":
			got = result.State.Balance
			ok = amountsEqual(fmt.Sprint(want), got)
		case "unlock_time":
			got = fmt.Sprint(result.State.UnlockTime)
			ok = fmt.Sprint(want) == got
		case "deposit_deadline":
			got = fmt.Sprint(result.State.DepositDeadline)
			ok = fmt.Sprint(want) == got
		}
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s=%s", key, got))
		}
	}

	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: formatExpect(assertion.Expect),
			Actual:   strings.Join(mismatches, ", "),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEventCount checks the log holds exactly the expected number of events.
func assertEventCount(result *Result, assertion Assertion) error {
	if len(result.Events) != *assertion.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d events", *assertion.Count),
			Actual:   fmt.Sprintf("%d events: %s", len(result.Events), formatKinds(result.Events)),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEventOrder checks the expected kinds appear in the log in order.
// Other events may appear between them.
func assertEventOrder(result *Result, assertion Assertion) error {
	next := 0
	for _, ev := range result.Events {
		if next < len(assertion.Kinds) && ev.Kind == assertion.Kinds[next] {
			next++
		}
	}
	if next < len(assertion.Kinds) {
		return &AssertionError{
			Type:     AssertEventOrder,
			Expected: strings.Join(assertion.Kinds, " -> "),
			Actual:   formatKinds(result.Events),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEventContains checks some event matches every field the assertion sets.
func assertEventContains(result *Result, assertion Assertion) error {
	for _, ev := range result.Events {
		if assertion.Kind != "" && ev.Kind != assertion.Kind {
			continue
		}
		if assertion.Sender != "" && !accountsEqual(assertion.Sender, ev.Sender) {
			continue
		}
		if assertion.Amount != "" && !amountsEqual(assertion.Amount, ev.Amount) {
			continue
		}
		return nil
	}

	want := TraceEvent{Kind: assertion.Kind, Sender: assertion.Sender, Amount: assertion.Amount}
	actual := make([]string, len(result.Events))
	for i, ev := range result.Events {
		actual[i] = formatEvent(ev)
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: formatEvent(want),
		Actual:   "[" + strings.Join(actual, ", ") + "]",
		Trace:    result.Trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertEventCount:
			if assertion.Count == nil {
				err = fmt.Errorf("assertion[%d]: event_count requires count", i)
			} else {
				err = assertEventCount(result, assertion)
			}
		case AssertEventOrder:
			err = assertEventOrder(result, assertion)
		case AssertEventContains:
			err = assertEventContains(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

// accountsEqual compares account names, or addresses when both sides are hex.
func accountsEqual(expected, actual string) bool {
	if expected == actual {
		return true
	}
	if common.IsHexAddress(expected) && common.IsHexAddress(actual) {
		return common.HexToAddress(expected) == common.HexToAddress(actual)
	}
	return false
}

func formatEvent(ev TraceEvent) string {
	var parts []string
	if ev.Kind != "" {
		parts = append(parts, ev.Kind)
	}
	if ev.Sender != "" {
		parts = append(parts, "sender="+ev.Sender)
	}
	if ev.Amount != "" {
		parts = append(parts, "amount="+ev.Amount)
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func formatKinds(events []TraceEvent) string {
	kinds := make([]string, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	return "[" + strings.Join(kinds, ", ") + "]"
}

func formatExpect(expect map[string]any) string {
	parts := make([]string, 0, len(expect))
	for _, k := range sortedKeys(expect) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, expect[k]))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
