package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	result := NewResult()
	result.Trace = []TraceEntry{
		{Seq: 1, At: 0, Op: "create", Caller: "owner", Outcome: OutcomeApplied},
		{Seq: 2, At: 60, Op: "deposit", Caller: "alice", Outcome: OutcomeApplied,
			Events: []TraceEvent{{Index: 0, Kind: "Deposited", Sender: "alice", Amount: "5"}}},
		{Seq: 3, At: 70, Op: "withdraw", Caller: "alice", Outcome: OutcomeRejected, Error: "NOT_YET_UNLOCKED"},
	}
	result.Events = []TraceEvent{
		{Index: 0, Kind: "Deposited", Sender: "alice", Amount: "5"},
		{Index: 1, Kind: "Deposited", Sender: "bob", Amount: "7"},
		{Index: 2, Kind: "Withdrawn", Amount: "12"},
	}
	result.State = &FinalState{Owner: "owner", Balance: "0", UnlockTime: 86400, DepositDeadline: 43200}
	return result
}

func TestAssertFinalState_Match(t *testing.T) {
	err := assertFinalState(sampleResult(), Assertion{
		Type: AssertFinalState,
		Expect: map[string]any{
			"owner":            "owner",
			"balance":          "0x0",
			"unlock_time":      86400,
			"deposit_deadline": 43200,
		},
	})
	assert.NoError(t, err)
}

func TestAssertFinalState_Mismatch(t *testing.T) {
	err := assertFinalState(sampleResult(), Assertion{
		Type:   AssertFinalState,
		Expect: map[string]any{"balance": "5", "unlock_time": 1},
	})
	require.Error(t, err)

	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, AssertFinalState, assertErr.Type)
	assert.Equal(t, "balance=5, unlock_time=1", assertErr.Expected)
	assert.Equal(t, "balance=0, unlock_time=86400", assertErr.Actual)
}

func TestAssertFinalState_NoVault(t *testing.T) {
	result := sampleResult()
	result.State = nil

	err := assertFinalState(result, Assertion{Type: AssertFinalState, Expect: map[string]any{"balance": "0"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: no vault")
}

func TestAssertFinalState_OwnerByAddress(t *testing.T) {
	result := sampleResult()
	result.State.Owner = "0x90F79bf6EB2c4f870365E785982E1f101E93b906"

	err := assertFinalState(result, Assertion{
		Type:   AssertFinalState,
		Expect: map[string]any{"owner": "0x90f79bf6eb2c4f870365e785982e1f101e93b906"},
	})
	assert.NoError(t, err)
}

func TestAssertEventCount(t *testing.T) {
	three, two := 3, 2
	assert.NoError(t, assertEventCount(sampleResult(), Assertion{Type: AssertEventCount, Count: &three}))

	err := assertEventCount(sampleResult(), Assertion{Type: AssertEventCount, Count: &two})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 2 events")
	assert.Contains(t, err.Error(), "Actual: 3 events: [Deposited, Deposited, Withdrawn]")
}

func TestAssertEventOrder_Correct(t *testing.T) {
	err := assertEventOrder(sampleResult(), Assertion{
		Type:  AssertEventOrder,
		Kinds: []string{"Deposited", "Deposited", "Withdrawn"},
	})
	assert.NoError(t, err)
}

func TestAssertEventOrder_InterveningEventsAllowed(t *testing.T) {
	err := assertEventOrder(sampleResult(), Assertion{
		Type:  AssertEventOrder,
		Kinds: []string{"Deposited", "Withdrawn"},
	})
	assert.NoError(t, err)
}

func TestAssertEventOrder_WrongOrder(t *testing.T) {
	err := assertEventOrder(sampleResult(), Assertion{
		Type:  AssertEventOrder,
		Kinds: []string{"Withdrawn", "Deposited"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: Withdrawn -> Deposited")
}

func TestAssertEventOrder_TooManyRepeats(t *testing.T) {
	err := assertEventOrder(sampleResult(), Assertion{
		Type:  AssertEventOrder,
		Kinds: []string{"Withdrawn", "Withdrawn"},
	})
	assert.Error(t, err)
}

func TestAssertEventContains(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   bool
	}{
		{"kind only", Assertion{Kind: "Withdrawn"}, false},
		{"sender", Assertion{Kind: "Deposited", Sender: "bob"}, false},
		{"amount numeric compare", Assertion{Kind: "Withdrawn", Amount: "0xc"}, false},
		{"all fields", Assertion{Kind: "Deposited", Sender: "alice", Amount: "5"}, false},
		{"wrong sender", Assertion{Kind: "Deposited", Sender: "carol"}, true},
		{"wrong amount", Assertion{Kind: "Deposited", Sender: "bob", Amount: "5"}, true},
		{"wrong kind", Assertion{Kind: "Withdrawn", Sender: "alice"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertion.Type = AssertEventContains
			err := assertEventContains(sampleResult(), tt.assertion)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAssertionError_Format(t *testing.T) {
	err := assertEventContains(sampleResult(), Assertion{Type: AssertEventContains, Kind: "Deposited", Sender: "carol"})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: event_contains")
	assert.Contains(t, msg, "Expected: {Deposited sender=carol}")
	assert.Contains(t, msg, "Actual: [{Deposited sender=alice amount=5}, {Deposited sender=bob amount=7}, {Withdrawn amount=12}]")
	assert.Contains(t, msg, "Full trace:")
	assert.Contains(t, msg, "[2] +60 deposit by alice: applied {Deposited sender=alice amount=5}")
	assert.Contains(t, msg, "[3] +70 withdraw by alice: rejected NOT_YET_UNLOCKED")
}

func TestEvaluateAssertions(t *testing.T) {
	three := 3
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertEventCount, Count: &three},
		{Type: AssertEventOrder, Kinds: []string{"Withdrawn", "Deposited"}},
		{Type: AssertEventCount},
		{Type: "trace_contains"},
	})

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "event_order")
	assert.Contains(t, errs[1], "assertion[2]: event_count requires count")
	assert.Contains(t, errs[2], `assertion[3]: unknown assertion type "trace_contains"`)
}
