package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/timelock/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEntry `json:"trace"`
	State        *FinalState  `json:"state,omitempty"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, entry := range s.Trace {
		entryMap := map[string]any{
			"seq":     entry.Seq,
			"at":      entry.At,
			"op":      entry.Op,
			"caller":  entry.Caller,
			"outcome": entry.Outcome,
		}
		if entry.Error != "" {
			entryMap["error"] = entry.Error
		}
		if len(entry.Events) > 0 {
			events := make([]any, len(entry.Events))
			for j, ev := range entry.Events {
				events[j] = eventMap(ev)
			}
			entryMap["events"] = events
		}
		traceList[i] = entryMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if s.State != nil {
		result["state"] = map[string]any{
			"owner":            s.State.Owner,
			"balance":          s.State.Balance,
			"unlock_time":      s.State.UnlockTime,
			"deposit_deadline": s.State.DepositDeadline,
		}
	}
	return result
}

func eventMap(ev TraceEvent) map[string]any {
	m := map[string]any{
		"index":  ev.Index,
		"kind":   ev.Kind,
		"amount": ev.Amount,
	}
	if ev.Sender != "" {
		m["sender"] = ev.Sender
	}
	return m
}

// MarshalSnapshot renders a result as canonical JSON, the golden file format.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		State:        result.State,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/scenarios/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/scenarios/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
