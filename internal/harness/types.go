package harness

// Step outcomes recorded in the trace.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
)

// TraceEntry records one attempted operation and what it did.
// Times are offsets from the scenario start; accounts are scenario names.
type TraceEntry struct {
	Seq     int64        `json:"seq"`
	At      int64        `json:"at"`
	Op      string       `json:"op"`
	Caller  string       `json:"caller"`
	Outcome string       `json:"outcome"`
	Error   string       `json:"error,omitempty"`
	Events  []TraceEvent `json:"events,omitempty"`
}

// TraceEvent is a log entry emitted by a step.
type TraceEvent struct {
	Index  int64  `json:"index"`
	Kind   string `json:"kind"`
	Sender string `json:"sender,omitempty"`
	Amount string `json:"amount"`
}

// FinalState is the vault as a scenario sees it after the last step.
// A nil *FinalState means no vault was ever created.
type FinalState struct {
	Owner           string `json:"owner"`
	Balance         string `json:"balance"`
	UnlockTime      int64  `json:"unlock_time"`
	DepositDeadline int64  `json:"deposit_deadline"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step met its expectation,
	// every assertion held and the journal replayed cleanly.
	Pass bool `json:"pass"`

	// Trace contains every attempted operation in order.
	Trace []TraceEntry `json:"trace"`

	// Events is the complete event log, in log order.
	Events []TraceEvent `json:"events"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final vault state, nil if creation never succeeded.
	State *FinalState `json:"state,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEntry{},
		Events: []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
