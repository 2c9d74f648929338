package store

// Operation outcomes recorded in the journal.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
)

// VaultRow is the persisted vault record. Addresses are checksummed hex,
// amounts are base-10 strings.
type VaultRow struct {
	Owner           string `json:"owner"`
	UnlockTime      int64  `json:"unlock_time"`
	DepositDeadline int64  `json:"deposit_deadline"`
	Balance         string `json:"balance"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedSeq      int64  `json:"updated_seq"`
	StateHash       string `json:"state_hash"`
}

// Operation is one journal entry: an attempted vault operation and how it
// ended. Args values are strings so the record hashes and round-trips
// without float or big-number ambiguity.
type Operation struct {
	Seq       int64             `json:"seq"`
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Caller    string            `json:"caller"`
	Args      map[string]string `json:"args"`
	Now       int64             `json:"now"`
	Outcome   string            `json:"outcome"`
	ErrorCode string            `json:"error_code,omitempty"`
}

// EventRecord is a persisted event log entry.
type EventRecord struct {
	Index  int64  `json:"index"`
	ID     string `json:"id"`
	OpSeq  int64  `json:"op_seq"`
	Kind   string `json:"kind"`
	Sender string `json:"sender"`
	Amount string `json:"amount"`
	At     int64  `json:"at"`
}
