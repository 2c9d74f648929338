package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/roach88/timelock/internal/store"
	"github.com/roach88/timelock/internal/vault"
)

// ReplayResult summarizes a successful replay.
type ReplayResult struct {
	Operations int    `json:"operations"`
	Applied    int    `json:"applied"`
	Rejected   int    `json:"rejected"`
	Events     int    `json:"events"`
	StateHash  string `json:"state_hash,omitempty"`
}

// Replay rebuilds the vault from the journal in s and checks it against
// what s has stored.
//
// Every journaled attempt is decoded and run through apply, the same path
// live operations take, at the time it originally observed. Each outcome
// must match the journaled one, and the rebuilt vault row and event log
// must equal the stored ones field for field. Any mismatch is reported as
// REPLAY_DIVERGED; for state mismatches Details["diff"] holds a line diff
// of stored against replayed.
//
// Replay never writes to s.
func Replay(ctx context.Context, s *store.Store) (ReplayResult, error) {
	var result ReplayResult

	ops, err := s.ReadOperations(ctx)
	if err != nil {
		return result, fmt.Errorf("replay: %w", err)
	}

	var (
		current   *vault.Vault
		createdAt int64
		lastSeq   int64
		rebuilt   []store.EventRecord
	)

	for _, op := range ops {
		result.Operations++

		caller, err := parseAddress(op.Caller)
		if err != nil {
			return result, divergence(op, "undecodable caller", err.Error())
		}
		req := request{kind: OpKind(op.Kind), caller: caller, args: op.Args}

		next, events, err := apply(current, req, op.Now)
		if err != nil && !vault.IsRejection(err) {
			return result, divergence(op, "operation cannot be re-executed", err.Error())
		}

		outcome, code := store.OutcomeApplied, ""
		if err != nil {
			outcome, code = store.OutcomeRejected, string(vault.CodeOf(err))
		}
		if outcome != op.Outcome || code != op.ErrorCode {
			return result, divergence(op, "outcome differs from journal",
				fmt.Sprintf("journaled %s %s, replayed %s %s", op.Outcome, op.ErrorCode, outcome, code))
		}

		if outcome == store.OutcomeRejected {
			result.Rejected++
			continue
		}

		result.Applied++
		if req.kind == OpCreate {
			createdAt = op.Now
		}
		current = next
		lastSeq = op.Seq
		for _, ev := range events {
			rec, err := eventRecord(ev, op.Seq, op.Now)
			if err != nil {
				return result, fmt.Errorf("replay: %w", err)
			}
			rebuilt = append(rebuilt, rec)
		}
	}

	var replayedRow *store.VaultRow
	if current != nil {
		row, err := vaultRow(current.State(), createdAt, lastSeq)
		if err != nil {
			return result, fmt.Errorf("replay: %w", err)
		}
		replayedRow = &row
		result.StateHash = row.StateHash
	}
	result.Events = len(rebuilt)

	var storedRow *store.VaultRow
	row, err := s.ReadVault(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return result, fmt.Errorf("replay: %w", err)
	default:
		storedRow = &row
	}

	storedEvents, err := s.ReadEvents(ctx, 0)
	if err != nil {
		return result, fmt.Errorf("replay: %w", err)
	}

	stored := renderHistory(storedRow, storedEvents)
	replayed := renderHistory(replayedRow, rebuilt)
	if stored != replayed {
		return result, &RuntimeError{
			Code:    ErrCodeReplayDiverged,
			Message: "replayed vault does not match stored vault",
			Details: map[string]string{
				"diff": lineDiff(stored, replayed),
			},
		}
	}

	return result, nil
}

func divergence(op store.Operation, message, detail string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeReplayDiverged,
		Message: message,
		OpID:    op.ID,
		Details: map[string]string{
			"seq":    fmt.Sprintf("%d", op.Seq),
			"kind":   op.Kind,
			"detail": detail,
		},
	}
}

// renderHistory writes a vault row and its log one field per line, so a
// line diff points at exactly what differs.
func renderHistory(row *store.VaultRow, events []store.EventRecord) string {
	var b strings.Builder
	if row == nil {
		b.WriteString("vault: none\n")
	} else {
		fmt.Fprintf(&b, "owner: %s\n", row.Owner)
		fmt.Fprintf(&b, "unlock_time: %d\n", row.UnlockTime)
		fmt.Fprintf(&b, "deposit_deadline: %d\n", row.DepositDeadline)
		fmt.Fprintf(&b, "balance: %s\n", row.Balance)
		fmt.Fprintf(&b, "created_at: %d\n", row.CreatedAt)
		fmt.Fprintf(&b, "updated_seq: %d\n", row.UpdatedSeq)
		fmt.Fprintf(&b, "state_hash: %s\n", row.StateHash)
	}
	for _, ev := range events {
		fmt.Fprintf(&b, "event %d: %s %s sender=%s amount=%s op_seq=%d at=%d\n",
			ev.Index, ev.ID, ev.Kind, ev.Sender, ev.Amount, ev.OpSeq, ev.At)
	}
	return b.String()
}

// lineDiff renders a line-level diff with -/+ markers.
func lineDiff(stored, replayed string) string {
	dmp := diffmatchpatch.New()

	a, b, lineArray := dmp.DiffLinesToChars(stored, replayed)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var buf strings.Builder
	buf.WriteString("--- stored\n")
	buf.WriteString("+++ replayed\n")
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			buf.WriteString(prefix)
			buf.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String()
}
