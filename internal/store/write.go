package store

import (
	"context"
	"fmt"

	"github.com/roach88/timelock/internal/ir"
)

// Commit atomically records an applied operation: its journal entry, the
// events it appended, and the resulting vault row.
//
// Event IDs are computed here when empty, so callers only supply content.
// On any error the transaction is rolled back and nothing is written.
func (s *Store) Commit(ctx context.Context, op Operation, events []EventRecord, row VaultRow) error {
	if op.Outcome != OutcomeApplied {
		return fmt.Errorf("commit: operation %s has outcome %q, want %q", op.ID, op.Outcome, OutcomeApplied)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := insertOperation(ctx, tx, op); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	for _, ev := range events {
		if err := insertEvent(ctx, tx, ev); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}

	if err := upsertVault(ctx, tx, row); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// WriteRejected journals an operation that a guard refused. The vault row
// and event log are not touched.
func (s *Store) WriteRejected(ctx context.Context, op Operation) error {
	if op.Outcome != OutcomeRejected {
		return fmt.Errorf("write rejected: operation %s has outcome %q, want %q", op.ID, op.Outcome, OutcomeRejected)
	}
	if err := insertOperation(ctx, s.db, op); err != nil {
		return fmt.Errorf("write rejected: %w", err)
	}
	return nil
}

// ImportAll loads a complete vault history into an empty store in one
// transaction. Used when restoring snapshots.
func (s *Store) ImportAll(ctx context.Context, row *VaultRow, ops []Operation, events []EventRecord) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operations`).Scan(&count); err != nil {
		return fmt.Errorf("import: count operations: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("import: %w", ErrNotEmpty)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("import: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		if err := insertOperation(ctx, tx, op); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}
	for _, ev := range events {
		if err := insertEvent(ctx, tx, ev); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}
	if row != nil {
		if err := upsertVault(ctx, tx, *row); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("import: commit: %w", err)
	}
	return nil
}

func insertOperation(ctx context.Context, ex execer, op Operation) error {
	args := op.Args
	if args == nil {
		args = map[string]string{}
	}
	argsJSON, err := ir.MarshalCanonical(args)
	if err != nil {
		return fmt.Errorf("marshal args for %s: %w", op.ID, err)
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO operations
		(seq, id, kind, caller, args, now, outcome, error_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		op.Seq,
		op.ID,
		op.Kind,
		op.Caller,
		string(argsJSON),
		op.Now,
		op.Outcome,
		op.ErrorCode,
	)
	if err != nil {
		return fmt.Errorf("insert operation %d: %w", op.Seq, err)
	}
	return nil
}

func insertEvent(ctx context.Context, ex execer, ev EventRecord) error {
	id := ev.ID
	if id == "" {
		var err error
		id, err = ir.EventID(ev.Index, ev.Kind, ev.Sender, ev.Amount, ev.OpSeq)
		if err != nil {
			return fmt.Errorf("event %d: %w", ev.Index, err)
		}
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO events
		(idx, id, op_seq, kind, sender, amount, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		ev.Index,
		id,
		ev.OpSeq,
		ev.Kind,
		ev.Sender,
		ev.Amount,
		ev.At,
	)
	if err != nil {
		return fmt.Errorf("insert event %d: %w", ev.Index, err)
	}
	return nil
}

func upsertVault(ctx context.Context, ex execer, row VaultRow) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO vault
		(id, owner, unlock_time, deposit_deadline, balance, created_at, updated_seq, state_hash)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner = excluded.owner,
			unlock_time = excluded.unlock_time,
			deposit_deadline = excluded.deposit_deadline,
			balance = excluded.balance,
			updated_seq = excluded.updated_seq,
			state_hash = excluded.state_hash
	`,
		row.Owner,
		row.UnlockTime,
		row.DepositDeadline,
		row.Balance,
		row.CreatedAt,
		row.UpdatedSeq,
		row.StateHash,
	)
	if err != nil {
		return fmt.Errorf("upsert vault: %w", err)
	}
	return nil
}
