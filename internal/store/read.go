package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/timelock/internal/ir"
	"github.com/roach88/timelock/internal/queryir"
)

// ReadVault returns the current vault row.
// Returns ErrNotFound if no vault has been created yet.
func (s *Store) ReadVault(ctx context.Context) (VaultRow, error) {
	var row VaultRow
	err := s.db.QueryRowContext(ctx, `
		SELECT owner, unlock_time, deposit_deadline, balance, created_at, updated_seq, state_hash
		FROM vault
		WHERE id = 1
	`).Scan(
		&row.Owner,
		&row.UnlockTime,
		&row.DepositDeadline,
		&row.Balance,
		&row.CreatedAt,
		&row.UpdatedSeq,
		&row.StateHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return VaultRow{}, ErrNotFound
	}
	if err != nil {
		return VaultRow{}, fmt.Errorf("read vault: %w", err)
	}
	return row, nil
}

// ReadOperations returns the full journal ordered by seq.
// Returns an empty slice (not nil) when the journal is empty.
func (s *Store) ReadOperations(ctx context.Context) ([]Operation, error) {
	return s.QueryOperations(ctx, nil)
}

// ReadEvents returns log entries with index >= since, in log order.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ReadEvents(ctx context.Context, since int64) ([]EventRecord, error) {
	return s.QueryEvents(ctx, queryir.AtLeast{Field: "idx", Value: ir.IRInt(since)})
}

// LastSeq returns the highest journal seq, or 0 for an empty journal.
// The engine resumes its clock from this value.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM operations`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// LastNow returns the largest time any journaled operation observed, or 0.
// The engine uses it so a restarted process never runs the clock backwards.
func (s *Store) LastNow(ctx context.Context) (int64, error) {
	var now int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(now), 0) FROM operations`).Scan(&now)
	if err != nil {
		return 0, fmt.Errorf("last now: %w", err)
	}
	return now, nil
}
