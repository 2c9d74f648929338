package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/timelock/internal/queryir"
	"github.com/roach88/timelock/internal/querysql"
)

// QueryEvents returns the log entries matching filter, in log order.
// A nil filter returns the whole log. Returns an empty slice (not nil)
// when nothing matches.
func (s *Store) QueryEvents(ctx context.Context, filter queryir.Predicate) ([]EventRecord, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(queryir.Select{From: queryir.TableEvents, Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []EventRecord{}
	for rows.Next() {
		var ev EventRecord
		if err := rows.Scan(&ev.Index, &ev.ID, &ev.OpSeq, &ev.Kind, &ev.Sender, &ev.Amount, &ev.At); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// QueryOperations returns the journal entries matching filter, ordered by
// seq. A nil filter returns the whole journal.
func (s *Store) QueryOperations(ctx context.Context, filter queryir.Predicate) ([]Operation, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(queryir.Select{From: queryir.TableOperations, Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	ops := []Operation{}
	for rows.Next() {
		var (
			op       Operation
			argsJSON string
		)
		if err := rows.Scan(&op.Seq, &op.ID, &op.Kind, &op.Caller, &argsJSON, &op.Now, &op.Outcome, &op.ErrorCode); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		if err := json.Unmarshal([]byte(argsJSON), &op.Args); err != nil {
			return nil, fmt.Errorf("unmarshal args for operation %d: %w", op.Seq, err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}
