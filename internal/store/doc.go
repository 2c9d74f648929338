// Package store provides SQLite-backed durable storage for a timelock vault.
//
// The store holds three tables:
//   - vault: the single current record (owner, bounds, balance, state hash)
//   - operations: a journal of every attempted operation, applied or rejected
//   - events: the vault's append-only event log
//
// # Critical Patterns
//
// Atomic commit: an applied operation writes its journal entry, its new
// events and the updated vault row in one transaction. Either all three
// land or none do.
//
// Append-only log: triggers abort any UPDATE or DELETE on events (added by
// migration 1), so the log can be handed to readers without copying.
//
// Deterministic reads: journal reads ORDER BY seq ASC, event reads ORDER BY
// idx ASC.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Events must reference a journaled operation
//
// Event IDs are computed via ir.EventID using RFC 8785 canonical JSON and
// SHA-256 with domain separation.
package store
