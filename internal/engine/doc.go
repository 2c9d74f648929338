// Package engine serializes all access to one timelock vault and makes it
// durable.
//
// ARCHITECTURE:
//
// Single Writer:
// Every operation runs under one lock, in arrival order. Within the lock
// the engine reads the time once, stamps the attempt with the next seq from
// the logical Clock, and runs the vault guard on a clone of the live vault.
//
// Outcomes:
//   - rejected: the attempt is journaled with its error code and the guard
//     error is returned unchanged; state and log are untouched
//   - applied: journal entry, new events and vault row are committed in one
//     SQLite transaction, then the clone replaces the live vault
//
// A failed commit leaves the live vault as it was and returns PERSIST_FAILED.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Journal order is seq order. Wall time is an input to the guards only,
// and it is clamped so it never runs backwards between operations.
//
// Structural Replay:
// Replay decodes each journaled attempt and runs it through the same apply
// function live operations use. There is no replay mode.
//
// Content-Addressed Events:
// Event ids hash (index, kind, sender, amount, op seq) over canonical JSON,
// so the same history always yields the same ids.
package engine
