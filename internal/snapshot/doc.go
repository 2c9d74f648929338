// Package snapshot moves a complete vault history between stores through a
// portable BBolt file.
//
// A snapshot file uses four buckets:
//   - meta: format version and record counts
//   - vault: the vault row, when a vault exists
//   - operations: journal entries keyed by big-endian seq
//   - events: log entries keyed by big-endian index
//
// Values are JSON. Big-endian keys make cursor order equal journal order,
// so Import reads records back exactly as they were written.
package snapshot
