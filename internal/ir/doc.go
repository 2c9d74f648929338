// Package ir provides the canonical value representation used for
// content-addressed identity in timelock.
//
// This package contains value types and hashing only. All other internal
// packages may import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - amounts travel as decimal strings, times as int64
//   - Canonical JSON follows RFC 8785 (sorted keys, minimal escaping, NFC strings)
//   - All JSON keys use snake_case
package ir
