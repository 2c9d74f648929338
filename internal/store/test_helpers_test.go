package store

import (
	"fmt"
	"path/filepath"
	"testing"
)

const (
	testOwner = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testOther = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	testT0    = int64(1_700_000_000)
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestOperation creates an applied operation with minimal fields.
func createTestOperation(seq int64, kind, caller string, now int64) Operation {
	return Operation{
		Seq:     seq,
		ID:      fmt.Sprintf("op-%d", seq),
		Kind:    kind,
		Caller:  caller,
		Args:    map[string]string{},
		Now:     now,
		Outcome: OutcomeApplied,
	}
}

// createTestRow creates a vault row as of the given seq.
func createTestRow(balance string, seq int64) VaultRow {
	return VaultRow{
		Owner:           testOwner,
		UnlockTime:      testT0 + 86400,
		DepositDeadline: testT0 + 43200,
		Balance:         balance,
		CreatedAt:       testT0,
		UpdatedSeq:      seq,
		StateHash:       "hash-" + balance,
	}
}
