package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timelock/internal/ir"
)

func TestCommit_WritesOperationEventsAndVault(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	create := createTestOperation(1, "create", testOwner, testT0)
	create.Args = map[string]string{"unlock_time": "1700086400", "initial_value": "0"}
	require.NoError(t, s.Commit(ctx, create, nil, createTestRow("0", 1)))

	deposit := createTestOperation(2, "deposit", testOther, testT0+100)
	deposit.Args = map[string]string{"amount": "5"}
	events := []EventRecord{{Index: 0, OpSeq: 2, Kind: "Deposited", Sender: testOther, Amount: "5", At: testT0 + 100}}
	require.NoError(t, s.Commit(ctx, deposit, events, createTestRow("5", 2)))

	row, err := s.ReadVault(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5", row.Balance)
	assert.Equal(t, int64(2), row.UpdatedSeq)
	assert.Equal(t, testT0, row.CreatedAt)

	ops, err := s.ReadOperations(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "create", ops[0].Kind)
	assert.Equal(t, map[string]string{"amount": "5"}, ops[1].Args)
	assert.Equal(t, OutcomeApplied, ops[1].Outcome)

	got, err := s.ReadEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Deposited", got[0].Kind)
	assert.Equal(t, int64(2), got[0].OpSeq)

	wantID, err := ir.EventID(0, "Deposited", testOther, "5", 2)
	require.NoError(t, err)
	assert.Equal(t, wantID, got[0].ID, "event ID computed from content when not supplied")
}

func TestCommit_KeepsCreatedAtOnUpdate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, createTestOperation(1, "create", testOwner, testT0), nil, createTestRow("0", 1)))

	later := createTestRow("0", 2)
	later.CreatedAt = testT0 + 999
	later.Owner = testOther
	require.NoError(t, s.Commit(ctx, createTestOperation(2, "set_owner", testOwner, testT0+1), nil, later))

	row, err := s.ReadVault(ctx)
	require.NoError(t, err)
	assert.Equal(t, testT0, row.CreatedAt)
	assert.Equal(t, testOther, row.Owner)
}

func TestCommit_RollsBackOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Event references an operation that does not exist, so the FK fails
	// after the operation row was already inserted in the same tx.
	op := createTestOperation(1, "create", testOwner, testT0)
	events := []EventRecord{{Index: 0, OpSeq: 99, Kind: "Deposited", Sender: testOwner, Amount: "1", At: testT0}}
	err := s.Commit(ctx, op, events, createTestRow("1", 1))
	require.Error(t, err)

	ops, err := s.ReadOperations(ctx)
	require.NoError(t, err)
	assert.Empty(t, ops, "operation must not survive a failed commit")

	_, err = s.ReadVault(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommit_RejectsInvalidVaultRow(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	row := createTestRow("0", 1)
	row.DepositDeadline = row.UnlockTime + 1
	require.Error(t, s.Commit(ctx, createTestOperation(1, "create", testOwner, testT0), nil, row))

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}

func TestCommit_RequiresAppliedOutcome(t *testing.T) {
	s := createTestStore(t)

	op := createTestOperation(1, "withdraw", testOther, testT0)
	op.Outcome = OutcomeRejected
	err := s.Commit(context.Background(), op, nil, createTestRow("0", 1))
	assert.Error(t, err)
}

func TestCommit_DuplicateSeqFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, createTestOperation(1, "create", testOwner, testT0), nil, createTestRow("0", 1)))

	dup := createTestOperation(1, "deposit", testOwner, testT0)
	dup.ID = "another-id"
	assert.Error(t, s.Commit(ctx, dup, nil, createTestRow("0", 1)))
}

func TestWriteRejected_JournalsWithoutTouchingVault(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, createTestOperation(1, "create", testOwner, testT0), nil, createTestRow("7", 1)))

	rejected := createTestOperation(2, "withdraw", testOwner, testT0+10)
	rejected.Outcome = OutcomeRejected
	rejected.ErrorCode = "NOT_YET_UNLOCKED"
	require.NoError(t, s.WriteRejected(ctx, rejected))

	ops, err := s.ReadOperations(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, OutcomeRejected, ops[1].Outcome)
	assert.Equal(t, "NOT_YET_UNLOCKED", ops[1].ErrorCode)

	row, err := s.ReadVault(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7", row.Balance)
	assert.Equal(t, int64(1), row.UpdatedSeq)

	events, err := s.ReadEvents(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestWriteRejected_RequiresRejectedOutcome(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteRejected(context.Background(), createTestOperation(1, "withdraw", testOwner, testT0))
	assert.Error(t, err)
}

func TestImportAll(t *testing.T) {
	src := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, src.Commit(ctx, createTestOperation(1, "create", testOwner, testT0), nil, createTestRow("0", 1)))
	events := []EventRecord{{Index: 0, OpSeq: 2, Kind: "Deposited", Sender: testOwner, Amount: "3", At: testT0 + 1}}
	require.NoError(t, src.Commit(ctx, createTestOperation(2, "deposit", testOwner, testT0+1), events, createTestRow("3", 2)))

	row, err := src.ReadVault(ctx)
	require.NoError(t, err)
	ops, err := src.ReadOperations(ctx)
	require.NoError(t, err)
	evs, err := src.ReadEvents(ctx, 0)
	require.NoError(t, err)

	dst := createTestStore(t)
	require.NoError(t, dst.ImportAll(ctx, &row, ops, evs))

	gotRow, err := dst.ReadVault(ctx)
	require.NoError(t, err)
	assert.Equal(t, row, gotRow)

	gotOps, err := dst.ReadOperations(ctx)
	require.NoError(t, err)
	assert.Equal(t, ops, gotOps)

	gotEvents, err := dst.ReadEvents(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, evs, gotEvents)

	// A second import into the now populated store is refused.
	err = dst.ImportAll(ctx, &row, ops, evs)
	assert.ErrorIs(t, err, ErrNotEmpty)
}
