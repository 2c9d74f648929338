package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timelock/internal/testutil"
)

func TestCreateFromFlags(t *testing.T) {
	db := tempDB(t)

	out, err := runCLI(t, "--db", db, "--now", at(0), "--format", "json", "create",
		"--owner", testutil.Owner.Hex(),
		"--unlock-in", "48h",
		"--deposit-deadline-in", "1h",
		"--initial-value", "0x2a",
	)
	require.NoError(t, err)

	var receipt ReceiptView
	resp := decodeResponse(t, out, &receipt)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(1), receipt.Seq)
	assert.Equal(t, "create", receipt.Kind)
	assert.Empty(t, receipt.Events)
	assert.Equal(t, StateView{
		Owner:           testutil.Owner.Hex(),
		UnlockTime:      testutil.T0 + 2*testutil.OneDay,
		DepositDeadline: testutil.T0 + testutil.OneHour,
		Balance:         "42",
	}, receipt.State)
}

func TestCreateDefaultsFromSchema(t *testing.T) {
	db := tempDB(t)

	out, err := runCLI(t, "--db", db, "--now", at(0), "--format", "json", "create",
		"--owner", testutil.Owner.Hex(),
	)
	require.NoError(t, err)

	var receipt ReceiptView
	decodeResponse(t, out, &receipt)
	assert.Equal(t, testutil.T0+testutil.OneDay, receipt.State.UnlockTime)
	assert.Equal(t, receipt.State.UnlockTime, receipt.State.DepositDeadline)
	assert.Equal(t, "0", receipt.State.Balance)
}

func TestCreateFromConfigFile(t *testing.T) {
	db := tempDB(t)

	out, err := runCLI(t, "--db", db, "--now", at(0), "create",
		"--config", filepath.Join("..", "config", "testdata", "deploy.json"),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ create applied (seq 1")
	assert.Contains(t, out, "unlock_time:      1700172800")
	assert.Contains(t, out, "deposit_deadline: 1700172800")
}

func TestCreateConfigConflictsWithFlags(t *testing.T) {
	db := tempDB(t)

	out, err := runCLI(t, "--db", db, "--now", at(0), "create",
		"--config", filepath.Join("..", "config", "testdata", "deploy.json"),
		"--owner", testutil.Other.Hex(),
	)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [INVALID_CONFIG]")
	assert.Contains(t, out, "--config cannot be combined with --owner")
}

func TestCreateInvalidOwner(t *testing.T) {
	db := tempDB(t)

	_, err := runCLI(t, "--db", db, "--now", at(0), "create", "--owner", "not-an-address")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCreateRejectedByGuard(t *testing.T) {
	db := tempDB(t)

	out, err := runCLI(t, "--db", db, "--now", at(0), "create",
		"--owner", testutil.Owner.Hex(),
		"--unlock-time", at(testutil.OneHour),
		"--deposit-deadline", at(testutil.OneDay),
	)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error [DEADLINE_AFTER_UNLOCK]: Deposit deadline must be before or equal to unlock time\n", out)

	// A rejected create leaves the vault uncreated.
	out, err = runCLI(t, "--db", db, "--now", at(0), "status")
	require.NoError(t, err)
	assert.Equal(t, "No vault created.\n", out)
}

func TestCreateTwice(t *testing.T) {
	db := tempDB(t)
	createVault(t, db)

	out, err := runCLI(t, "--db", db, "--now", at(1), "--format", "json", "create",
		"--owner", testutil.Other.Hex(),
	)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_CREATED", resp.Error.Code)
}

func TestOperationBeforeCreate(t *testing.T) {
	db := tempDB(t)

	out, err := runCLI(t, "--db", db, "--now", at(0), "deposit",
		"--from", testutil.Other.Hex(), "--amount", "5")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [NOT_CREATED]")
}

func TestDepositAndWithdrawLifecycle(t *testing.T) {
	db := tempDB(t)
	createVault(t, db)

	out, err := runCLI(t, "--db", db, "--now", at(testutil.OneHour), "deposit",
		"--from", testutil.Other.Hex(), "--amount", "5")
	require.NoError(t, err, "deposit at the deadline is accepted")
	assert.Contains(t, out, "✓ deposit applied (seq 2")
	assert.Contains(t, out, "event #0 Deposited amount=5 sender="+testutil.Other.Hex())
	assert.Contains(t, out, "balance:          15")

	out, err = runCLI(t, "--db", db, "--now", at(testutil.OneHour+1), "deposit",
		"--from", testutil.Other.Hex(), "--amount", "5")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error [DEPOSITS_CLOSED]: Deposits are no longer allowed\n", out)

	out, err = runCLI(t, "--db", db, "--now", at(testutil.OneDay-1), "withdraw",
		"--caller", testutil.Owner.Hex())
	require.Error(t, err)
	assert.Contains(t, out, "Error [NOT_YET_UNLOCKED]")

	out, err = runCLI(t, "--db", db, "--now", at(testutil.OneDay), "withdraw",
		"--caller", testutil.Other.Hex())
	require.Error(t, err)
	assert.Contains(t, out, "Error [NOT_OWNER]")

	out, err = runCLI(t, "--db", db, "--now", at(testutil.OneDay), "--format", "json", "withdraw",
		"--caller", testutil.Owner.Hex())
	require.NoError(t, err)

	var receipt ReceiptView
	decodeResponse(t, out, &receipt)
	assert.Equal(t, int64(6), receipt.Seq, "rejected attempts still consume a seq")
	assert.Equal(t, "15", receipt.Amount)
	assert.Equal(t, "0", receipt.State.Balance)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, EventView{Index: 1, Kind: "Withdrawn", Amount: "15"}, receipt.Events[0])
}

func TestRejectionDetailsJSON(t *testing.T) {
	db := tempDB(t)
	createVault(t, db)

	out, err := runCLI(t, "--db", db, "--now", at(5), "--format", "json", "set-owner",
		"--caller", testutil.Other.Hex(), "--new-owner", testutil.Other.Hex())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_OWNER", resp.Error.Code)
	assert.Equal(t, "You aren't the owner", resp.Error.Message)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), details["seq"])
	assert.Equal(t, float64(testutil.T0+5), details["now"])
	assert.NotEmpty(t, details["op_id"])
}

func TestNegativeAmountRejected(t *testing.T) {
	db := tempDB(t)
	createVault(t, db)

	out, err := runCLI(t, "--db", db, "--now", at(1), "deposit",
		"--from", testutil.Other.Hex(), "--amount", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [INVALID_AMOUNT]")
}

func TestMalformedAmountFlag(t *testing.T) {
	db := tempDB(t)
	createVault(t, db)

	_, err := runCLI(t, "--db", db, "--now", at(1), "deposit",
		"--from", testutil.Other.Hex(), "--amount", "ten")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `--amount: invalid amount "ten"`)
}

func TestOwnershipAndTimeChanges(t *testing.T) {
	db := tempDB(t)
	createVault(t, db)

	_, err := runCLI(t, "--db", db, "--now", at(10), "set-unlock-time",
		"--caller", testutil.Owner.Hex(), "--unlock-time", at(2*testutil.OneDay))
	require.NoError(t, err)

	out, err := runCLI(t, "--db", db, "--now", at(11), "set-unlock-time",
		"--caller", testutil.Owner.Hex(), "--unlock-time", at(testutil.OneDay))
	require.Error(t, err)
	assert.Contains(t, out, "Error [CANNOT_DECREASE_LOCK_TIME]")

	_, err = runCLI(t, "--db", db, "--now", at(12), "set-deposit-deadline",
		"--caller", testutil.Owner.Hex(), "--deposit-deadline", at(2*testutil.OneDay))
	require.NoError(t, err, "deadline may equal the unlock time")

	_, err = runCLI(t, "--db", db, "--now", at(13), "set-owner",
		"--caller", testutil.Owner.Hex(), "--new-owner", testutil.NewOwner.Hex())
	require.NoError(t, err)

	out, err = runCLI(t, "--db", db, "--now", at(14), "--format", "json", "status")
	require.NoError(t, err)

	var status StatusView
	decodeResponse(t, out, &status)
	require.NotNil(t, status.State)
	assert.Equal(t, testutil.NewOwner.Hex(), status.State.Owner)
	assert.Equal(t, testutil.T0+2*testutil.OneDay, status.State.UnlockTime)
	assert.Equal(t, testutil.T0+2*testutil.OneDay, status.State.DepositDeadline)
}

func TestSessionRejectsCorruptStore(t *testing.T) {
	db := tempDB(t)
	createVault(t, db)

	// Overwrite the file so SQLite no longer recognises it.
	require.NoError(t, os.WriteFile(db, []byte("not a database"), 0o600))

	_, err := runCLI(t, "--db", db, "--now", at(1), "status")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
