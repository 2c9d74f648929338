package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timelock/internal/engine"
	"github.com/roach88/timelock/internal/store"
	"github.com/roach88/timelock/internal/testutil"
)

const scenariosDir = "../harness/testdata/scenarios"

// populate creates a vault with two deposits, a rejection and a withdrawal.
func populate(t *testing.T, db string) {
	t.Helper()
	createVault(t, db)

	steps := [][]string{
		{"--now", at(1), "deposit", "--from", testutil.Other.Hex(), "--amount", "3"},
		{"--now", at(2), "deposit", "--from", testutil.Third.Hex(), "--amount", "4"},
		{"--now", at(testutil.OneDay), "withdraw", "--caller", testutil.Owner.Hex()},
	}
	for _, args := range steps {
		_, err := runCLI(t, append([]string{"--db", db}, args...)...)
		require.NoError(t, err)
	}
	_, err := runCLI(t, "--db", db, "--now", at(testutil.OneDay), "withdraw", "--caller", testutil.Other.Hex())
	require.Error(t, err)
}

func TestReplayEmptyDatabase(t *testing.T) {
	db := tempDB(t)

	out, err := runCLI(t, "--db", db, "replay")
	require.NoError(t, err)
	assert.Equal(t, "Journal is empty.\n", out)
}

func TestReplayVerifiesHistory(t *testing.T) {
	db := tempDB(t)
	populate(t, db)

	out, err := runCLI(t, "--db", db, "replay")
	require.NoError(t, err)
	assert.Equal(t, "✓ Replayed 5 operation(s): 4 applied, 1 rejected, 3 event(s)\n", out)

	out, err = runCLI(t, "--db", db, "--format", "json", "replay")
	require.NoError(t, err)

	var view ReplayView
	resp := decodeResponse(t, out, &view)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, view.Verified)
	assert.Equal(t, 5, view.Operations)
	assert.NotEmpty(t, view.StateHash)
}

func tamperVault(t *testing.T, db string) {
	t.Helper()
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	_, err = st.DB().ExecContext(context.Background(), "UPDATE vault SET balance = '999' WHERE id = 1")
	require.NoError(t, err)
}

func TestReplayDetectsTampering(t *testing.T) {
	db := tempDB(t)
	populate(t, db)
	tamperVault(t, db)

	out, err := runCLI(t, "--db", db, "replay")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Replay diverged: replayed vault does not match stored vault")
	assert.Contains(t, out, "--- stored\n+++ replayed\n")
	assert.Contains(t, out, "-balance: 999\n")

	out, err = runCLI(t, "--db", db, "--format", "json", "replay")
	require.Error(t, err)

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(engine.ErrCodeReplayDiverged), resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details["diff"], "-balance: 999")
}

func TestTestCommandScenarios(t *testing.T) {
	out, err := runCLI(t, "test", scenariosDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ withdraw_after_unlock\n")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, err := runCLI(t, "--format", "json", "test", scenariosDir, "--filter", "deposit_*")
	require.NoError(t, err)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "deposit_deadline_boundary", result.Scenarios[0].Name)
	assert.True(t, result.Scenarios[0].Pass)
}

func TestTestCommandMissingDir(t *testing.T) {
	_, err := runCLI(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := runCLI(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

const failingScenario = `name: early_withdraw
description: "Withdraws before the unlock time without expecting a rejection"
create:
  owner: owner
  unlock_time: 100
  deposit_deadline: 50
steps:
  - at: 10
    op: withdraw
    caller: owner
assertions:
  - type: event_count
    count: 0
`

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "early_withdraw.yaml"), []byte(failingScenario), 0o644))

	out, err := runCLI(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ early_withdraw\n")
	assert.Contains(t, out, "unexpected rejection")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

const passingScenario = `name: late_withdraw
description: "Owner withdraws the initial value at unlock"
create:
  owner: owner
  unlock_time: 100
  deposit_deadline: 50
  initial_value: "7"
steps:
  - at: 100
    op: withdraw
    caller: owner
    expect:
      amount: "7"
assertions:
  - type: event_count
    count: 1
`

func TestTestCommandUpdateAndGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late_withdraw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(passingScenario), 0o644))

	out, err := runCLI(t, "test", dir, "--update")
	require.NoError(t, err, out)

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "late_withdraw.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"late_withdraw"`)

	_, err = runCLI(t, "test", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "late_withdraw.golden"), []byte("{}"), 0o644))
	out, err = runCLI(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestValidateCommand(t *testing.T) {
	params := filepath.Join("..", "config", "testdata", "deploy.cue")

	out, err := runCLI(t, "--now", at(0), "validate", params)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+params+" is valid (now 1700000000)")
	assert.Contains(t, out, "initial_value:    42")

	out, err = runCLI(t, "--now", at(0), "--format", "json", "validate", params)
	require.NoError(t, err)

	var view ValidateView
	decodeResponse(t, out, &view)
	assert.Equal(t, testutil.T0+2*testutil.OneDay, view.UnlockTime)
	assert.Equal(t, int64(1700086400), view.DepositDeadline)
}

func TestValidateGuardRejection(t *testing.T) {
	params := filepath.Join("..", "config", "testdata", "deploy.json")

	// deploy.json pins its unlock time, which is in the past by then.
	out, err := runCLI(t, "--now", "1800000000", "validate", params)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error [INVALID_UNLOCK_TIME]: Unlock time should be in the future\n", out)
}

func TestValidateSchemaError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"owner": "0x1234"}`), 0o644))

	out, err := runCLI(t, "--now", at(0), "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [INVALID_CONFIG]")
}

func TestExportImportRoundTrip(t *testing.T) {
	src := tempDB(t)
	populate(t, src)

	snap := filepath.Join(t.TempDir(), "vault.snap")
	out, err := runCLI(t, "--db", src, "export", snap)
	require.NoError(t, err)
	assert.Equal(t, "✓ exported "+snap+": vault, 5 operation(s), 3 event(s)\n", out)

	_, err = runCLI(t, "--db", src, "export", snap)
	require.Error(t, err, "an existing snapshot is never overwritten")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	dst := tempDB(t)
	out, err = runCLI(t, "--db", dst, "import", snap)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ imported "+snap)
	assert.Contains(t, out, "✓ Replayed 5 operation(s)")

	out, err = runCLI(t, "--db", dst, "--now", at(testutil.OneDay+1), "--format", "json", "status")
	require.NoError(t, err)

	var status StatusView
	decodeResponse(t, out, &status)
	require.NotNil(t, status.State)
	assert.Equal(t, "0", status.State.Balance)
	assert.Equal(t, 3, status.Events)
	assert.Equal(t, int64(5), status.Seq)

	_, err = runCLI(t, "--db", dst, "import", snap)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database already holds a vault history")
}

func TestImportTamperedHistory(t *testing.T) {
	src := tempDB(t)
	populate(t, src)
	tamperVault(t, src)

	snap := filepath.Join(t.TempDir(), "vault.snap")
	_, err := runCLI(t, "--db", src, "export", snap)
	require.NoError(t, err)

	out, err := runCLI(t, "--db", tempDB(t), "--format", "json", "import", snap)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "REPLAY_DIVERGED", resp.Error.Code)
}
