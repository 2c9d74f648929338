package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timelock/internal/testutil"
)

func TestStatusNoVault(t *testing.T) {
	db := tempDB(t)

	out, err := runCLI(t, "--db", db, "--now", at(0), "status")
	require.NoError(t, err)
	assert.Equal(t, "No vault created.\n", out)

	out, err = runCLI(t, "--db", db, "--now", at(0), "--format", "json", "status")
	require.NoError(t, err)

	var status StatusView
	resp := decodeResponse(t, out, &status)
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, status.Created)
	assert.Nil(t, status.State)
}

func TestStatusWindows(t *testing.T) {
	db := tempDB(t)
	createVault(t, db)

	tests := []struct {
		name         string
		now          int64
		locked       bool
		depositsOpen bool
	}{
		{"before deadline", 1, true, true},
		{"at deadline", testutil.OneHour, true, true},
		{"after deadline", testutil.OneHour + 1, true, false},
		{"at unlock", testutil.OneDay, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, "--db", db, "--now", at(tt.now), "--format", "json", "status")
			require.NoError(t, err)

			var status StatusView
			decodeResponse(t, out, &status)
			assert.True(t, status.Created)
			assert.Equal(t, testutil.T0+tt.now, status.Now)
			assert.Equal(t, tt.locked, status.Locked)
			assert.Equal(t, tt.depositsOpen, status.DepositsOpen)
			assert.Equal(t, int64(1), status.Seq)
			assert.Equal(t, "10", status.State.Balance)
		})
	}
}

func TestStatusText(t *testing.T) {
	db := tempDB(t)
	createVault(t, db)

	out, err := runCLI(t, "--db", db, "--now", at(testutil.TwelveHours), "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Vault locked, deposits closed (now 1700043200)\n")
	assert.Contains(t, out, "owner:            "+testutil.Owner.Hex())
	assert.Contains(t, out, "events:           0\n")
}

func TestEventsCursor(t *testing.T) {
	db := tempDB(t)
	createVault(t, db)

	for i, from := range []string{testutil.Other.Hex(), testutil.Third.Hex()} {
		_, err := runCLI(t, "--db", db, "--now", at(int64(i+1)), "deposit", "--from", from, "--amount", "3")
		require.NoError(t, err)
	}
	_, err := runCLI(t, "--db", db, "--now", at(testutil.OneDay), "withdraw", "--caller", testutil.Owner.Hex())
	require.NoError(t, err)

	out, err := runCLI(t, "--db", db, "--format", "json", "events")
	require.NoError(t, err)

	var all EventsView
	decodeResponse(t, out, &all)
	require.Len(t, all.Events, 3)
	assert.Equal(t, int64(3), all.Next)
	assert.Equal(t, "Deposited", all.Events[0].Kind)
	assert.Equal(t, testutil.Other.Hex(), all.Events[0].Sender)
	assert.Equal(t, testutil.T0+1, all.Events[0].At)
	assert.Equal(t, "Withdrawn", all.Events[2].Kind)
	assert.Equal(t, "16", all.Events[2].Amount)
	assert.Empty(t, all.Events[2].Sender)

	out, err = runCLI(t, "--db", db, "--format", "json", "events", "--since", "2")
	require.NoError(t, err)

	var tail EventsView
	decodeResponse(t, out, &tail)
	require.Len(t, tail.Events, 1)
	assert.Equal(t, int64(2), tail.Events[0].Index)

	out, err = runCLI(t, "--db", db, "events", "--since", "3")
	require.NoError(t, err)
	assert.Equal(t, "No events since 3.\n", out)
}

func TestEventsNegativeCursor(t *testing.T) {
	db := tempDB(t)

	_, err := runCLI(t, "--db", db, "events", "--since", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEventsFilters(t *testing.T) {
	db := tempDB(t)
	populate(t, db)

	out, err := runCLI(t, "--db", db, "--format", "json", "events", "--kind", "Deposited")
	require.NoError(t, err)

	var deposits EventsView
	decodeResponse(t, out, &deposits)
	require.Len(t, deposits.Events, 2)
	assert.Equal(t, int64(2), deposits.Next)

	// Lower-case input is normalised to the stored checksum form.
	out, err = runCLI(t, "--db", db, "--format", "json", "events",
		"--sender", strings.ToLower(testutil.Third.Hex()))
	require.NoError(t, err)

	var fromThird EventsView
	decodeResponse(t, out, &fromThird)
	require.Len(t, fromThird.Events, 1)
	assert.Equal(t, "4", fromThird.Events[0].Amount)

	_, err = runCLI(t, "--db", db, "events", "--kind", "Received")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestJournal(t *testing.T) {
	db := tempDB(t)
	populate(t, db)

	out, err := runCLI(t, "--db", db, "--format", "json", "journal")
	require.NoError(t, err)

	var all JournalView
	decodeResponse(t, out, &all)
	require.Len(t, all.Operations, 5)
	assert.Equal(t, "create", all.Operations[0].Kind)
	assert.Equal(t, "3", all.Operations[1].Args["amount"])

	out, err = runCLI(t, "--db", db, "journal", "--outcome", "rejected")
	require.NoError(t, err)
	assert.Equal(t, "[5] 1700086400 withdraw by "+testutil.Other.Hex()+": rejected NOT_OWNER\n", out)

	out, err = runCLI(t, "--db", db, "--format", "json", "journal",
		"--kind", "withdraw", "--caller", testutil.Owner.Hex())
	require.NoError(t, err)

	var withdrawals JournalView
	decodeResponse(t, out, &withdrawals)
	require.Len(t, withdrawals.Operations, 1)
	assert.Equal(t, "applied", withdrawals.Operations[0].Outcome)
	assert.Equal(t, int64(4), withdrawals.Operations[0].Seq)
}

func TestJournalEmptyAndBadFlags(t *testing.T) {
	db := tempDB(t)

	out, err := runCLI(t, "--db", db, "journal")
	require.NoError(t, err)
	assert.Equal(t, "No operations found.\n", out)

	_, err = runCLI(t, "--db", db, "journal", "--outcome", "maybe")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, "--db", db, "journal", "--kind", "set-owner")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown operation "set-owner"`)
}
