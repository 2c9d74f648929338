package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/timelock/internal/testutil"
)

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

// at renders T0+offset as a --now value.
func at(offset int64) string {
	return strconv.FormatInt(testutil.T0+offset, 10)
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "timelock.db")
}

// createVault creates a vault owned by testutil.Owner at T0 that unlocks
// after a day, takes deposits for an hour and holds 10 initially.
func createVault(t *testing.T, db string) {
	t.Helper()
	_, err := runCLI(t, "--db", db, "--now", at(0), "create",
		"--owner", testutil.Owner.Hex(),
		"--unlock-time", at(testutil.OneDay),
		"--deposit-deadline", at(testutil.OneHour),
		"--initial-value", "10",
	)
	require.NoError(t, err)
}

// decodeResponse parses a JSON CLI response, decoding data into v when
// v is non-nil.
func decodeResponse(t *testing.T, out string, v any) CLIResponse {
	t.Helper()

	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if v != nil {
		require.NoError(t, json.Unmarshal(raw.Data, v))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}
