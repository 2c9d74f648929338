package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/timelock/internal/config"
	"github.com/roach88/timelock/internal/vault"
)

// ValidateView reports a parameters file that would create a vault.
type ValidateView struct {
	Path            string `json:"path"`
	Now             int64  `json:"now"`
	Owner           string `json:"owner"`
	UnlockTime      int64  `json:"unlock_time"`
	DepositDeadline int64  `json:"deposit_deadline"`
	InitialValue    string `json:"initial_value"`
}

// Text implements Texter.
func (v ValidateView) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ %s is valid (now %d)\n", v.Path, v.Now)
	fmt.Fprintf(&b, "  owner:            %s\n", v.Owner)
	fmt.Fprintf(&b, "  initial_value:    %s\n", v.InitialValue)
	fmt.Fprintf(&b, "  unlock_time:      %d\n", v.UnlockTime)
	fmt.Fprintf(&b, "  deposit_deadline: %d\n", v.DepositDeadline)
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <params-file>",
		Short: "Check deployment parameters without creating a vault",
		Long: `Validate a deployment parameters file against the schema and the
creation guards at the current time (or --now). Nothing is written.

Exit codes:
  0 - Parameters would create a vault
  1 - A creation guard would reject them
  2 - The file is unreadable or does not match the schema

Example:
  timelock validate deploy.cue --now 1700000000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	now := timeSource(opts).Now()

	dep, err := config.LoadDeployment(path, now)
	if err != nil {
		details := map[string]any{"path": path}
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			details["field"] = cfgErr.Field
		}
		if ferr := f.Error("INVALID_CONFIG", err.Error(), details); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, "invalid deployment parameters", err)
	}

	if _, err := vault.Create(dep.Owner, dep.UnlockTime, dep.DepositDeadline, dep.InitialValue, now); err != nil {
		var vErr *vault.Error
		if !errors.As(err, &vErr) {
			return WrapExitError(ExitCommandError, "validation failed", err)
		}
		if ferr := f.Error(string(vErr.Code), vErr.Message, map[string]any{"path": path, "now": now}); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "deployment would be rejected", err)
	}

	return f.Success(ValidateView{
		Path:            path,
		Now:             now,
		Owner:           dep.Owner.Hex(),
		UnlockTime:      dep.UnlockTime,
		DepositDeadline: dep.DepositDeadline,
		InitialValue:    dep.InitialValue.String(),
	})
}
