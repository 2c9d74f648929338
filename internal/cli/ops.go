package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/spf13/cobra"

	"github.com/roach88/timelock/internal/config"
	"github.com/roach88/timelock/internal/engine"
	"github.com/roach88/timelock/internal/vault"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Config            string
	Owner             string
	UnlockTime        int64
	UnlockIn          string
	DepositDeadline   int64
	DepositDeadlineIn string
	InitialValue      string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the vault",
		Long: `Create the vault from a parameters file or from flags.

Parameters are validated against the deployment schema either way.
Without an unlock time the vault unlocks 24h from now; without a deposit
deadline deposits stay open until the unlock time.

Examples:
  timelock create --config deploy.cue
  timelock create --owner 0xf39F...2266 --unlock-in 48h --deposit-deadline-in 24h
  timelock create --owner 0xf39F...2266 --unlock-time 1700086400 --initial-value 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "deployment parameters file (CUE or JSON)")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner address")
	cmd.Flags().Int64Var(&opts.UnlockTime, "unlock-time", 0, "unlock time (unix seconds)")
	cmd.Flags().StringVar(&opts.UnlockIn, "unlock-in", "", "unlock after this duration from now")
	cmd.Flags().Int64Var(&opts.DepositDeadline, "deposit-deadline", 0, "deposit deadline (unix seconds)")
	cmd.Flags().StringVar(&opts.DepositDeadlineIn, "deposit-deadline-in", "", "close deposits after this duration from now")
	cmd.Flags().StringVar(&opts.InitialValue, "initial-value", "", "initial balance (decimal or 0x-hex)")

	return cmd
}

func runCreate(opts *CreateOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd)

	sess, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	dep, err := deploymentFromFlags(opts, cmd, sess.time.Now())
	if err != nil {
		f.Error("INVALID_CONFIG", err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid deployment parameters", err)
	}
	f.VerboseLog("creating vault: owner=%s unlock=%d deadline=%d initial=%s",
		dep.Owner.Hex(), dep.UnlockTime, dep.DepositDeadline, dep.InitialValue)

	receipt, err := sess.engine.Create(ctx, dep.Owner, dep.UnlockTime, dep.DepositDeadline, dep.InitialValue)
	if err != nil {
		return reportOperationError(f, receipt, err)
	}
	return f.Success(newReceiptView(receipt))
}

// deploymentFromFlags resolves --config, or renders the individual flags as
// JSON so they pass through the same schema.
func deploymentFromFlags(opts *CreateOptions, cmd *cobra.Command, now int64) (*config.Deployment, error) {
	flags := cmd.Flags()
	if opts.Config != "" {
		for _, name := range []string{"owner", "unlock-time", "unlock-in", "deposit-deadline", "deposit-deadline-in", "initial-value"} {
			if flags.Changed(name) {
				return nil, fmt.Errorf("--config cannot be combined with --%s", name)
			}
		}
		return config.LoadDeployment(opts.Config, now)
	}

	params := map[string]any{"owner": opts.Owner}
	if flags.Changed("unlock-time") {
		params["unlockTime"] = opts.UnlockTime
	}
	if flags.Changed("unlock-in") {
		params["unlockIn"] = opts.UnlockIn
	}
	if flags.Changed("deposit-deadline") {
		params["depositDeadline"] = opts.DepositDeadline
	}
	if flags.Changed("deposit-deadline-in") {
		params["depositDeadlineIn"] = opts.DepositDeadlineIn
	}
	if flags.Changed("initial-value") {
		params["initialValue"] = opts.InitialValue
	}

	src, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return config.ParseDeployment(src, "flags", now)
}

// NewDepositCommand creates the deposit command.
func NewDepositCommand(rootOpts *RootOptions) *cobra.Command {
	var from, amount string

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit value into the vault",
		Long: `Deposit value into the vault on behalf of an account.

Deposits are accepted up to and including the deposit deadline.

Example:
  timelock deposit --from 0x7099...79C8 --amount 1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, err := parseAddressFlag("from", from)
			if err != nil {
				return err
			}
			value, err := parseAmountFlag("amount", amount)
			if err != nil {
				return err
			}
			return runOperation(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) (engine.Receipt, error) {
				return eng.Deposit(ctx, sender, value)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "depositing account (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to deposit, decimal or 0x-hex (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// NewWithdrawCommand creates the withdraw command.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw the whole balance to the owner",
		Long: `Withdraw the whole balance once the unlock time has passed.

Only the owner may withdraw. Withdrawing an empty vault succeeds and logs
a zero amount.

Example:
  timelock withdraw --caller 0xf39F...2266`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddressFlag("caller", caller)
			if err != nil {
				return err
			}
			return runOperation(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) (engine.Receipt, error) {
				return eng.Withdraw(ctx, addr)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "calling account (required)")
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}

// NewSetOwnerCommand creates the set-owner command.
func NewSetOwnerCommand(rootOpts *RootOptions) *cobra.Command {
	var caller, newOwner string

	cmd := &cobra.Command{
		Use:   "set-owner",
		Short: "Transfer ownership of the vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddressFlag("caller", caller)
			if err != nil {
				return err
			}
			next, err := parseAddressFlag("new-owner", newOwner)
			if err != nil {
				return err
			}
			return runOperation(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) (engine.Receipt, error) {
				return eng.SetOwner(ctx, addr, next)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "calling account (required)")
	cmd.Flags().StringVar(&newOwner, "new-owner", "", "account to hand the vault to (required)")
	_ = cmd.MarkFlagRequired("caller")
	_ = cmd.MarkFlagRequired("new-owner")

	return cmd
}

// NewSetUnlockTimeCommand creates the set-unlock-time command.
func NewSetUnlockTimeCommand(rootOpts *RootOptions) *cobra.Command {
	var caller string
	var unlockTime int64

	cmd := &cobra.Command{
		Use:   "set-unlock-time",
		Short: "Extend the unlock time",
		Long: `Move the unlock time later. The unlock time can never move earlier.

Example:
  timelock set-unlock-time --caller 0xf39F...2266 --unlock-time 1700172800`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddressFlag("caller", caller)
			if err != nil {
				return err
			}
			return runOperation(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) (engine.Receipt, error) {
				return eng.SetUnlockTime(ctx, addr, unlockTime)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "calling account (required)")
	cmd.Flags().Int64Var(&unlockTime, "unlock-time", 0, "new unlock time, unix seconds (required)")
	_ = cmd.MarkFlagRequired("caller")
	_ = cmd.MarkFlagRequired("unlock-time")

	return cmd
}

// NewSetDepositDeadlineCommand creates the set-deposit-deadline command.
func NewSetDepositDeadlineCommand(rootOpts *RootOptions) *cobra.Command {
	var caller string
	var deadline int64

	cmd := &cobra.Command{
		Use:   "set-deposit-deadline",
		Short: "Change the deposit deadline",
		Long: `Set a new deposit deadline. It must be in the future and no later than
the unlock time.

Example:
  timelock set-deposit-deadline --caller 0xf39F...2266 --deposit-deadline 1700050000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddressFlag("caller", caller)
			if err != nil {
				return err
			}
			return runOperation(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) (engine.Receipt, error) {
				return eng.SetDepositDeadline(ctx, addr, deadline)
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "calling account (required)")
	cmd.Flags().Int64Var(&deadline, "deposit-deadline", 0, "new deposit deadline, unix seconds (required)")
	_ = cmd.MarkFlagRequired("caller")
	_ = cmd.MarkFlagRequired("deposit-deadline")

	return cmd
}

// runOperation opens a session, runs op and reports the receipt.
func runOperation(opts *RootOptions, cmd *cobra.Command, op func(context.Context, *engine.Engine) (engine.Receipt, error)) error {
	ctx := context.Background()
	f := newFormatter(opts, cmd)

	sess, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	receipt, err := op(ctx, sess.engine)
	if err != nil {
		return reportOperationError(f, receipt, err)
	}
	return f.Success(newReceiptView(receipt))
}

// reportOperationError prints a refused operation and maps it to an exit
// code: guard rejections and lifecycle misuse exit 1, anything else 2.
func reportOperationError(f *OutputFormatter, receipt engine.Receipt, err error) error {
	var vErr *vault.Error
	if errors.As(err, &vErr) {
		details := map[string]any{
			"op_id": receipt.OpID,
			"seq":   receipt.Seq,
			"now":   receipt.Now,
		}
		if ferr := f.Error(string(vErr.Code), vErr.Message, details); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "operation rejected", err)
	}

	var rtErr *engine.RuntimeError
	if errors.As(err, &rtErr) {
		if ferr := f.Error(string(rtErr.Code), rtErr.Message, rtErr.Details); ferr != nil {
			return ferr
		}
		switch rtErr.Code {
		case engine.ErrCodeNotCreated, engine.ErrCodeAlreadyCreated:
			return WrapExitError(ExitFailure, "operation refused", err)
		}
	}
	return WrapExitError(ExitCommandError, "operation failed", err)
}

func parseAddressFlag(name, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, NewExitError(ExitCommandError, fmt.Sprintf("--%s: invalid address %q", name, value))
	}
	return common.HexToAddress(value), nil
}

// parseAmountFlag accepts decimal or 0x-hex up to 256 bits. A leading minus
// is passed through so the vault reports INVALID_AMOUNT itself.
func parseAmountFlag(name, value string) (*big.Int, error) {
	n, ok := math.ParseBig256(value)
	if !ok || value == "" {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("--%s: invalid amount %q", name, value))
	}
	return n, nil
}
