package engine

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/timelock/internal/vault"
)

// OpKind names a journaled operation.
type OpKind string

const (
	OpCreate             OpKind = "create"
	OpDeposit            OpKind = "deposit"
	OpWithdraw           OpKind = "withdraw"
	OpSetOwner           OpKind = "set_owner"
	OpSetUnlockTime      OpKind = "set_unlock_time"
	OpSetDepositDeadline OpKind = "set_deposit_deadline"
)

// Valid reports whether k is one of the six operation kinds.
func (k OpKind) Valid() bool {
	switch k {
	case OpCreate, OpDeposit, OpWithdraw, OpSetOwner, OpSetUnlockTime, OpSetDepositDeadline:
		return true
	}
	return false
}

// Argument keys stored in the journal.
const (
	argOwner           = "owner"
	argUnlockTime      = "unlock_time"
	argDepositDeadline = "deposit_deadline"
	argInitialValue    = "initial_value"
	argAmount          = "amount"
	argNewOwner        = "new_owner"
)

// request is one operation as it is journaled: kind, caller and string args.
//
// Live calls are encoded into a request and decoded again by apply, and
// replay decodes the journaled request the same way. There is no separate
// replay path.
type request struct {
	kind   OpKind
	caller common.Address
	args   map[string]string
}

// apply runs req against current and returns the vault that results.
// current is never modified; for every kind but create the work happens on
// a clone. A guard failure is returned as the *vault.Error from the vault
// package.
func apply(current *vault.Vault, req request, now int64) (*vault.Vault, []vault.Event, error) {
	if req.kind == OpCreate {
		if current != nil {
			return nil, nil, NewAlreadyCreatedError()
		}
		return applyCreate(req, now)
	}
	if current == nil {
		return nil, nil, NewNotCreatedError()
	}

	next := current.Clone()
	switch req.kind {
	case OpDeposit:
		amount, err := argBig(req.args, argAmount)
		if err != nil {
			return nil, nil, err
		}
		ev, err := next.Deposit(req.caller, amount, now)
		if err != nil {
			return nil, nil, err
		}
		return next, []vault.Event{ev}, nil

	case OpWithdraw:
		ev, err := next.Withdraw(req.caller, now)
		if err != nil {
			return nil, nil, err
		}
		return next, []vault.Event{ev}, nil

	case OpSetOwner:
		newOwner, err := argAddress(req.args, argNewOwner)
		if err != nil {
			return nil, nil, err
		}
		if err := next.SetOwner(req.caller, newOwner); err != nil {
			return nil, nil, err
		}
		return next, nil, nil

	case OpSetUnlockTime:
		t, err := argInt(req.args, argUnlockTime)
		if err != nil {
			return nil, nil, err
		}
		if err := next.SetUnlockTime(req.caller, t); err != nil {
			return nil, nil, err
		}
		return next, nil, nil

	case OpSetDepositDeadline:
		d, err := argInt(req.args, argDepositDeadline)
		if err != nil {
			return nil, nil, err
		}
		if err := next.SetDepositDeadline(req.caller, d, now); err != nil {
			return nil, nil, err
		}
		return next, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown operation kind %q", req.kind)
	}
}

func applyCreate(req request, now int64) (*vault.Vault, []vault.Event, error) {
	owner, err := argAddress(req.args, argOwner)
	if err != nil {
		return nil, nil, err
	}
	unlock, err := argInt(req.args, argUnlockTime)
	if err != nil {
		return nil, nil, err
	}
	deadline, err := argInt(req.args, argDepositDeadline)
	if err != nil {
		return nil, nil, err
	}
	value, err := argBig(req.args, argInitialValue)
	if err != nil {
		return nil, nil, err
	}
	v, err := vault.Create(owner, unlock, deadline, value, now)
	if err != nil {
		return nil, nil, err
	}
	return v, nil, nil
}

func argInt(args map[string]string, key string) (int64, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("argument %q: %w", key, err)
	}
	return n, nil
}

func argBig(args map[string]string, key string) (*big.Int, error) {
	raw, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("missing argument %q", key)
	}
	n, err := parseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("argument %q: %w", key, err)
	}
	return n, nil
}

func argAddress(args map[string]string, key string) (common.Address, error) {
	raw, ok := args[key]
	if !ok {
		return common.Address{}, fmt.Errorf("missing argument %q", key)
	}
	addr, err := parseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("argument %q: %w", key, err)
	}
	return addr, nil
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
