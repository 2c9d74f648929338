package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Vault is the custody record.
//
// INVARIANTS (hold after Create and after every operation):
//   - depositDeadline <= unlockTime
//   - unlockTime never decreases
//   - balance >= 0; it grows only through Deposit and drops only through
//     Withdraw, which drains it to zero
//   - events is append-only
type Vault struct {
	owner           common.Address
	unlockTime      int64
	depositDeadline int64
	balance         *big.Int
	events          []Event
}

// State is a read-only snapshot of a vault's fields, without the log.
type State struct {
	Owner           common.Address
	UnlockTime      int64
	DepositDeadline int64
	Balance         *big.Int
}

// Create establishes a new vault at time now.
//
// Guards run in order: unlock time in the future, deposit deadline in the
// future, deadline not after unlock. initialValue funds the vault without
// emitting an event; nil means zero.
func Create(owner common.Address, unlockTime, depositDeadline int64, initialValue *big.Int, now int64) (*Vault, error) {
	value, err := checkAmount(initialValue)
	if err != nil {
		return nil, err
	}
	if unlockTime <= now {
		return nil, ErrInvalidUnlockTime
	}
	if depositDeadline <= now {
		return nil, ErrInvalidDepositDeadline
	}
	if depositDeadline > unlockTime {
		return nil, ErrDeadlineAfterUnlock
	}

	return &Vault{
		owner:           owner,
		unlockTime:      unlockTime,
		depositDeadline: depositDeadline,
		balance:         value,
		events:          []Event{},
	}, nil
}

// Restore rebuilds a vault from persisted state and log without running
// creation guards; the stored record was validated when it was created.
func Restore(state State, events []Event) *Vault {
	v := &Vault{
		owner:           state.Owner,
		unlockTime:      state.UnlockTime,
		depositDeadline: state.DepositDeadline,
		balance:         amountOrZero(state.Balance),
		events:          make([]Event, len(events)),
	}
	for i, e := range events {
		v.events[i] = e.clone()
	}
	return v
}

// Deposit accepts value from sender while now <= depositDeadline.
// The deadline is inclusive.
func (v *Vault) Deposit(sender common.Address, amount *big.Int, now int64) (Event, error) {
	value, err := checkAmount(amount)
	if err != nil {
		return Event{}, err
	}
	if now > v.depositDeadline {
		return Event{}, ErrDepositsClosed
	}

	v.balance.Add(v.balance, value)
	return v.append(Deposited(sender, value)), nil
}

// Withdraw transfers the whole balance to the owner once now >= unlockTime.
// Time is checked before identity. A zero balance is not an error: the
// call succeeds and logs Withdrawn{0}.
func (v *Vault) Withdraw(caller common.Address, now int64) (Event, error) {
	if now < v.unlockTime {
		return Event{}, ErrNotYetUnlocked
	}
	if caller != v.owner {
		return Event{}, ErrNotOwner
	}

	amount := new(big.Int).Set(v.balance)
	v.balance.SetInt64(0)
	return v.append(Withdrawn(amount)), nil
}

// SetOwner hands control to newOwner. Any address is accepted, including
// the zero address.
func (v *Vault) SetOwner(caller, newOwner common.Address) error {
	if caller != v.owner {
		return ErrNotOwner
	}
	v.owner = newOwner
	return nil
}

// SetUnlockTime moves the unlock time later (or keeps it). It is not time
// gated; the monotonic check runs before the ownership check.
func (v *Vault) SetUnlockTime(caller common.Address, newUnlockTime int64) error {
	if newUnlockTime < v.unlockTime {
		return ErrCannotDecreaseLockTime
	}
	if caller != v.owner {
		return ErrNotOwner
	}
	v.unlockTime = newUnlockTime
	return nil
}

// SetDepositDeadline replaces the deposit deadline. The new deadline must
// be strictly after now and may equal the unlock time.
func (v *Vault) SetDepositDeadline(caller common.Address, newDeadline, now int64) error {
	if caller != v.owner {
		return ErrNotOwner
	}
	if newDeadline <= now {
		return ErrInvalidDepositDeadline
	}
	if newDeadline > v.unlockTime {
		return ErrDeadlineAfterUnlock
	}
	v.depositDeadline = newDeadline
	return nil
}

// Owner returns the account allowed to withdraw and reconfigure.
func (v *Vault) Owner() common.Address { return v.owner }

// UnlockTime returns the earliest withdrawal time.
func (v *Vault) UnlockTime() int64 { return v.unlockTime }

// DepositDeadline returns the last time a deposit is accepted.
func (v *Vault) DepositDeadline() int64 { return v.depositDeadline }

// Balance returns a copy of the held amount.
func (v *Vault) Balance() *big.Int { return new(big.Int).Set(v.balance) }

// Len returns the number of logged events.
func (v *Vault) Len() int { return len(v.events) }

// State returns a snapshot of the vault's fields.
func (v *Vault) State() State {
	return State{
		Owner:           v.owner,
		UnlockTime:      v.unlockTime,
		DepositDeadline: v.depositDeadline,
		Balance:         v.Balance(),
	}
}

// Events returns a copy of the full log in order.
func (v *Vault) Events() []Event {
	return v.EventsSince(0)
}

// EventsSince returns a copy of the log starting at cursor. A cursor past
// the end yields an empty slice; readers poll with the length they last saw.
func (v *Vault) EventsSince(cursor int) []Event {
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(v.events) {
		return []Event{}
	}
	out := make([]Event, 0, len(v.events)-cursor)
	for _, e := range v.events[cursor:] {
		out = append(out, e.clone())
	}
	return out
}

// Clone returns an independent deep copy. The engine applies operations to
// a clone and swaps it in only after the result is durable.
func (v *Vault) Clone() *Vault {
	return Restore(v.State(), v.events)
}

func (v *Vault) append(e Event) Event {
	e.Index = int64(len(v.events))
	v.events = append(v.events, e)
	return e.clone()
}

func checkAmount(amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return new(big.Int), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return new(big.Int).Set(amount), nil
}

func amountOrZero(amount *big.Int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(amount)
}
