package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind names an entry in the vault's event log.
type EventKind string

const (
	// EventDeposited records an accepted inbound value transfer.
	EventDeposited EventKind = "Deposited"

	// EventWithdrawn records a successful withdrawal of the whole balance.
	EventWithdrawn EventKind = "Withdrawn"
)

// Event is one entry of the append-only log.
//
// Sender is set for Deposited and is the zero address for Withdrawn.
// Index is the entry's position in the log, starting at 0.
type Event struct {
	Index  int64
	Kind   EventKind
	Sender common.Address
	Amount *big.Int
}

// clone returns a deep copy so callers cannot mutate logged amounts.
func (e Event) clone() Event {
	e.Amount = amountOrZero(e.Amount)
	return e
}

// Deposited builds a Deposited event. Index is assigned on append.
func Deposited(sender common.Address, amount *big.Int) Event {
	return Event{Kind: EventDeposited, Sender: sender, Amount: new(big.Int).Set(amount)}
}

// Withdrawn builds a Withdrawn event. Index is assigned on append.
func Withdrawn(amount *big.Int) Event {
	return Event{Kind: EventWithdrawn, Amount: new(big.Int).Set(amount)}
}
