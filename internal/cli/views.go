package cli

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/timelock/internal/engine"
	"github.com/roach88/timelock/internal/store"
	"github.com/roach88/timelock/internal/vault"
)

// EventView is a log entry as printed by the CLI.
type EventView struct {
	Index  int64  `json:"index"`
	Kind   string `json:"kind"`
	Sender string `json:"sender,omitempty"`
	Amount string `json:"amount"`
	OpSeq  int64  `json:"op_seq,omitempty"`
	At     int64  `json:"at,omitempty"`
	ID     string `json:"id,omitempty"`
}

// StateView is the vault state as printed by the CLI.
type StateView struct {
	Owner           string `json:"owner"`
	UnlockTime      int64  `json:"unlock_time"`
	DepositDeadline int64  `json:"deposit_deadline"`
	Balance         string `json:"balance"`
}

// ReceiptView reports an applied operation.
type ReceiptView struct {
	OpID   string      `json:"op_id"`
	Seq    int64       `json:"seq"`
	Now    int64       `json:"now"`
	Kind   string      `json:"kind"`
	Amount string      `json:"amount,omitempty"`
	Events []EventView `json:"events"`
	State  StateView   `json:"state"`
}

func newStateView(s vault.State) StateView {
	return StateView{
		Owner:           s.Owner.Hex(),
		UnlockTime:      s.UnlockTime,
		DepositDeadline: s.DepositDeadline,
		Balance:         s.Balance.String(),
	}
}

func newReceiptView(r engine.Receipt) ReceiptView {
	view := ReceiptView{
		OpID:   r.OpID,
		Seq:    r.Seq,
		Now:    r.Now,
		Kind:   string(r.Kind),
		Events: make([]EventView, 0, len(r.Events)),
		State:  newStateView(r.State),
	}
	if r.Amount != nil {
		view.Amount = r.Amount.String()
	}
	for _, ev := range r.Events {
		view.Events = append(view.Events, EventView{
			Index:  ev.Index,
			Kind:   string(ev.Kind),
			Sender: senderString(ev.Sender),
			Amount: ev.Amount.String(),
		})
	}
	return view
}

func newEventView(rec store.EventRecord) EventView {
	return EventView{
		Index:  rec.Index,
		Kind:   rec.Kind,
		Sender: senderString(common.HexToAddress(rec.Sender)),
		Amount: rec.Amount,
		OpSeq:  rec.OpSeq,
		At:     rec.At,
		ID:     rec.ID,
	}
}

// senderString leaves the zero address blank; withdrawals carry no sender.
func senderString(addr common.Address) string {
	if addr == (common.Address{}) {
		return ""
	}
	return addr.Hex()
}

// Text implements Texter.
func (r ReceiptView) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ %s applied (seq %d, op %s)\n", r.Kind, r.Seq, r.OpID)
	for _, ev := range r.Events {
		fmt.Fprintf(&b, "  event %s\n", ev.line())
	}
	b.WriteString(r.State.Text())
	return b.String()
}

// Text implements Texter.
func (s StateView) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  owner:            %s\n", s.Owner)
	fmt.Fprintf(&b, "  balance:          %s\n", s.Balance)
	fmt.Fprintf(&b, "  unlock_time:      %d\n", s.UnlockTime)
	fmt.Fprintf(&b, "  deposit_deadline: %d\n", s.DepositDeadline)
	return b.String()
}

func (e EventView) line() string {
	line := fmt.Sprintf("#%d %s amount=%s", e.Index, e.Kind, e.Amount)
	if e.Sender != "" {
		line += " sender=" + e.Sender
	}
	return line
}
