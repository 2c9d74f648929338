package engine

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/timelock/internal/ir"
	"github.com/roach88/timelock/internal/store"
	"github.com/roach88/timelock/internal/vault"
)

// StateObject renders a vault state as the IR object that is hashed and
// diffed. Amounts are decimal strings; addresses are EIP-55 checksummed.
func StateObject(s vault.State) ir.IRObject {
	return ir.IRObject{
		"owner":            ir.IRString(s.Owner.Hex()),
		"unlock_time":      ir.IRInt(s.UnlockTime),
		"deposit_deadline": ir.IRInt(s.DepositDeadline),
		"balance":          ir.IRString(amountString(s.Balance)),
	}
}

// StateHash returns the content hash of a vault state.
func StateHash(s vault.State) (string, error) {
	return ir.StateHash(StateObject(s))
}

func vaultRow(s vault.State, createdAt, seq int64) (store.VaultRow, error) {
	hash, err := StateHash(s)
	if err != nil {
		return store.VaultRow{}, err
	}
	return store.VaultRow{
		Owner:           s.Owner.Hex(),
		UnlockTime:      s.UnlockTime,
		DepositDeadline: s.DepositDeadline,
		Balance:         amountString(s.Balance),
		CreatedAt:       createdAt,
		UpdatedSeq:      seq,
		StateHash:       hash,
	}, nil
}

func stateFromRow(row store.VaultRow) (vault.State, error) {
	owner, err := parseAddress(row.Owner)
	if err != nil {
		return vault.State{}, fmt.Errorf("owner: %w", err)
	}
	balance, err := parseAmount(row.Balance)
	if err != nil {
		return vault.State{}, fmt.Errorf("balance: %w", err)
	}
	return vault.State{
		Owner:           owner,
		UnlockTime:      row.UnlockTime,
		DepositDeadline: row.DepositDeadline,
		Balance:         balance,
	}, nil
}

// eventRecord converts a logged event into its stored form. The id is
// derived from content so identical histories produce identical ids.
func eventRecord(ev vault.Event, opSeq, at int64) (store.EventRecord, error) {
	rec := store.EventRecord{
		Index:  ev.Index,
		OpSeq:  opSeq,
		Kind:   string(ev.Kind),
		Sender: ev.Sender.Hex(),
		Amount: amountString(ev.Amount),
		At:     at,
	}
	id, err := ir.EventID(rec.Index, rec.Kind, rec.Sender, rec.Amount, rec.OpSeq)
	if err != nil {
		return store.EventRecord{}, err
	}
	rec.ID = id
	return rec, nil
}

func eventFromRecord(rec store.EventRecord) (vault.Event, error) {
	sender, err := parseAddress(rec.Sender)
	if err != nil {
		return vault.Event{}, fmt.Errorf("event %d sender: %w", rec.Index, err)
	}
	amount, err := parseAmount(rec.Amount)
	if err != nil {
		return vault.Event{}, fmt.Errorf("event %d amount: %w", rec.Index, err)
	}
	kind := vault.EventKind(rec.Kind)
	if kind != vault.EventDeposited && kind != vault.EventWithdrawn {
		return vault.Event{}, fmt.Errorf("event %d: unknown kind %q", rec.Index, rec.Kind)
	}
	return vault.Event{
		Index:  rec.Index,
		Kind:   kind,
		Sender: sender,
		Amount: amount,
	}, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

func amountString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}
