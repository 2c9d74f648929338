package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/timelock/internal/store"
	"github.com/roach88/timelock/internal/vault"
)

// Engine is the single serializing authority over one vault.
//
// Every operation takes the engine lock, reads the time once, stamps the
// attempt with the next seq, and either journals a rejection or commits
// the journal entry, new events and vault row in one transaction. The live
// vault is replaced only after the commit succeeds.
//
// Thread-safety: all methods are safe from any goroutine.
//
// INVARIANTS:
//   - operations are linearized by seq; no two interleave
//   - observed time never decreases across operations
//   - a rejected or unpersisted operation leaves the live vault untouched
type Engine struct {
	mu        sync.Mutex
	store     *store.Store
	clock     *Clock
	time      TimeSource
	ids       OpIDGenerator
	logger    *slog.Logger
	vault     *vault.Vault // nil until Create succeeds
	createdAt int64
	lastNow   int64
}

// Receipt describes one attempted operation.
//
// On rejection the operation is still journaled, and OpID, Seq, Now and
// Kind are filled in alongside the returned error.
type Receipt struct {
	OpID   string
	Seq    int64
	Now    int64
	Kind   OpKind
	Events []vault.Event
	// Amount is the value moved by a deposit or withdrawal, nil otherwise.
	Amount *big.Int
	State  vault.State
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithTimeSource sets where the engine reads the current time.
// Default: SystemTime.
func WithTimeSource(ts TimeSource) EngineOption {
	return func(e *Engine) {
		e.time = ts
	}
}

// WithIDGenerator sets the journal id generator.
// Default: UUIDv7Generator.
func WithIDGenerator(gen OpIDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = gen
	}
}

// WithLogger sets the structured logger.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine over the given store. Call Load to pick up a vault
// that already exists in the store.
func New(s *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  s,
		clock:  NewClock(),
		time:   SystemTime{},
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Load restores the vault, clock and last observed time from the store.
// An empty store is not an error: the engine stays uncreated.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	seq, err := e.store.LastSeq(ctx)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	lastNow, err := e.store.LastNow(ctx)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	e.clock = NewClockAt(seq)
	e.lastNow = lastNow

	row, err := e.store.ReadVault(ctx)
	if errors.Is(err, store.ErrNotFound) {
		e.logger.Debug("no vault in store", "seq", seq)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	state, err := stateFromRow(row)
	if err != nil {
		return NewCorruptStateError("decode vault row", err)
	}
	hash, err := StateHash(state)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if hash != row.StateHash {
		return NewCorruptStateError(fmt.Sprintf("state hash %s does not match stored %s", hash, row.StateHash), nil)
	}

	records, err := e.store.ReadEvents(ctx, 0)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	events := make([]vault.Event, 0, len(records))
	for i, rec := range records {
		if rec.Index != int64(i) {
			return NewCorruptStateError(fmt.Sprintf("event log has gap at index %d", i), nil)
		}
		ev, err := eventFromRecord(rec)
		if err != nil {
			return NewCorruptStateError("decode event", err)
		}
		events = append(events, ev)
	}

	e.vault = vault.Restore(state, events)
	e.createdAt = row.CreatedAt

	e.logger.Info("vault loaded",
		"owner", row.Owner,
		"balance", row.Balance,
		"events", len(events),
		"seq", seq,
	)
	return nil
}

// Create establishes the vault. owner is both the caller and the account
// that controls the vault.
func (e *Engine) Create(ctx context.Context, owner common.Address, unlockTime, depositDeadline int64, initialValue *big.Int) (Receipt, error) {
	return e.execute(ctx, request{
		kind:   OpCreate,
		caller: owner,
		args: map[string]string{
			argOwner:           owner.Hex(),
			argUnlockTime:      formatInt(unlockTime),
			argDepositDeadline: formatInt(depositDeadline),
			argInitialValue:    amountString(initialValue),
		},
	})
}

// Deposit adds amount to the vault on behalf of sender.
func (e *Engine) Deposit(ctx context.Context, sender common.Address, amount *big.Int) (Receipt, error) {
	return e.execute(ctx, request{
		kind:   OpDeposit,
		caller: sender,
		args:   map[string]string{argAmount: amountString(amount)},
	})
}

// Withdraw transfers the entire balance to the owner.
func (e *Engine) Withdraw(ctx context.Context, caller common.Address) (Receipt, error) {
	return e.execute(ctx, request{
		kind:   OpWithdraw,
		caller: caller,
		args:   map[string]string{},
	})
}

// SetOwner transfers control of the vault.
func (e *Engine) SetOwner(ctx context.Context, caller, newOwner common.Address) (Receipt, error) {
	return e.execute(ctx, request{
		kind:   OpSetOwner,
		caller: caller,
		args:   map[string]string{argNewOwner: newOwner.Hex()},
	})
}

// SetUnlockTime moves the unlock time later.
func (e *Engine) SetUnlockTime(ctx context.Context, caller common.Address, unlockTime int64) (Receipt, error) {
	return e.execute(ctx, request{
		kind:   OpSetUnlockTime,
		caller: caller,
		args:   map[string]string{argUnlockTime: formatInt(unlockTime)},
	})
}

// SetDepositDeadline replaces the deposit deadline.
func (e *Engine) SetDepositDeadline(ctx context.Context, caller common.Address, depositDeadline int64) (Receipt, error) {
	return e.execute(ctx, request{
		kind:   OpSetDepositDeadline,
		caller: caller,
		args:   map[string]string{argDepositDeadline: formatInt(depositDeadline)},
	})
}

// State returns a snapshot of the live vault.
func (e *Engine) State() (vault.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.vault == nil {
		return vault.State{}, NewNotCreatedError()
	}
	return e.vault.State(), nil
}

// Events returns stored log entries with index >= since.
func (e *Engine) Events(ctx context.Context, since int64) ([]store.EventRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.ReadEvents(ctx, since)
}

// Seq returns the seq of the most recent attempt.
func (e *Engine) Seq() int64 {
	return e.clock.Current()
}

// execute is the single path every operation takes.
func (e *Engine) execute(ctx context.Context, req request) (Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Lifecycle misuse is refused before a seq is spent.
	if req.kind == OpCreate && e.vault != nil {
		return Receipt{}, NewAlreadyCreatedError()
	}
	if req.kind != OpCreate && e.vault == nil {
		return Receipt{}, NewNotCreatedError()
	}

	now := e.observeNow()
	seq := e.clock.Next()
	opID := e.ids.Generate()

	receipt := Receipt{OpID: opID, Seq: seq, Now: now, Kind: req.kind}
	op := store.Operation{
		Seq:    seq,
		ID:     opID,
		Kind:   string(req.kind),
		Caller: req.caller.Hex(),
		Args:   req.args,
		Now:    now,
	}

	next, events, err := apply(e.vault, req, now)
	if err != nil {
		if !vault.IsRejection(err) {
			return Receipt{}, fmt.Errorf("%s: %w", req.kind, err)
		}
		e.journalRejection(ctx, op, err)
		return receipt, err
	}

	createdAt := e.createdAt
	if req.kind == OpCreate {
		createdAt = now
	}

	state := next.State()
	row, err := vaultRow(state, createdAt, seq)
	if err != nil {
		return Receipt{}, NewPersistError(opID, seq, err)
	}
	records := make([]store.EventRecord, 0, len(events))
	for _, ev := range events {
		rec, err := eventRecord(ev, seq, now)
		if err != nil {
			return Receipt{}, NewPersistError(opID, seq, err)
		}
		records = append(records, rec)
	}

	op.Outcome = store.OutcomeApplied
	if err := e.store.Commit(ctx, op, records, row); err != nil {
		e.logger.Error("operation not persisted",
			"op_id", opID,
			"seq", seq,
			"kind", req.kind,
			"error", err,
		)
		return Receipt{}, NewPersistError(opID, seq, err)
	}

	e.vault = next
	e.createdAt = createdAt

	receipt.Events = events
	receipt.State = state
	if len(events) > 0 {
		receipt.Amount = new(big.Int).Set(events[0].Amount)
	}

	e.logger.Info("operation applied",
		"op_id", opID,
		"seq", seq,
		"kind", req.kind,
		"caller", op.Caller,
	)
	return receipt, nil
}

// journalRejection records a refused attempt. The caller still gets the
// guard error if the journal write fails; the failure is logged.
func (e *Engine) journalRejection(ctx context.Context, op store.Operation, cause error) {
	op.Outcome = store.OutcomeRejected
	op.ErrorCode = string(vault.CodeOf(cause))

	if err := e.store.WriteRejected(ctx, op); err != nil {
		e.logger.Error("rejected operation not journaled",
			"op_id", op.ID,
			"seq", op.Seq,
			"kind", op.Kind,
			"error", err,
		)
		return
	}

	e.logger.Info("operation rejected",
		"op_id", op.ID,
		"seq", op.Seq,
		"kind", op.Kind,
		"caller", op.Caller,
		"code", op.ErrorCode,
	)
}

// observeNow reads the time source, clamped so it never runs backwards.
// Caller must hold e.mu.
func (e *Engine) observeNow() int64 {
	now := e.time.Now()
	if now < e.lastNow {
		e.logger.Warn("time source moved backwards, clamping",
			"observed", now,
			"last", e.lastNow,
		)
		now = e.lastNow
	}
	e.lastNow = now
	return now
}
