// Package vault implements the time-locked single-asset custody record.
//
// A Vault holds an owner, an unlock time, a deposit deadline, a balance and
// an append-only event log. Every mutating operation runs its guards in a
// fixed order and either applies completely or returns the first failing
// guard's *Error with the record untouched.
//
// # Guards
//
//	Create              InvalidUnlockTime, InvalidDepositDeadline, DeadlineAfterUnlock
//	Deposit             DepositsClosed
//	Withdraw            NotYetUnlocked, NotOwner
//	SetOwner            NotOwner
//	SetUnlockTime       CannotDecreaseLockTime, NotOwner
//	SetDepositDeadline  NotOwner, InvalidDepositDeadline, DeadlineAfterUnlock
//
// Amounts are *big.Int; a negative amount fails with InvalidAmount before
// any other guard runs.
//
// # Concurrency
//
// A Vault performs no locking. Callers serialize operations (see the engine
// package). Accessors return copies, so snapshots handed to readers are
// never aliased with the live record.
//
// # Time
//
// Timestamps are unix seconds supplied by the caller on each operation.
// The vault never reads a clock of its own.
package vault
