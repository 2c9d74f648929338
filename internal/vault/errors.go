package vault

import (
	"errors"
	"fmt"
)

// ErrorCode identifies which guard rejected an operation.
type ErrorCode string

const (
	// CodeInvalidUnlockTime indicates an unlock time not strictly in the future.
	CodeInvalidUnlockTime ErrorCode = "INVALID_UNLOCK_TIME"

	// CodeInvalidDepositDeadline indicates a deposit deadline not strictly in the future.
	CodeInvalidDepositDeadline ErrorCode = "INVALID_DEPOSIT_DEADLINE"

	// CodeDeadlineAfterUnlock indicates a deposit deadline later than the unlock time.
	CodeDeadlineAfterUnlock ErrorCode = "DEADLINE_AFTER_UNLOCK"

	// CodeDepositsClosed indicates a deposit after the deposit deadline.
	CodeDepositsClosed ErrorCode = "DEPOSITS_CLOSED"

	// CodeNotYetUnlocked indicates a withdrawal before the unlock time.
	CodeNotYetUnlocked ErrorCode = "NOT_YET_UNLOCKED"

	// CodeNotOwner indicates a caller other than the current owner.
	CodeNotOwner ErrorCode = "NOT_OWNER"

	// CodeCannotDecreaseLockTime indicates an attempt to move the unlock time earlier.
	CodeCannotDecreaseLockTime ErrorCode = "CANNOT_DECREASE_LOCK_TIME"

	// CodeInvalidAmount indicates a negative value transfer.
	CodeInvalidAmount ErrorCode = "INVALID_AMOUNT"
)

// Error is a rejected state transition. It never carries partial state:
// when an operation returns an *Error the vault is exactly as it was.
type Error struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so callers can write
// errors.Is(err, vault.ErrNotOwner).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinel errors, one per guard. Messages match the wording users of the
// deployed lock already see.
var (
	ErrInvalidUnlockTime      = &Error{Code: CodeInvalidUnlockTime, Message: "Unlock time should be in the future"}
	ErrInvalidDepositDeadline = &Error{Code: CodeInvalidDepositDeadline, Message: "Deposit deadline should be in the future"}
	ErrDeadlineAfterUnlock    = &Error{Code: CodeDeadlineAfterUnlock, Message: "Deposit deadline must be before or equal to unlock time"}
	ErrDepositsClosed         = &Error{Code: CodeDepositsClosed, Message: "Deposits are no longer allowed"}
	ErrNotYetUnlocked         = &Error{Code: CodeNotYetUnlocked, Message: "You can't withdraw yet"}
	ErrNotOwner               = &Error{Code: CodeNotOwner, Message: "You aren't the owner"}
	ErrCannotDecreaseLockTime = &Error{Code: CodeCannotDecreaseLockTime, Message: "Cannot decrease lock time"}
	ErrInvalidAmount          = &Error{Code: CodeInvalidAmount, Message: "Amount must not be negative"}
)

// CodeOf returns the guard code carried by err, or "" if err is not a
// vault rejection. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// IsRejection reports whether err is a guard rejection from this package.
func IsRejection(err error) bool {
	return CodeOf(err) != ""
}

// ErrorForCode returns the sentinel for a code, or nil if unknown.
// Used when rebuilding outcomes from a persisted journal.
func ErrorForCode(code ErrorCode) *Error {
	for _, e := range []*Error{
		ErrInvalidUnlockTime,
		ErrInvalidDepositDeadline,
		ErrDeadlineAfterUnlock,
		ErrDepositsClosed,
		ErrNotYetUnlocked,
		ErrNotOwner,
		ErrCannotDecreaseLockTime,
		ErrInvalidAmount,
	} {
		if e.Code == code {
			return e
		}
	}
	return nil
}
