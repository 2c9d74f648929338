package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an engine failure that is not a vault guard rejection.
//
// Guard rejections are returned as *vault.Error unchanged; RuntimeError
// covers lifecycle misuse, storage failures and replay mismatches.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// OpID identifies the affected operation, when there is one.
	OpID string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNotCreated indicates an operation on a vault that does not exist yet.
	ErrCodeNotCreated RuntimeErrorCode = "NOT_CREATED"

	// ErrCodeAlreadyCreated indicates a second Create on the same store.
	ErrCodeAlreadyCreated RuntimeErrorCode = "ALREADY_CREATED"

	// ErrCodePersistFailed indicates the store rejected a write.
	ErrCodePersistFailed RuntimeErrorCode = "PERSIST_FAILED"

	// ErrCodeReplayDiverged indicates re-executing the journal did not
	// reproduce the stored outcome, state or log.
	ErrCodeReplayDiverged RuntimeErrorCode = "REPLAY_DIVERGED"

	// ErrCodeCorruptState indicates a stored record could not be decoded
	// or its state hash does not match its fields.
	ErrCodeCorruptState RuntimeErrorCode = "CORRUPT_STATE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.OpID != "" {
		msg = fmt.Sprintf("%s (op=%s)", msg, e.OpID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// CodeOf returns the runtime code carried by err, or "".
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsNotCreated returns true if err reports a missing vault.
func IsNotCreated(err error) bool {
	return CodeOf(err) == ErrCodeNotCreated
}

// IsReplayDiverged returns true if err reports a replay mismatch.
func IsReplayDiverged(err error) bool {
	return CodeOf(err) == ErrCodeReplayDiverged
}

// NewNotCreatedError creates a RuntimeError for operations before Create.
func NewNotCreatedError() *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNotCreated,
		Message: "vault has not been created",
	}
}

// NewAlreadyCreatedError creates a RuntimeError for a repeated Create.
func NewAlreadyCreatedError() *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeAlreadyCreated,
		Message: "vault already exists in this store",
	}
}

// NewPersistError wraps a store failure for the given operation.
func NewPersistError(opID string, seq int64, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodePersistFailed,
		Message: "failed to persist operation",
		OpID:    opID,
		Details: map[string]string{
			"seq": fmt.Sprintf("%d", seq),
		},
		Err: err,
	}
}

// NewCorruptStateError reports an undecodable or inconsistent stored record.
func NewCorruptStateError(message string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCorruptState,
		Message: message,
		Err:     err,
	}
}
