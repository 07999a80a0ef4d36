package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error that stopped a Thought's drain loop.
//
// Runtime errors include:
//   - Step failure: a step's Process returned an error
//   - Cancellation: the drain context was cancelled between steps
//   - Quota exceeded: the Thought processed more steps than allowed
//
// The queue is left valid in every case: the failing step has already been
// removed and every other pending step is still queued in order.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// ThoughtID identifies the affected session.
	ThoughtID string

	// Step names the step involved, if any.
	Step string

	// Key is the queue key of the step involved.
	Key QueueKey

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeStepFailed indicates a step returned an error.
	ErrCodeStepFailed RuntimeErrorCode = "STEP_FAILED"

	// ErrCodeCancelled indicates the drain context ended.
	ErrCodeCancelled RuntimeErrorCode = "CANCELLED"

	// ErrCodeQuotaExceeded indicates the session exceeded its step quota.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ThoughtID != "" {
		msg += fmt.Sprintf(" (thought=%s", e.ThoughtID)
		if e.Step != "" {
			msg += fmt.Sprintf(", step=%s", e.Step)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewStepError creates a RuntimeError for a failed step.
func NewStepError(thoughtID string, s Step, key QueueKey, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeStepFailed,
		Message:   "step failed",
		ThoughtID: thoughtID,
		Step:      describeStep(s),
		Key:       key,
		Err:       err,
	}
}

// NewCancelledError creates a RuntimeError for a cancelled drain.
func NewCancelledError(thoughtID string, pending int, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeCancelled,
		Message:   fmt.Sprintf("drain stopped with %d steps pending", pending),
		ThoughtID: thoughtID,
		Err:       err,
	}
}

// IsStepError returns true if the error is a step failure.
// Uses errors.As to handle wrapped errors.
func IsStepError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStepFailed
	}
	return false
}

// IsCancelled returns true if the drain was stopped by its context.
func IsCancelled(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCancelled
	}
	return false
}

// IsQuotaError returns true if the drain stopped on its step budget.
// Matches both RuntimeError with ErrCodeQuotaExceeded and a bare
// BudgetExhaustedError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	return IsBudgetExhausted(err)
}

// InvariantError is the panic value raised when a caller breaks the
// scheduler's contract, for example by cancelling a step that is not queued.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return "engine invariant violated: " + e.Message
}

func invariant(format string, args ...any) {
	panic(&InvariantError{Message: fmt.Sprintf(format, args...)})
}
