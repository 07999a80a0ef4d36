package engine

import (
	"errors"
	"fmt"
)

// StepBudget caps the steps a Thought processes over its lifetime, across
// every Process call.
//
// A drain that runs out of budget stops before polling the next step, so
// that step stays queued. Grant more steps and call Process again to
// resume where it left off. A budget is not safe for concurrent use; it
// belongs to the goroutine that drives the Thought.
type StepBudget struct {
	limit int
	spent int
}

// NewStepBudget creates a budget of limit steps.
func NewStepBudget(limit int) *StepBudget {
	return &StepBudget{limit: limit}
}

// Spend charges one step to the budget. When nothing is left it charges
// nothing and returns a *BudgetExhaustedError.
func (b *StepBudget) Spend(thoughtID string) error {
	if b.spent >= b.limit {
		return &BudgetExhaustedError{ThoughtID: thoughtID, Spent: b.spent, Limit: b.limit}
	}
	b.spent++
	return nil
}

// Grant raises the limit by n steps.
func (b *StepBudget) Grant(n int) {
	b.limit += n
}

// Reset forgets the steps spent so far. The limit is unchanged.
func (b *StepBudget) Reset() {
	b.spent = 0
}

func (b *StepBudget) Spent() int { return b.spent }
func (b *StepBudget) Limit() int { return b.limit }

// Remaining returns how many more steps may run.
func (b *StepBudget) Remaining() int {
	return max(b.limit-b.spent, 0)
}

// BudgetExhaustedError is the cause wrapped by a QUOTA_EXCEEDED
// RuntimeError.
type BudgetExhaustedError struct {
	ThoughtID string
	Spent     int
	Limit     int
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("thought %s spent its step budget: %d of %d", e.ThoughtID, e.Spent, e.Limit)
}

// IsBudgetExhausted reports whether err is or wraps a BudgetExhaustedError.
func IsBudgetExhausted(err error) bool {
	var be *BudgetExhaustedError
	return errors.As(err, &be)
}
