package engine

import (
	"slices"
)

// Element is a node or edge of the activation graph that steps bind to.
//
// Elements embed a StepTracker to satisfy Steps:
//
//	type Activation struct {
//	    engine.StepTracker
//	    fired engine.Fired
//	}
type Element interface {
	Fired() Fired
	Steps() *StepTracker
	String() string
}

// StepTracker records the steps pending for one element.
// The zero value is ready to use.
type StepTracker struct {
	entries []*queueEntry
}

// Steps returns t. It lets elements satisfy Element by embedding.
func (t *StepTracker) Steps() *StepTracker {
	return t
}

// Len returns the number of pending steps.
func (t *StepTracker) Len() int {
	return len(t.entries)
}

// IsQueued reports whether a step of the given phase and name is pending.
func (t *StepTracker) IsQueued(phase Phase, name string) bool {
	for _, qe := range t.entries {
		if qe.step.Phase() == phase && qe.step.Name() == name {
			return true
		}
	}
	return false
}

// Pending returns the pending steps in queue order.
func (t *StepTracker) Pending() []Step {
	sorted := slices.Clone(t.entries)
	slices.SortFunc(sorted, func(a, b *queueEntry) int {
		return a.key.Compare(b.key)
	})
	steps := make([]Step, len(sorted))
	for i, qe := range sorted {
		steps[i] = qe.step
	}
	return steps
}

func (t *StepTracker) add(qe *queueEntry) {
	t.entries = append(t.entries, qe)
}

func (t *StepTracker) find(s Step) *queueEntry {
	for _, qe := range t.entries {
		if qe.step == s {
			return qe
		}
	}
	return nil
}

func (t *StepTracker) remove(qe *queueEntry) bool {
	for i, e := range t.entries {
		if e == qe {
			t.entries = slices.Delete(t.entries, i, i+1)
			return true
		}
	}
	return false
}

func (t *StepTracker) takeAll() []*queueEntry {
	all := t.entries
	t.entries = nil
	return all
}
