package engine

import "fmt"

// Step is a unit of deferred work bound to one graph element.
//
// Implementations must be pointer types: the scheduler compares steps by
// identity when cancelling them.
type Step interface {
	// Element returns the element the step is bound to.
	Element() Element
	// Phase returns the stage the step runs in.
	Phase() Phase
	// Name identifies the kind of step. It is the dedup class and the
	// name used by filters.
	Name() string
	// Process runs the step. It may mutate fields and enqueue more steps.
	Process() error
}

// Repeatable is implemented by steps that may be pending more than once
// for the same element.
type Repeatable interface {
	Repeatable() bool
}

// Rebaser is implemented by steps that can be rebuilt for another element.
// It is used when an element is cloned and its pending work must follow.
type Rebaser interface {
	Rebase(e Element) Step
}

// funcStep is a closure-backed step.
type funcStep struct {
	element Element
	phase   Phase
	name    string
	fn      func(e Element) error
}

// NewStep returns a step that calls fn with its element.
func NewStep(e Element, phase Phase, name string, fn func(e Element) error) Step {
	return &funcStep{element: e, phase: phase, name: name, fn: fn}
}

func (s *funcStep) Element() Element { return s.element }
func (s *funcStep) Phase() Phase     { return s.phase }
func (s *funcStep) Name() string     { return s.name }

func (s *funcStep) Process() error {
	if s.fn == nil {
		return nil
	}
	return s.fn(s.element)
}

// Rebase returns the same closure bound to e.
func (s *funcStep) Rebase(e Element) Step {
	return &funcStep{element: e, phase: s.phase, name: s.name, fn: s.fn}
}

func (s *funcStep) String() string {
	return fmt.Sprintf("%s(%s) %s", s.name, s.phase, s.element)
}

// describeStep renders a step for logs and errors.
func describeStep(s Step) string {
	if st, ok := s.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%s(%s) %s", s.Name(), s.Phase(), s.Element())
}

func isRepeatable(s Step) bool {
	r, ok := s.(Repeatable)
	return ok && r.Repeatable()
}
