package engine

import "github.com/roach88/actgraph/internal/field"

// OnUpdate wires a field to the scheduler: every committed update of f
// queues the step built by mk. A nil step from mk is ignored.
func OnUpdate(t *Thought, f field.Output, label string, mk func(u field.Update) Step) {
	f.AddListener(label, func(u field.Update) {
		if s := mk(u); s != nil {
			t.AddStep(s)
		}
	})
}

// ListenerFuncs adapts two functions to an EventListener.
type ListenerFuncs struct {
	Before func(s Step, key QueueKey)
	After  func(s Step, key QueueKey)
}

// BeforeProcessed implements EventListener.
func (l ListenerFuncs) BeforeProcessed(s Step, key QueueKey) {
	if l.Before != nil {
		l.Before(s, key)
	}
}

// AfterProcessed implements EventListener.
func (l ListenerFuncs) AfterProcessed(s Step, key QueueKey) {
	if l.After != nil {
		l.After(s, key)
	}
}
