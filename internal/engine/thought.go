package engine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EventListener observes the drain loop of a Thought.
type EventListener interface {
	BeforeProcessed(s Step, key QueueKey)
	AfterProcessed(s Step, key QueueKey)
}

// Thought is one processing session and the owner of its step queue.
//
// Thread-safety model:
//   - Every method must be called from the goroutine that owns the Thought.
//   - Steps run on that goroutine and may call AddStep re-entrantly.
//
// INVARIANTS:
//   - No two pending entries share a QueueKey.
//   - An element has at most one pending step per (phase, name) unless the
//     step is Repeatable.
//   - Sequence numbers are strictly increasing, so a step added while
//     another is draining is keyed after every step already queued in the
//     same phase and firing time.
type Thought struct {
	id        string
	clock     *Clock
	queue     *stepQueue
	filters   map[string]bool
	listeners []EventListener
	budget    *StepBudget

	// Sequence number of the step currently or most recently processed.
	timestampOnProcess int64
}

// ThoughtOption configures a Thought.
type ThoughtOption func(*thoughtConfig)

type thoughtConfig struct {
	idGen     IDGenerator
	clock     *Clock
	maxSteps  int
	filters   []string
	listeners []EventListener
}

// WithIDGenerator sets the generator for the session id.
// Default: UUIDv7.
func WithIDGenerator(g IDGenerator) ThoughtOption {
	return func(c *thoughtConfig) {
		c.idGen = g
	}
}

// WithClock sets the sequence clock. Used to resume numbering.
func WithClock(clock *Clock) ThoughtOption {
	return func(c *thoughtConfig) {
		c.clock = clock
	}
}

// WithMaxSteps gives the Thought a StepBudget of maxSteps.
// Zero means unlimited, which is the default.
func WithMaxSteps(maxSteps int) ThoughtOption {
	return func(c *thoughtConfig) {
		c.maxSteps = maxSteps
	}
}

// WithFilters drops steps with the given names at AddStep.
func WithFilters(names ...string) ThoughtOption {
	return func(c *thoughtConfig) {
		c.filters = append(c.filters, names...)
	}
}

// WithEventListener registers a drain observer.
func WithEventListener(l EventListener) ThoughtOption {
	return func(c *thoughtConfig) {
		c.listeners = append(c.listeners, l)
	}
}

// NewThought creates an empty processing session.
func NewThought(opts ...ThoughtOption) *Thought {
	cfg := thoughtConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.idGen == nil {
		cfg.idGen = UUIDv7
	}
	if cfg.clock == nil {
		cfg.clock = NewClock()
	}

	t := &Thought{
		id:        cfg.idGen(),
		clock:     cfg.clock,
		queue:     newStepQueue(),
		filters:   make(map[string]bool, len(cfg.filters)),
		listeners: cfg.listeners,
	}
	for _, name := range cfg.filters {
		t.filters[name] = true
	}
	if cfg.maxSteps > 0 {
		t.budget = NewStepBudget(cfg.maxSteps)
	}
	return t
}

// Budget returns the step budget, or nil if the Thought is unlimited.
func (t *Thought) Budget() *StepBudget {
	return t.budget
}

// ID returns the session id.
func (t *Thought) ID() string {
	return t.id
}

// AddStep queues s.
//
// The step's key is built from its phase, the element's current firing
// time and the next sequence number. Returns false if the step was
// filtered out or an equal step is already pending for the element.
func (t *Thought) AddStep(s Step) bool {
	if t.filters[s.Name()] {
		return false
	}

	e := s.Element()
	tracker := e.Steps()
	if !isRepeatable(s) && tracker.IsQueued(s.Phase(), s.Name()) {
		return false
	}
	if tracker.find(s) != nil {
		return false
	}

	qe := &queueEntry{
		step: s,
		key: QueueKey{
			Phase: s.Phase(),
			Fired: e.Fired(),
			Seq:   t.clock.Next(),
		},
	}
	tracker.add(qe)
	t.queue.Push(qe)
	return true
}

// RemoveStep cancels a pending step.
// Panics with *InvariantError if s is not pending.
func (t *Thought) RemoveStep(s Step) {
	tracker := s.Element().Steps()
	qe := tracker.find(s)
	if qe == nil || !t.queue.Remove(qe) {
		invariant("remove of step that is not queued: %s", describeStep(s))
	}
	tracker.remove(qe)
}

// RemoveSteps cancels every pending step of e and returns how many were
// removed. Used when an element is deleted.
func (t *Thought) RemoveSteps(e Element) int {
	removed := 0
	for _, qe := range e.Steps().takeAll() {
		if t.queue.Remove(qe) {
			removed++
		}
	}
	return removed
}

// StepsFor returns the pending steps of e in queue order.
func (t *Thought) StepsFor(e Element) []Step {
	return e.Steps().Pending()
}

// CopySteps queues a copy of every pending step of from, rebased onto to.
// Steps that do not implement Rebaser are skipped. Returns the number of
// steps queued for to.
func (t *Thought) CopySteps(from, to Element) int {
	copied := 0
	for _, s := range from.Steps().Pending() {
		r, ok := s.(Rebaser)
		if !ok {
			slog.Warn("step cannot be rebased, skipping",
				"thought", t.id,
				"step", s.Name(),
				"from", from.String(),
				"to", to.String(),
			)
			continue
		}
		if t.AddStep(r.Rebase(to)) {
			copied++
		}
	}
	return copied
}

// Len returns the number of pending steps.
func (t *Thought) Len() int {
	return t.queue.Len()
}

// Pending returns the pending steps in drain order.
func (t *Thought) Pending() []Step {
	entries := t.queue.Snapshot()
	steps := make([]Step, len(entries))
	for i, qe := range entries {
		steps[i] = qe.step
	}
	return steps
}

// PendingKeys returns the keys of the pending steps in drain order.
func (t *Thought) PendingKeys() []QueueKey {
	entries := t.queue.Snapshot()
	keys := make([]QueueKey, len(entries))
	for i, qe := range entries {
		keys[i] = qe.key
	}
	return keys
}

// CurrentTimestamp returns the most recently issued sequence number.
func (t *Thought) CurrentTimestamp() int64 {
	return t.clock.Current()
}

// TimestampOnProcess returns the sequence number of the step currently or
// most recently processed.
func (t *Thought) TimestampOnProcess() int64 {
	return t.timestampOnProcess
}

// Process drains the queue in key order until it is empty.
//
// Each iteration polls the minimum step, clears it from its element, and
// runs it. Steps may add further steps; those are drained in the same call.
//
// Process stops early and returns a *RuntimeError when:
//   - a step returns an error (the step is consumed, the rest stays queued)
//   - ctx is done; it is checked before each step, never during one
//   - the step budget is spent (the next step stays queued; Grant and
//     call Process again to resume)
//
// A panic in a step propagates to the caller. The queue is still valid
// because the step was removed before it ran.
func (t *Thought) Process(ctx context.Context) error {
	ctx, span := otel.Tracer("actgraph/engine").Start(ctx, "thought.Process",
		trace.WithAttributes(
			attribute.String("thought_id", t.id),
			attribute.Int("queued", t.queue.Len()),
		),
	)
	defer span.End()

	slog.Debug("thought draining", "thought", t.id, "queued", t.queue.Len())

	processed := 0
	for t.queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			rerr := NewCancelledError(t.id, t.queue.Len(), err)
			span.RecordError(rerr)
			span.SetStatus(codes.Error, "drain cancelled")
			return rerr
		}

		if t.budget != nil {
			if err := t.budget.Spend(t.id); err != nil {
				slog.Error("step budget exhausted",
					"thought", t.id,
					"spent", t.budget.Spent(),
					"limit", t.budget.Limit(),
					"queued", t.queue.Len(),
				)
				span.RecordError(err)
				span.SetStatus(codes.Error, "quota exceeded")
				return &RuntimeError{
					Code:      ErrCodeQuotaExceeded,
					Message:   "step quota exceeded",
					ThoughtID: t.id,
					Err:       err,
				}
			}
		}

		qe, _ := t.queue.PollMin()
		qe.step.Element().Steps().remove(qe)
		t.timestampOnProcess = qe.key.Seq

		for _, l := range t.listeners {
			l.BeforeProcessed(qe.step, qe.key)
		}

		if err := qe.step.Process(); err != nil {
			rerr := NewStepError(t.id, qe.step, qe.key, err)
			slog.Error("step failed",
				"thought", t.id,
				"step", qe.step.Name(),
				"phase", qe.key.Phase.String(),
				"seq", qe.key.Seq,
				"error", err,
			)
			span.RecordError(rerr)
			span.SetStatus(codes.Error, "step failed")
			return rerr
		}

		for _, l := range t.listeners {
			l.AfterProcessed(qe.step, qe.key)
		}
		processed++
	}

	span.SetAttributes(attribute.Int("processed", processed))
	slog.Debug("thought drained", "thought", t.id, "processed", processed)
	return nil
}
