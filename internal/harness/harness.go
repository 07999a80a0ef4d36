package harness

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/actgraph/internal/engine"
	"github.com/roach88/actgraph/internal/field"
	"github.com/roach88/actgraph/internal/graph"
	"github.com/roach88/actgraph/internal/store"
	"github.com/roach88/actgraph/internal/testutil"
)

// functions are the unary maps available to the "function" operator.
var functions = map[string]func(float64) float64{
	"identity": func(v float64) float64 { return v },
	"neg":      func(v float64) float64 { return -v },
	"square":   func(v float64) float64 { return v * v },
	"relu":     func(v float64) float64 { return math.Max(0, v) },
	"tanh":     math.Tanh,
	"sigmoid":  func(v float64) float64 { return 1 / (1 + math.Exp(-v)) },
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	hook        graph.SuspensionHook
	compression *bool
	maxSteps    int
	keepDocs    int
}

// WithHook sets the suspension hook used by the nodes section.
// Default: a fresh store.MemoryHook per run.
func WithHook(h graph.SuspensionHook) Option {
	return func(c *runConfig) {
		c.hook = h
	}
}

// WithCompression overrides the scenario's record compression.
func WithCompression(on bool) Option {
	return func(c *runConfig) {
		c.compression = &on
	}
}

// WithMaxSteps caps the drain when the scenario does not set max_steps.
func WithMaxSteps(n int) Option {
	return func(c *runConfig) {
		c.maxSteps = n
	}
}

// WithKeepDocuments spares neurons used by the last n documents when the
// scenario does not set keep_documents.
func WithKeepDocuments(n int) Option {
	return func(c *runConfig) {
		c.keepDocs = n
	}
}

// element is a named graph element.
type element struct {
	engine.StepTracker
	name  string
	fired engine.Fired
}

func (e *element) Fired() engine.Fired { return e.fired }
func (e *element) String() string      { return e.name }

// step is one queued instance of a StepSpec. Delta is the change of the
// triggering field, zero for steps queued directly.
type step struct {
	run   *runner
	elem  *element
	phase engine.Phase
	spec  StepSpec
	delta float64
}

func (s *step) Element() engine.Element { return s.elem }
func (s *step) Phase() engine.Phase     { return s.phase }
func (s *step) Name() string            { return s.spec.Name }
func (s *step) Repeatable() bool        { return s.spec.Repeatable }
func (s *step) Process() error          { return s.run.apply(s) }

type runner struct {
	scenario *Scenario
	result   *Result
	thought  *engine.Thought
	filtered map[string]bool
	fields   map[string]*field.Field
	elements map[string]*element
	steps    map[string]StepSpec
}

// Run executes a scenario and returns the result.
//
// Every run builds fresh fields, elements and session, so runs are
// independent. An error is returned only if the scenario could not be
// executed; failed expectations are reported in the result.
//
// Execution flow:
//  1. Build fields and connections, then elements
//  2. Create the session and wire triggers
//  3. Queue the initial steps and apply the writes
//  4. Drain the queue
//  5. Run the nodes section, if any
//  6. Check expectations
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	cfg := runConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &runner{
		scenario: scenario,
		result:   NewResult(),
		filtered: make(map[string]bool, len(scenario.Filters)),
		fields:   make(map[string]*field.Field, len(scenario.Fields)),
		elements: make(map[string]*element, len(scenario.Elements)),
		steps:    make(map[string]StepSpec, len(scenario.Steps)),
	}
	r.result.trace("scenario " + scenario.Name)

	r.buildFields()
	for _, es := range scenario.Elements {
		fired := engine.NotFired
		if es.Fired != nil {
			fired = engine.Fired(*es.Fired)
		}
		r.elements[es.Name] = &element{name: es.Name, fired: fired}
	}

	thoughtID := scenario.ThoughtID
	if thoughtID == "" {
		thoughtID = "scenario-" + scenario.Name
	}
	maxSteps := scenario.MaxSteps
	if maxSteps == 0 {
		maxSteps = cfg.maxSteps
	}
	for _, name := range scenario.Filters {
		r.filtered[name] = true
	}
	rec := testutil.NewRecorder()
	r.thought = engine.NewThought(
		engine.WithIDGenerator(engine.Fixed(thoughtID)),
		engine.WithMaxSteps(maxSteps),
		engine.WithFilters(scenario.Filters...),
		engine.WithEventListener(engine.ListenerFuncs{
			Before: func(s engine.Step, key engine.QueueKey) {
				r.result.trace(fmt.Sprintf("step %d %s %s %s %s",
					key.Seq, key.Phase, key.Fired, s.Name(), s.Element()))
			},
		}),
		engine.WithEventListener(rec),
	)

	for _, st := range scenario.Steps {
		r.steps[st.Name] = st
	}
	for _, tr := range scenario.Triggers {
		spec := r.steps[tr.Step]
		r.fields[tr.Field].AddListener("trigger:"+tr.Step, func(u field.Update) {
			r.enqueue(spec, u.Delta())
		})
	}
	for _, st := range scenario.Steps {
		if st.IsQueued() {
			r.enqueue(st, 0)
		}
	}
	for _, w := range scenario.Writes {
		r.write(w)
	}

	if err := r.thought.Process(ctx); err != nil {
		var rerr *engine.RuntimeError
		if !errors.As(err, &rerr) {
			return nil, fmt.Errorf("drain: %w", err)
		}
		r.result.Stopped = string(rerr.Code)
		r.result.trace("stopped " + string(rerr.Code))
	}
	r.result.Order = append(r.result.Order, rec.Names()...)
	r.result.Processed = len(r.result.Order)
	r.result.Pending = r.thought.Len()
	r.result.trace(fmt.Sprintf("drained processed=%d pending=%d", r.result.Processed, r.result.Pending))

	for _, fs := range scenario.Fields {
		v := r.fields[fs.Name].CurrentValue()
		r.result.Fields[fs.Name] = v
		r.result.trace(fmt.Sprintf("field %s = %s", fs.Name, formatFloat(v)))
	}

	if scenario.Nodes != nil {
		if err := r.runNodes(ctx, scenario.Nodes, cfg); err != nil {
			return nil, fmt.Errorf("nodes: %w", err)
		}
	}

	if scenario.Expect != nil {
		for _, msg := range checkExpect(scenario.Expect, r.result) {
			r.result.AddError(msg)
		}
	}
	return r.result, nil
}

// buildFields creates fields in declaration order. Each field's trace
// listener is registered first, so its update is traced before any
// downstream field reacts.
func (r *runner) buildFields() {
	for _, fs := range r.scenario.Fields {
		var f *field.Field
		switch fs.Op {
		case OpScale:
			f = field.Scale(fs.Name, r.fields[fs.Inputs[0]], fs.K)
		case OpFunction:
			f = field.Function(fs.Name, r.fields[fs.Inputs[0]], functions[fs.Fn])
		case OpMul:
			f = field.Multiplication(fs.Name, r.fields[fs.Inputs[0]], r.fields[fs.Inputs[1]])
		case OpSum:
			ins := make([]field.Output, len(fs.Inputs))
			for i, name := range fs.Inputs {
				ins[i] = r.fields[name]
			}
			f = field.Sum(fs.Name, ins...)
		case OpThreshold:
			f = field.Threshold(fs.Name, r.fields[fs.Inputs[0]], fs.Threshold)
		default:
			f = field.New(fs.Name, fs.Value)
		}
		name := fs.Name
		f.AddListener("trace", func(u field.Update) {
			r.result.trace(fmt.Sprintf("update %s %s -> %s", name, formatFloat(u.Old), formatFloat(u.New)))
		})
		r.fields[fs.Name] = f
	}
	for _, c := range r.scenario.Connects {
		field.Connect(c.From+"->"+c.To, r.fields[c.From], r.fields[c.To])
	}
}

func (r *runner) enqueue(spec StepSpec, delta float64) {
	phase, _ := engine.ParsePhase(spec.Phase)
	s := &step{
		run:   r,
		elem:  r.elements[spec.Element],
		phase: phase,
		spec:  spec,
		delta: delta,
	}
	switch {
	case r.thought.AddStep(s):
		r.result.trace(fmt.Sprintf("enqueue %s %s seq=%d", spec.Name, spec.Element, r.thought.CurrentTimestamp()))
	case r.filtered[spec.Name]:
		r.result.trace(fmt.Sprintf("filtered %s %s", spec.Name, spec.Element))
	default:
		r.result.trace(fmt.Sprintf("dedup %s %s", spec.Name, spec.Element))
	}
}

func (r *runner) write(w WriteSpec) {
	f := r.fields[w.Field]
	var ok bool
	if w.Set != nil {
		r.result.trace(fmt.Sprintf("write %s set %s", w.Field, formatFloat(*w.Set)))
		ok = f.SetAndTriggerUpdate(*w.Set)
	} else {
		r.result.trace(fmt.Sprintf("write %s add %s", w.Field, formatFloat(*w.Add)))
		ok = f.AddAndTriggerUpdate(*w.Add)
	}
	if !ok {
		r.result.trace(fmt.Sprintf("hold %s pending=%s", w.Field, formatFloat(f.Update())))
	}
}

// apply runs the actions of a processed step.
func (r *runner) apply(s *step) error {
	for _, a := range s.spec.Actions {
		switch {
		case a.Set != "":
			r.fields[a.Set].SetAndTriggerUpdate(a.Value)
		case a.Add != "":
			r.fields[a.Add].AddAndTriggerUpdate(a.Value)
		case a.AddDelta != "":
			k := 1.0
			if a.Scale != nil {
				k = *a.Scale
			}
			r.fields[a.AddDelta].AddAndTriggerUpdate(k * s.delta)
		case a.Enqueue != "":
			r.enqueue(r.steps[a.Enqueue], s.delta)
		}
	}
	return nil
}

// runNodes registers and links neurons, suspends them, deletes some and
// reactivates the rest from the hook.
func (r *runner) runNodes(ctx context.Context, spec *NodesSpec, cfg runConfig) error {
	hook := cfg.hook
	if hook == nil {
		hook = store.NewMemoryHook()
	}
	compress := spec.Compression
	if cfg.compression != nil {
		compress = *cfg.compression
	}
	m := graph.NewModel(graph.WithHook(hook), graph.WithCompression(compress))

	providers := make(map[string]*graph.Provider, len(spec.Neurons))
	for _, ns := range spec.Neurons {
		n := graph.NewNeuron(ns.Label)
		n.Bias = ns.Bias
		n.IsInput = ns.Input
		p, err := m.Register(ctx, n)
		if err != nil {
			return err
		}
		providers[ns.Label] = p
		r.result.trace(fmt.Sprintf("register %s id=%d", ns.Label, p.ID()))
	}

	for _, l := range spec.Links {
		if _, err := graph.Link(ctx, providers[l.From], providers[l.To], l.Weight); err != nil {
			return err
		}
		r.result.trace(fmt.Sprintf("link %s -> %s weight=%s", l.From, l.To, formatFloat(l.Weight)))
	}

	for _, d := range spec.Documents {
		doc := m.NewDocumentID()
		for _, label := range d.Use {
			if _, err := providers[label].GetForDocument(ctx, doc); err != nil {
				return err
			}
		}
		r.result.trace(fmt.Sprintf("document %d use %s", doc, strings.Join(d.Use, " ")))
	}

	if spec.Suspend != "" {
		mode, _ := graph.ParseSuspensionMode(spec.Suspend)
		keep := cfg.keepDocs
		if spec.KeepDocuments != nil {
			keep = *spec.KeepDocuments
		}
		n, err := m.SuspendUnused(ctx, suspendBefore(m.CurrentDocumentID(), keep), mode)
		if err != nil {
			return err
		}
		r.result.trace(fmt.Sprintf("suspend %s count=%d", mode, n))
		for _, ns := range spec.Neurons {
			if !providers[ns.Label].IsSuspended() {
				r.result.Kept = append(r.result.Kept, ns.Label)
				r.result.trace("kept " + ns.Label)
			}
		}
	}

	for _, label := range spec.Delete {
		p := providers[label]
		if err := m.Delete(ctx, p); err != nil {
			return err
		}
		r.result.trace(fmt.Sprintf("delete %s id=%d", label, p.ID()))
	}

	for _, ns := range spec.Neurons {
		p := providers[ns.Label]
		node, err := p.Get(ctx)
		if graph.IsDeleted(err) {
			r.result.Deleted = append(r.result.Deleted, ns.Label)
			r.result.trace(fmt.Sprintf("reactivate id=%d deleted", p.ID()))
			continue
		}
		if err != nil {
			return err
		}
		r.result.trace("reactivate " + describeNode(p.ID(), node))
	}
	return nil
}

// suspendBefore is the first document id whose neurons survive when the
// last keep documents are spared. keep 0 suspends everything.
func suspendBefore(current int64, keep int) int64 {
	return current - int64(keep) + 1
}

func describeNode(id graph.ID, node graph.Node) string {
	n, ok := node.(*graph.Neuron)
	if !ok {
		return fmt.Sprintf("id=%d type=%s", id, node.NodeType())
	}
	outs := make([]string, 0, len(n.Outputs()))
	for _, s := range n.Outputs() {
		outs = append(outs, fmt.Sprintf("%d:%s", s.Output, formatFloat(s.Weight)))
	}
	return fmt.Sprintf("id=%d label=%s bias=%s input=%t outputs=[%s]",
		id, n.Label, formatFloat(n.Bias), n.IsInput, strings.Join(outs, " "))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
