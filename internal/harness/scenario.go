package harness

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/actgraph/internal/engine"
	"github.com/roach88/actgraph/internal/graph"
)

// Scenario describes one run of the field graph and the step scheduler,
// optionally followed by a suspension round trip of a small neuron graph.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// ThoughtID fixes the session id. Defaults to "scenario-<name>".
	ThoughtID string `yaml:"thought_id,omitempty"`

	// MaxSteps caps the drain. Zero means unlimited.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Filters lists step names dropped at enqueue.
	Filters []string `yaml:"filters,omitempty"`

	Fields   []FieldSpec   `yaml:"fields,omitempty"`
	Connects []ConnectSpec `yaml:"connects,omitempty"`
	Elements []ElementSpec `yaml:"elements,omitempty"`
	Steps    []StepSpec    `yaml:"steps,omitempty"`
	Triggers []TriggerSpec `yaml:"triggers,omitempty"`
	Writes   []WriteSpec   `yaml:"writes,omitempty"`
	Nodes    *NodesSpec    `yaml:"nodes,omitempty"`
	Expect   *Expect       `yaml:"expect,omitempty"`
}

// Field operators.
const (
	OpSource    = ""
	OpScale     = "scale"
	OpFunction  = "function"
	OpMul       = "mul"
	OpSum       = "sum"
	OpThreshold = "threshold"
)

// FieldSpec declares a field. A field without an op is a source field
// holding Value; the others derive from earlier fields.
type FieldSpec struct {
	Name      string   `yaml:"name"`
	Value     float64  `yaml:"value,omitempty"`
	Op        string   `yaml:"op,omitempty"`
	Inputs    []string `yaml:"inputs,omitempty"`
	K         float64  `yaml:"k,omitempty"`
	Threshold float64  `yaml:"threshold,omitempty"`
	Fn        string   `yaml:"fn,omitempty"`
}

// ConnectSpec pushes every update of From into To as a delta.
type ConnectSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ElementSpec declares a graph element steps bind to.
type ElementSpec struct {
	Name string `yaml:"name"`
	// Fired is the firing time. Nil means the element has not fired.
	Fired *int64 `yaml:"fired,omitempty"`
}

// StepSpec declares a step kind bound to one element.
type StepSpec struct {
	Name    string `yaml:"name"`
	Element string `yaml:"element"`
	Phase   string `yaml:"phase"`
	// Queued adds the step before the writes. Defaults to true.
	Queued     *bool    `yaml:"queued,omitempty"`
	Repeatable bool     `yaml:"repeatable,omitempty"`
	Actions    []Action `yaml:"actions,omitempty"`
}

// IsQueued reports whether the step is added before the writes.
func (s StepSpec) IsQueued() bool {
	return s.Queued == nil || *s.Queued
}

// Action is one effect of a step. Exactly one of Set, Add, AddDelta and
// Enqueue is set.
type Action struct {
	// Set stages Value on the named field and triggers.
	Set string `yaml:"set,omitempty"`
	// Add adds Value to the named field and triggers.
	Add string `yaml:"add,omitempty"`
	// AddDelta adds Scale times the triggering delta to the named field.
	AddDelta string   `yaml:"add_delta,omitempty"`
	Value    float64  `yaml:"value,omitempty"`
	Scale    *float64 `yaml:"scale,omitempty"`
	// Enqueue queues the named step.
	Enqueue string `yaml:"enqueue,omitempty"`
}

// TriggerSpec queues Step on every committed update of Field.
type TriggerSpec struct {
	Field string `yaml:"field"`
	Step  string `yaml:"step"`
}

// WriteSpec is an external write applied before the drain.
type WriteSpec struct {
	Field string   `yaml:"field"`
	Set   *float64 `yaml:"set,omitempty"`
	Add   *float64 `yaml:"add,omitempty"`
}

// NodesSpec exercises the suspension cache after the drain.
type NodesSpec struct {
	Compression bool         `yaml:"compression,omitempty"`
	Neurons     []NeuronSpec `yaml:"neurons"`
	Links       []LinkSpec   `yaml:"links,omitempty"`
	// Documents are processed in order; each one opens a new document id
	// and marks the neurons it uses.
	Documents []DocumentSpec `yaml:"documents,omitempty"`
	// Suspend is the suspension mode, "save" or "discard". Empty skips
	// suspension.
	Suspend string `yaml:"suspend,omitempty"`
	// KeepDocuments spares neurons used by the last N documents from
	// suspension. Nil defers to the WithKeepDocuments option.
	KeepDocuments *int     `yaml:"keep_documents,omitempty"`
	Delete        []string `yaml:"delete,omitempty"`
}

// DocumentSpec lists the neurons one document touches.
type DocumentSpec struct {
	Use []string `yaml:"use"`
}

// NeuronSpec declares a neuron node.
type NeuronSpec struct {
	Label string  `yaml:"label"`
	Bias  float64 `yaml:"bias,omitempty"`
	Input bool    `yaml:"input,omitempty"`
}

// LinkSpec declares a synapse between two neurons.
type LinkSpec struct {
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
	Weight float64 `yaml:"weight"`
}

// Expect holds the checks applied after a run. Unset checks are skipped.
type Expect struct {
	Order     []string           `yaml:"order,omitempty"`
	Fields    map[string]float64 `yaml:"fields,omitempty"`
	Processed *int               `yaml:"processed,omitempty"`
	Pending   *int               `yaml:"pending,omitempty"`
	Stopped   string             `yaml:"stopped,omitempty"`
	Deleted   []string           `yaml:"deleted,omitempty"`
	Kept      []string           `yaml:"kept,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Nodes != nil {
		normalizeLabels(scenario.Nodes)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// normalizeLabels rewrites neuron labels and every reference to them in NFC,
// so "e\u0301" and "\u00e9" name the same neuron.
func normalizeLabels(n *NodesSpec) {
	nfc := norm.NFC.String
	for i := range n.Neurons {
		n.Neurons[i].Label = nfc(n.Neurons[i].Label)
	}
	for i := range n.Links {
		n.Links[i].From = nfc(n.Links[i].From)
		n.Links[i].To = nfc(n.Links[i].To)
	}
	for i := range n.Documents {
		for j := range n.Documents[i].Use {
			n.Documents[i].Use[j] = nfc(n.Documents[i].Use[j])
		}
	}
	for i := range n.Delete {
		n.Delete[i] = nfc(n.Delete[i])
	}
}

// validateScenario checks names, references and operator arity.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be >= 0")
	}

	fields := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("fields[%d]: name is required", i)
		}
		if fields[f.Name] {
			return fmt.Errorf("fields[%d]: duplicate field %q", i, f.Name)
		}
		if err := validateOp(f); err != nil {
			return fmt.Errorf("fields[%d] %s: %w", i, f.Name, err)
		}
		for _, in := range f.Inputs {
			if !fields[in] {
				return fmt.Errorf("fields[%d] %s: input %q must be declared earlier", i, f.Name, in)
			}
		}
		fields[f.Name] = true
	}

	for i, c := range s.Connects {
		if !fields[c.From] || !fields[c.To] {
			return fmt.Errorf("connects[%d]: unknown field in %s -> %s", i, c.From, c.To)
		}
	}

	elements := make(map[string]bool, len(s.Elements))
	for i, e := range s.Elements {
		if e.Name == "" {
			return fmt.Errorf("elements[%d]: name is required", i)
		}
		if elements[e.Name] {
			return fmt.Errorf("elements[%d]: duplicate element %q", i, e.Name)
		}
		if e.Fired != nil && *e.Fired < 0 {
			return fmt.Errorf("elements[%d]: fired must be >= 0", i)
		}
		elements[e.Name] = true
	}

	steps := make(map[string]bool, len(s.Steps))
	for i, st := range s.Steps {
		if st.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if steps[st.Name] {
			return fmt.Errorf("steps[%d]: duplicate step %q", i, st.Name)
		}
		if !elements[st.Element] {
			return fmt.Errorf("steps[%d] %s: unknown element %q", i, st.Name, st.Element)
		}
		if _, err := engine.ParsePhase(st.Phase); err != nil {
			return fmt.Errorf("steps[%d] %s: %w", i, st.Name, err)
		}
		steps[st.Name] = true
	}
	for i, st := range s.Steps {
		for j, a := range st.Actions {
			if err := validateAction(a, fields, steps); err != nil {
				return fmt.Errorf("steps[%d].actions[%d]: %w", i, j, err)
			}
		}
	}

	for i, tr := range s.Triggers {
		if !fields[tr.Field] {
			return fmt.Errorf("triggers[%d]: unknown field %q", i, tr.Field)
		}
		if !steps[tr.Step] {
			return fmt.Errorf("triggers[%d]: unknown step %q", i, tr.Step)
		}
	}

	for i, w := range s.Writes {
		if !fields[w.Field] {
			return fmt.Errorf("writes[%d]: unknown field %q", i, w.Field)
		}
		if (w.Set == nil) == (w.Add == nil) {
			return fmt.Errorf("writes[%d]: exactly one of set and add is required", i)
		}
	}

	if s.Nodes != nil {
		if err := validateNodes(s.Nodes); err != nil {
			return fmt.Errorf("nodes: %w", err)
		}
	}
	return nil
}

func validateOp(f FieldSpec) error {
	want := -1
	switch f.Op {
	case OpSource:
		want = 0
	case OpScale, OpThreshold:
		want = 1
	case OpFunction:
		want = 1
		if _, ok := functions[f.Fn]; !ok {
			return fmt.Errorf("unknown fn %q", f.Fn)
		}
	case OpMul:
		want = 2
	case OpSum:
		if len(f.Inputs) == 0 {
			return fmt.Errorf("sum needs at least one input")
		}
		return nil
	default:
		return fmt.Errorf("unknown op %q", f.Op)
	}
	if len(f.Inputs) != want {
		return fmt.Errorf("op %q takes %d inputs, got %d", f.Op, want, len(f.Inputs))
	}
	return nil
}

func validateAction(a Action, fields, steps map[string]bool) error {
	set := 0
	for _, name := range []string{a.Set, a.Add, a.AddDelta, a.Enqueue} {
		if name != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of set, add, add_delta and enqueue is required")
	}
	switch {
	case a.Enqueue != "":
		if !steps[a.Enqueue] {
			return fmt.Errorf("unknown step %q", a.Enqueue)
		}
	default:
		name := a.Set + a.Add + a.AddDelta
		if !fields[name] {
			return fmt.Errorf("unknown field %q", name)
		}
	}
	return nil
}

func validateNodes(n *NodesSpec) error {
	labels := make(map[string]bool, len(n.Neurons))
	for i, ns := range n.Neurons {
		if ns.Label == "" {
			return fmt.Errorf("neurons[%d]: label is required", i)
		}
		if labels[ns.Label] {
			return fmt.Errorf("neurons[%d]: duplicate label %q", i, ns.Label)
		}
		labels[ns.Label] = true
	}
	for i, l := range n.Links {
		if !labels[l.From] || !labels[l.To] {
			return fmt.Errorf("links[%d]: unknown neuron in %s -> %s", i, l.From, l.To)
		}
	}
	for i, d := range n.Documents {
		if len(d.Use) == 0 {
			return fmt.Errorf("documents[%d]: use is empty", i)
		}
		for _, label := range d.Use {
			if !labels[label] {
				return fmt.Errorf("documents[%d]: unknown neuron %q", i, label)
			}
		}
	}
	if n.Suspend != "" {
		if _, err := graph.ParseSuspensionMode(n.Suspend); err != nil {
			return err
		}
	}
	if n.KeepDocuments != nil && *n.KeepDocuments < 0 {
		return fmt.Errorf("keep_documents must be >= 0")
	}
	for i, label := range n.Delete {
		if !labels[label] {
			return fmt.Errorf("delete[%d]: unknown neuron %q", i, label)
		}
	}
	return nil
}
