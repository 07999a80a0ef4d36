package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

const (
	// NeuronTag is the record tag of Neuron.
	NeuronTag byte = 1
	// NeuronType is the registered type name of Neuron.
	NeuronType = "neuron"

	// synapseTag prefixes every synapse written inline in a neuron record.
	synapseTag byte = 1
)

// SampleSpace counts the observations a neuron's frequency is based on.
type SampleSpace struct {
	N      float64
	Offset *int64
}

// Synapse is a weighted edge between two neurons, stored with its input
// neuron and referring to both ends by id.
type Synapse struct {
	Input     ID
	Output    ID
	Weight    float64
	Recurrent bool
	Propagate bool
}

func (s *Synapse) writeFields(w *Writer) {
	w.WriteUint8(synapseTag)
	w.WriteID(s.Input)
	w.WriteID(s.Output)
	w.WriteFloat64(s.Weight)
	w.WriteBool(s.Recurrent)
	w.WriteBool(s.Propagate)
}

func readSynapse(r *Reader) (*Synapse, error) {
	if tag := r.ReadUint8(); r.Err() == nil && tag != synapseTag {
		return nil, fmt.Errorf("synapse tag %d: %w", tag, ErrUnknownTag)
	}
	s := &Synapse{
		Input:     r.ReadID(),
		Output:    r.ReadID(),
		Weight:    r.ReadFloat64(),
		Recurrent: r.ReadBool(),
		Propagate: r.ReadBool(),
	}
	return s, r.Err()
}

// Neuron is the built-in graph node.
type Neuron struct {
	Label       string
	Bias        float64
	Frequency   float64
	SampleSpace *SampleSpace
	IsInput     bool

	provider *Provider

	mu      sync.Mutex
	outputs map[ID]*Synapse
}

// NewNeuron returns an unregistered neuron.
func NewNeuron(label string) *Neuron {
	return &Neuron{Label: label, outputs: make(map[ID]*Synapse)}
}

// NodeType implements Node.
func (n *Neuron) NodeType() string { return NeuronType }

// Bind implements Binder.
func (n *Neuron) Bind(p *Provider) { n.provider = p }

// Provider returns the neuron's provider, or nil before Register.
func (n *Neuron) Provider() *Provider { return n.provider }

// AddOutput adds or replaces the synapse to s.Output.
func (n *Neuron) AddOutput(s *Synapse) {
	n.mu.Lock()
	if n.outputs == nil {
		n.outputs = make(map[ID]*Synapse)
	}
	n.outputs[s.Output] = s
	n.mu.Unlock()
	n.touch()
}

// RemoveOutput removes the synapse to out and reports whether it existed.
func (n *Neuron) RemoveOutput(out ID) bool {
	n.mu.Lock()
	_, ok := n.outputs[out]
	delete(n.outputs, out)
	n.mu.Unlock()
	if ok {
		n.touch()
	}
	return ok
}

// Output returns the synapse to out, if any.
func (n *Neuron) Output(out ID) (*Synapse, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.outputs[out]
	return s, ok
}

// Outputs returns the output synapses ordered by output id.
func (n *Neuron) Outputs() []*Synapse {
	n.mu.Lock()
	out := make([]*Synapse, 0, len(n.outputs))
	for _, s := range n.outputs {
		out = append(out, s)
	}
	n.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Output < out[j].Output })
	return out
}

func (n *Neuron) touch() {
	if n.provider != nil {
		n.provider.MarkModified()
	}
}

// WriteFields implements Node.
func (n *Neuron) WriteFields(w *Writer) error {
	w.WriteOptionalString(n.Label)
	w.WriteFloat64(n.Bias)

	for _, s := range n.Outputs() {
		w.WriteBool(true)
		s.writeFields(w)
	}
	w.WriteBool(false)

	w.WriteFloat64(n.Frequency)
	w.WriteBool(n.SampleSpace != nil)
	if n.SampleSpace != nil {
		w.WriteFloat64(n.SampleSpace.N)
		w.WriteBool(n.SampleSpace.Offset != nil)
		if n.SampleSpace.Offset != nil {
			w.WriteInt64(*n.SampleSpace.Offset)
		}
	}
	w.WriteBool(n.IsInput)
	return w.Err()
}

// ReadFields implements Node. Every synapse end is looked up in m so the
// referenced neurons have providers, suspended until first used.
func (n *Neuron) ReadFields(r *Reader, m *Model) error {
	n.Label = r.ReadOptionalString()
	n.Bias = r.ReadFloat64()

	n.outputs = make(map[ID]*Synapse)
	for r.ReadBool() {
		s, err := readSynapse(r)
		if err != nil {
			return err
		}
		if m != nil {
			m.Lookup(s.Input)
			m.Lookup(s.Output)
		}
		n.outputs[s.Output] = s
	}

	n.Frequency = r.ReadFloat64()
	if r.ReadBool() {
		ss := &SampleSpace{N: r.ReadFloat64()}
		if r.ReadBool() {
			off := r.ReadInt64()
			ss.Offset = &off
		}
		n.SampleSpace = ss
	}
	n.IsInput = r.ReadBool()
	return r.Err()
}

func (n *Neuron) String() string {
	if n.provider != nil {
		return fmt.Sprintf("neuron(%d %q)", n.provider.ID(), n.Label)
	}
	return fmt.Sprintf("neuron(%q)", n.Label)
}

// Link creates a synapse from in to out and stores it with in.
// Both payloads are reactivated if suspended.
func Link(ctx context.Context, in, out *Provider, weight float64) (*Synapse, error) {
	inNode, err := in.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("link input %d: %w", in.ID(), err)
	}
	if _, err := out.Get(ctx); err != nil {
		return nil, fmt.Errorf("link output %d: %w", out.ID(), err)
	}
	src, ok := inNode.(*Neuron)
	if !ok {
		return nil, fmt.Errorf("link input %d: %s is not a neuron", in.ID(), inNode.NodeType())
	}

	s := &Synapse{
		Input:     in.ID(),
		Output:    out.ID(),
		Weight:    weight,
		Propagate: true,
	}
	src.AddOutput(s)
	return s, nil
}
