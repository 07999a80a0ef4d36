package graph

import (
	"fmt"
	"sort"
)

// Node is a payload that can be suspended.
type Node interface {
	// NodeType returns the registered type name.
	NodeType() string
	// WriteFields encodes the node's state after the type tag.
	WriteFields(w *Writer) error
	// ReadFields restores state written by WriteFields. m is the model the
	// node is being reactivated into, for resolving references by id.
	ReadFields(r *Reader, m *Model) error
}

// Binder is implemented by nodes that keep a reference to their provider.
// Bind is called when the payload is attached, on Register and on every
// reactivation.
type Binder interface {
	Bind(p *Provider)
}

// Suspender is implemented by nodes that release resources before their
// payload is dropped.
type Suspender interface {
	OnSuspend()
}

// TypeEntry registers one node type.
type TypeEntry struct {
	Tag  byte
	Name string
	New  func() Node
}

// Registry maps type tags to node constructors. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	byTag  map[byte]TypeEntry
	byName map[string]TypeEntry
}

// NewRegistry builds a registry. Tags and names must be unique.
func NewRegistry(entries ...TypeEntry) (*Registry, error) {
	reg := &Registry{
		byTag:  make(map[byte]TypeEntry, len(entries)),
		byName: make(map[string]TypeEntry, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" || e.New == nil {
			return nil, fmt.Errorf("registry: entry for tag %d is incomplete", e.Tag)
		}
		if prev, ok := reg.byTag[e.Tag]; ok {
			return nil, fmt.Errorf("registry: tag %d used by %q and %q", e.Tag, prev.Name, e.Name)
		}
		if _, ok := reg.byName[e.Name]; ok {
			return nil, fmt.Errorf("registry: type %q registered twice", e.Name)
		}
		reg.byTag[e.Tag] = e
		reg.byName[e.Name] = e
	}
	return reg, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(entries ...TypeEntry) *Registry {
	reg, err := NewRegistry(entries...)
	if err != nil {
		panic(err)
	}
	return reg
}

// DefaultRegistry returns a registry holding the built-in node types.
func DefaultRegistry() *Registry {
	return MustRegistry(
		TypeEntry{Tag: NeuronTag, Name: NeuronType, New: func() Node { return NewNeuron("") }},
	)
}

// ByTag looks up a type by its tag.
func (r *Registry) ByTag(tag byte) (TypeEntry, bool) {
	e, ok := r.byTag[tag]
	return e, ok
}

// ByName looks up a type by its name.
func (r *Registry) ByName(name string) (TypeEntry, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Names returns the registered type names in tag order.
func (r *Registry) Names() []string {
	tags := make([]int, 0, len(r.byTag))
	for tag := range r.byTag {
		tags = append(tags, int(tag))
	}
	sort.Ints(tags)
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = r.byTag[byte(tag)].Name
	}
	return names
}
