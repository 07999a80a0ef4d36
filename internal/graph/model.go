package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
)

// slot is one entry of the handle table. gen is bumped when the node is
// deleted so handles taken earlier stop resolving.
type slot struct {
	gen      uint32
	provider *Provider
}

// Model owns the handle table of a graph and the hook its payloads are
// suspended to. It is safe for concurrent use by many sessions.
type Model struct {
	registry *Registry
	hook     SuspensionHook
	compress bool

	mu     sync.Mutex
	slots  map[ID]*slot
	active map[ID]*Provider
	nextID ID

	docID atomic.Int64
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithHook sets the backing store. Without a hook nodes cannot be
// suspended and ids come from an internal counter.
func WithHook(h SuspensionHook) ModelOption {
	return func(m *Model) {
		m.hook = h
	}
}

// WithRegistry sets the node type registry. Default: DefaultRegistry().
func WithRegistry(r *Registry) ModelOption {
	return func(m *Model) {
		m.registry = r
	}
}

// WithCompression gzips every record the model writes and expects every
// record it reads to be gzipped.
func WithCompression(on bool) ModelOption {
	return func(m *Model) {
		m.compress = on
	}
}

// NewModel creates an empty model.
func NewModel(opts ...ModelOption) *Model {
	m := &Model{
		slots:  make(map[ID]*slot),
		active: make(map[ID]*Provider),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = DefaultRegistry()
	}
	return m
}

// Registry returns the model's type registry.
func (m *Model) Registry() *Registry {
	return m.registry
}

// Hook returns the model's suspension hook, or nil.
func (m *Model) Hook() SuspensionHook {
	return m.hook
}

// Compression reports whether records are gzipped.
func (m *Model) Compression() bool {
	return m.compress
}

// Register allocates an id for n and makes it an active, modified node.
func (m *Model) Register(ctx context.Context, n Node) (*Provider, error) {
	if _, ok := m.registry.ByName(n.NodeType()); !ok {
		return nil, fmt.Errorf("register %q: %w", n.NodeType(), ErrUnknownTag)
	}

	var id ID
	if m.hook != nil {
		var err error
		id, err = m.hook.NewID(ctx)
		if err != nil {
			return nil, fmt.Errorf("register: allocate id: %w", err)
		}
	}

	m.mu.Lock()
	if m.hook == nil {
		m.nextID++
		id = m.nextID
	}
	s, ok := m.slots[id]
	if ok && s.provider != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("register: id %d already in use", id)
	}
	if !ok {
		s = &slot{}
		m.slots[id] = s
	}
	p := &Provider{
		model:    m,
		id:       id,
		gen:      s.gen,
		node:     n,
		modified: true,
		lastUsed: m.docID.Load(),
	}
	s.provider = p
	m.active[id] = p
	m.mu.Unlock()

	if b, ok := n.(Binder); ok {
		b.Bind(p)
	}

	slog.Debug("node registered", "node", id, "type", n.NodeType())
	capitan.Emit(ctx, ProviderRegistered,
		FieldNodeID.Field(int(id)),
		FieldNodeType.Field(n.NodeType()),
	)
	return p, nil
}

// Lookup returns the provider for id, creating a suspended one if the id
// has not been seen yet. The payload is loaded on the first Get.
func (m *Model) Lookup(id ID) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		s = &slot{}
		m.slots[id] = s
	}
	if s.provider == nil {
		s.provider = &Provider{model: m, id: id, gen: s.gen}
	}
	if m.hook == nil && id > m.nextID {
		m.nextID = id
	}
	return s.provider
}

// Resolve returns the provider a handle refers to, or ErrStaleHandle if
// the node was deleted after the handle was taken, either through Delete
// or by finding its record missing on reactivation.
func (m *Model) Resolve(h Handle) (*Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[h.ID]
	if !ok || s.gen != h.Gen || s.provider == nil {
		return nil, fmt.Errorf("resolve %s: %w", h, ErrStaleHandle)
	}
	return s.provider, nil
}

// Delete removes the node's record and retires its slot. The provider
// reports Deleted and its handles stop resolving.
func (m *Model) Delete(ctx context.Context, p *Provider) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deleted {
		return nil
	}
	if m.hook != nil {
		if err := m.hook.Remove(ctx, p.id); err != nil {
			p.emitFailed(ctx, "remove", err)
			return fmt.Errorf("remove node %d: %w", p.id, err)
		}
	}

	if p.node != nil {
		if s, ok := p.node.(Suspender); ok {
			s.OnSuspend()
		}
	}
	p.node = nil
	p.modified = false
	p.deleted = true

	m.retire(p)

	slog.Debug("node deleted", "node", p.id)
	capitan.Emit(ctx, ProviderDeleted,
		FieldNodeID.Field(int(p.id)),
		FieldOp.Field("delete"),
	)
	return nil
}

// retire drops p from the handle table and bumps its slot generation.
func (m *Model) retire(p *Provider) {
	m.mu.Lock()
	if s, ok := m.slots[p.id]; ok && s.provider == p {
		s.gen++
		s.provider = nil
	}
	delete(m.active, p.id)
	m.mu.Unlock()
}

func (m *Model) activate(p *Provider) {
	m.mu.Lock()
	m.active[p.id] = p
	m.mu.Unlock()
}

func (m *Model) deactivate(p *Provider) {
	m.mu.Lock()
	delete(m.active, p.id)
	m.mu.Unlock()
}

// ActiveProviders returns the providers with a live payload, by id.
func (m *Model) ActiveProviders() []*Provider {
	m.mu.Lock()
	ps := make([]*Provider, 0, len(m.active))
	for _, p := range m.active {
		ps = append(ps, p)
	}
	m.mu.Unlock()

	sort.Slice(ps, func(i, j int) bool { return ps[i].id < ps[j].id })
	return ps
}

// Len returns the number of providers in the handle table.
func (m *Model) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.slots {
		if s.provider != nil {
			n++
		}
	}
	return n
}

// NewDocumentID returns the next document id. Document ids drive
// SuspendUnused.
func (m *Model) NewDocumentID() int64 {
	return m.docID.Add(1)
}

// CurrentDocumentID returns the most recent document id.
func (m *Model) CurrentDocumentID() int64 {
	return m.docID.Load()
}

// SuspendUnused suspends every active node whose last-used document is
// older than docID. It returns how many were suspended; failures are
// joined and the remaining nodes are still attempted.
func (m *Model) SuspendUnused(ctx context.Context, docID int64, mode SuspensionMode) (int, error) {
	var errs []error
	n := 0
	for _, p := range m.ActiveProviders() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if p.LastUsedDocumentID() >= docID {
			continue
		}
		if err := p.Suspend(ctx, mode); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	if n > 0 {
		slog.Info("suspended unused nodes", "count", n, "before_document", docID, "mode", mode.String())
	}
	return n, errors.Join(errs...)
}

// SuspendAll suspends every active node.
func (m *Model) SuspendAll(ctx context.Context, mode SuspensionMode) error {
	var errs []error
	for _, p := range m.ActiveProviders() {
		if err := p.Suspend(ctx, mode); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close saves and suspends every active node. Without a hook it is a no-op.
func (m *Model) Close(ctx context.Context) error {
	if m.hook == nil {
		return nil
	}
	if err := m.SuspendAll(ctx, Save); err != nil {
		return fmt.Errorf("close model: %w", err)
	}
	return nil
}
