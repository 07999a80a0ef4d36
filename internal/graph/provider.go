package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("actgraph/graph")

// Provider is the stable handle of one node.
//
// Other nodes hold the provider or its id, never the payload. A nil
// payload means the node is suspended.
type Provider struct {
	model *Model
	id    ID
	gen   uint32

	mu       sync.Mutex
	node     Node
	modified bool
	deleted  bool
	lastUsed int64
}

// ID returns the node id.
func (p *Provider) ID() ID {
	return p.id
}

// Handle returns a generation-checked reference to p.
func (p *Provider) Handle() Handle {
	return Handle{ID: p.id, Gen: p.gen}
}

// Model returns the owning model.
func (p *Provider) Model() *Model {
	return p.model
}

// Get returns the live payload, reactivating it from the hook if needed.
//
// If the hook has no record for the id the provider is marked deleted and
// Get returns ErrDeleted, now and on every later call.
func (p *Provider) Get(ctx context.Context) (Node, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getLocked(ctx)
}

// GetForDocument is Get plus advancing the provider's last-used document
// watermark to docID.
func (p *Provider) GetForDocument(ctx context.Context, docID int64) (Node, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, err := p.getLocked(ctx)
	if err != nil {
		return nil, err
	}
	if docID > p.lastUsed {
		p.lastUsed = docID
	}
	return n, nil
}

func (p *Provider) getLocked(ctx context.Context) (Node, error) {
	if p.deleted {
		return nil, ErrDeleted
	}
	if p.node != nil {
		return p.node, nil
	}
	if err := p.reactivate(ctx); err != nil {
		return nil, err
	}
	return p.node, nil
}

// reactivate loads the payload from the hook. Caller holds p.mu.
func (p *Provider) reactivate(ctx context.Context) (err error) {
	m := p.model
	if m.hook == nil {
		return fmt.Errorf("reactivate node %d: %w", p.id, ErrNoHook)
	}

	ctx, span := tracer.Start(ctx, "provider.reactivate",
		trace.WithAttributes(attribute.Int64("node_id", int64(p.id))),
	)
	defer span.End()
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "reactivate failed")
		}
	}()

	data, found, err := m.hook.Retrieve(ctx, p.id)
	if err != nil {
		p.emitFailed(ctx, "retrieve", err)
		return fmt.Errorf("retrieve node %d: %w", p.id, err)
	}
	if !found {
		slog.Warn("node record missing, marking deleted", "node", p.id)
		p.deleted = true
		p.modified = false
		m.retire(p)
		capitan.Emit(ctx, ProviderDeleted,
			FieldNodeID.Field(int(p.id)),
			FieldOp.Field("reactivate"),
		)
		return ErrDeleted
	}

	n, err := Decode(m.registry, m, data, m.compress)
	if err != nil {
		cerr := &CodecError{ID: p.id, Op: "decode", Err: err}
		p.emitFailed(ctx, "decode", cerr)
		return cerr
	}
	if b, ok := n.(Binder); ok {
		b.Bind(p)
	}

	p.node = n
	p.modified = false
	m.activate(p)

	span.SetAttributes(
		attribute.String("node_type", n.NodeType()),
		attribute.Int("bytes", len(data)),
	)
	slog.Debug("node reactivated", "node", p.id, "type", n.NodeType(), "bytes", len(data))
	capitan.Emit(ctx, ProviderReactivated,
		FieldNodeID.Field(int(p.id)),
		FieldNodeType.Field(n.NodeType()),
		FieldBytes.Field(len(data)),
		FieldDuration.Field(time.Since(start)),
	)
	return nil
}

// Suspend drops the payload. With Save, a modified payload is written to
// the hook first. Suspending a suspended provider is a no-op.
//
// If the write fails the payload is kept and the error returned.
func (p *Provider) Suspend(ctx context.Context, mode SuspensionMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.node == nil {
		return nil
	}
	m := p.model
	if m.hook == nil {
		return fmt.Errorf("suspend node %d: %w", p.id, ErrNoHook)
	}

	ctx, span := tracer.Start(ctx, "provider.suspend",
		trace.WithAttributes(
			attribute.Int64("node_id", int64(p.id)),
			attribute.String("mode", mode.String()),
		),
	)
	defer span.End()

	if mode == Save && p.modified {
		if err := p.saveLocked(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "save failed")
			return err
		}
	}

	if s, ok := p.node.(Suspender); ok {
		s.OnSuspend()
	}
	nodeType := p.node.NodeType()
	p.node = nil
	p.modified = false
	m.deactivate(p)

	slog.Debug("node suspended", "node", p.id, "type", nodeType, "mode", mode.String())
	capitan.Emit(ctx, ProviderSuspended,
		FieldNodeID.Field(int(p.id)),
		FieldNodeType.Field(nodeType),
		FieldMode.Field(mode.String()),
	)
	return nil
}

// Save writes the payload to the hook if it was modified since the last
// save or reactivation. It is a no-op otherwise.
func (p *Provider) Save(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.modified || p.node == nil {
		return nil
	}
	if p.model.hook == nil {
		return fmt.Errorf("save node %d: %w", p.id, ErrNoHook)
	}
	return p.saveLocked(ctx)
}

func (p *Provider) saveLocked(ctx context.Context) error {
	m := p.model
	data, err := Encode(m.registry, p.node, m.compress)
	if err != nil {
		cerr := &CodecError{ID: p.id, Op: "encode", Err: err}
		p.emitFailed(ctx, "encode", cerr)
		return cerr
	}
	if err := m.hook.Store(ctx, p.id, data); err != nil {
		p.emitFailed(ctx, "store", err)
		return fmt.Errorf("store node %d: %w", p.id, err)
	}
	p.modified = false

	capitan.Emit(ctx, ProviderSaved,
		FieldNodeID.Field(int(p.id)),
		FieldNodeType.Field(p.node.NodeType()),
		FieldBytes.Field(len(data)),
	)
	return nil
}

func (p *Provider) emitFailed(ctx context.Context, op string, err error) {
	slog.Error("suspension hook failure", "node", p.id, "op", op, "error", err)
	capitan.Error(ctx, ProviderFailed,
		FieldNodeID.Field(int(p.id)),
		FieldOp.Field(op),
		FieldError.Field(err),
	)
}

// MarkModified flags the payload as changed since it was last saved.
func (p *Provider) MarkModified() {
	p.mu.Lock()
	p.modified = true
	p.mu.Unlock()
}

// IsModified reports whether the payload has unsaved changes.
func (p *Provider) IsModified() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modified
}

// IsSuspended reports whether the payload is not in memory.
func (p *Provider) IsSuspended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.node == nil
}

// Deleted reports whether the node was deleted or found missing.
func (p *Provider) Deleted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deleted
}

// IfNotSuspended returns the payload without reactivating, or nil.
func (p *Provider) IfNotSuspended() Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.node
}

// LastUsedDocumentID returns the last document that used the node.
func (p *Provider) LastUsedDocumentID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastUsed
}

func (p *Provider) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := "active"
	switch {
	case p.deleted:
		state = "deleted"
	case p.node == nil:
		state = "suspended"
	}
	return fmt.Sprintf("provider(%d, %s)", p.id, state)
}
