package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/actgraph/internal/graph"
)

// ErrInjected is the default failure returned by FaultyHook.
var ErrInjected = errors.New("testutil: injected I/O failure")

// Hook operations that can be made to fail.
const (
	OpNewID    = "new_id"
	OpRetrieve = "retrieve"
	OpStore    = "store"
	OpRemove   = "remove"
)

// FaultyHook wraps a SuspensionHook.
//
// Thread-safety: all methods are safe for concurrent use.
type FaultyHook struct {
	inner graph.SuspensionHook

	mu     sync.Mutex
	fail   map[string]error
	hidden map[graph.ID]bool
	calls  map[string]int
}

// NewFaultyHook wraps inner. With no failures configured it behaves
// exactly like inner.
func NewFaultyHook(inner graph.SuspensionHook) *FaultyHook {
	return &FaultyHook{
		inner:  inner,
		fail:   make(map[string]error),
		hidden: make(map[graph.ID]bool),
		calls:  make(map[string]int),
	}
}

// FailOn makes op fail with err until Heal is called. A nil err means
// ErrInjected.
func (h *FaultyHook) FailOn(op string, err error) {
	if err == nil {
		err = ErrInjected
	}
	h.mu.Lock()
	h.fail[op] = err
	h.mu.Unlock()
}

// Heal clears every configured failure and hidden id.
func (h *FaultyHook) Heal() {
	h.mu.Lock()
	clear(h.fail)
	clear(h.hidden)
	h.mu.Unlock()
}

// Hide makes Retrieve report id as absent, as if another process deleted it.
func (h *FaultyHook) Hide(id graph.ID) {
	h.mu.Lock()
	h.hidden[id] = true
	h.mu.Unlock()
}

// Calls returns how many times op was invoked, including failed calls.
func (h *FaultyHook) Calls(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[op]
}

func (h *FaultyHook) enter(op string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls[op]++
	return h.fail[op]
}

func (h *FaultyHook) NewID(ctx context.Context) (graph.ID, error) {
	if err := h.enter(OpNewID); err != nil {
		return 0, err
	}
	return h.inner.NewID(ctx)
}

func (h *FaultyHook) Retrieve(ctx context.Context, id graph.ID) ([]byte, bool, error) {
	if err := h.enter(OpRetrieve); err != nil {
		return nil, false, err
	}
	h.mu.Lock()
	hidden := h.hidden[id]
	h.mu.Unlock()
	if hidden {
		return nil, false, nil
	}
	return h.inner.Retrieve(ctx, id)
}

func (h *FaultyHook) Store(ctx context.Context, id graph.ID, data []byte) error {
	if err := h.enter(OpStore); err != nil {
		return err
	}
	return h.inner.Store(ctx, id, data)
}

func (h *FaultyHook) Remove(ctx context.Context, id graph.ID) error {
	if err := h.enter(OpRemove); err != nil {
		return err
	}
	return h.inner.Remove(ctx, id)
}
