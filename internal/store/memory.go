package store

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/actgraph/internal/graph"
)

// MemoryHook keeps records in a map.
type MemoryHook struct {
	mu      sync.RWMutex
	lastID  graph.ID
	records map[graph.ID][]byte
}

// NewMemoryHook returns an empty hook. The first id is 1.
func NewMemoryHook() *MemoryHook {
	return &MemoryHook{records: make(map[graph.ID][]byte)}
}

func (h *MemoryHook) NewID(_ context.Context) (graph.ID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastID++
	return h.lastID, nil
}

func (h *MemoryHook) Retrieve(_ context.Context, id graph.ID) ([]byte, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data, ok := h.records[id]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(data), true, nil
}

func (h *MemoryHook) Store(_ context.Context, id graph.ID, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records[id] = slices.Clone(data)
	return nil
}

func (h *MemoryHook) Remove(_ context.Context, id graph.ID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.records, id)
	return nil
}

// IDs implements Lister.
func (h *MemoryHook) IDs(_ context.Context) ([]graph.ID, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]graph.ID, 0, len(h.records))
	for id := range h.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Len returns the number of stored records.
func (h *MemoryHook) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
