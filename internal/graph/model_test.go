package graph_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/actgraph/internal/graph"
	"github.com/roach88/actgraph/internal/store"
)

func TestModel_WithoutHook(t *testing.T) {
	ctx := context.Background()
	m := graph.NewModel()

	var ids []graph.ID
	for i := 0; i < 3; i++ {
		p, err := m.Register(ctx, graph.NewNeuron(fmt.Sprint(i)))
		require.NoError(t, err)
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []graph.ID{1, 2, 3}, ids)

	p := m.Lookup(1)
	err := p.Suspend(ctx, graph.Save)
	assert.ErrorIs(t, err, graph.ErrNoHook)
	assert.False(t, p.IsSuspended())
	assert.ErrorIs(t, p.Save(ctx), graph.ErrNoHook)

	_, err = m.Lookup(99).Get(ctx)
	assert.ErrorIs(t, err, graph.ErrNoHook)

	next, err := m.Register(ctx, graph.NewNeuron("after-lookup"))
	require.NoError(t, err)
	assert.Equal(t, graph.ID(100), next.ID(), "internal ids skip past looked-up ids")

	assert.NoError(t, m.Close(ctx))
}

func TestModel_RegisterUnknownType(t *testing.T) {
	m := graph.NewModel(graph.WithRegistry(graph.MustRegistry()))
	_, err := m.Register(context.Background(), graph.NewNeuron("x"))
	assert.ErrorIs(t, err, graph.ErrUnknownTag)
}

func TestModel_RegisterHookFailure(t *testing.T) {
	m, hook := newTestModel(t)
	hook.FailOn("new_id", nil)

	_, err := m.Register(context.Background(), graph.NewNeuron("x"))
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestModel_LookupReturnsSameProvider(t *testing.T) {
	m, _ := newTestModel(t)

	p1 := m.Lookup(42)
	p2 := m.Lookup(42)
	assert.Same(t, p1, p2)
	assert.True(t, p1.IsSuspended())
	assert.Empty(t, m.ActiveProviders())

	got, err := m.Resolve(p1.Handle())
	require.NoError(t, err)
	assert.Same(t, p1, got)
}

func TestModel_DeleteRetiresHandle(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel(t)

	p, err := m.Register(ctx, graph.NewNeuron("doomed"))
	require.NoError(t, err)
	require.NoError(t, p.Save(ctx))
	h := p.Handle()

	require.NoError(t, m.Delete(ctx, p))
	require.NoError(t, m.Delete(ctx, p), "deleting twice is a no-op")

	_, err = m.Resolve(h)
	assert.ErrorIs(t, err, graph.ErrStaleHandle)
	assert.True(t, p.Deleted())
	_, err = p.Get(ctx)
	assert.ErrorIs(t, err, graph.ErrDeleted)
	assert.Empty(t, m.ActiveProviders())

	// A later lookup of the id gets a fresh slot generation and finds no record.
	again := m.Lookup(h.ID)
	assert.NotSame(t, p, again)
	assert.Equal(t, h.Gen+1, again.Handle().Gen)
	_, err = again.Get(ctx)
	assert.ErrorIs(t, err, graph.ErrDeleted)
}

func TestModel_DeleteFailureKeepsNode(t *testing.T) {
	ctx := context.Background()
	m, hook := newTestModel(t)

	p, err := m.Register(ctx, graph.NewNeuron("x"))
	require.NoError(t, err)

	hook.FailOn("remove", nil)
	assert.Error(t, m.Delete(ctx, p))
	assert.False(t, p.Deleted())
	_, err = m.Resolve(p.Handle())
	assert.NoError(t, err)
}

func TestModel_ResolveUnknown(t *testing.T) {
	m := graph.NewModel()
	_, err := m.Resolve(graph.Handle{ID: 5})
	assert.ErrorIs(t, err, graph.ErrStaleHandle)
}

func TestModel_SuspendUnused(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel(t)

	old, err := m.Register(ctx, graph.NewNeuron("old"))
	require.NoError(t, err)
	recent, err := m.Register(ctx, graph.NewNeuron("recent"))
	require.NoError(t, err)

	doc1 := m.NewDocumentID()
	_, err = old.GetForDocument(ctx, doc1)
	require.NoError(t, err)
	doc2 := m.NewDocumentID()
	_, err = recent.GetForDocument(ctx, doc2)
	require.NoError(t, err)

	n, err := m.SuspendUnused(ctx, doc2, graph.Save)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, old.IsSuspended())
	assert.False(t, recent.IsSuspended())
	assert.Equal(t, []*graph.Provider{recent}, m.ActiveProviders())

	// The suspended node was saved and reloads.
	got, err := old.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old", got.(*graph.Neuron).Label)
}

func TestModel_SuspendUnusedJoinsErrors(t *testing.T) {
	ctx := context.Background()
	m, hook := newTestModel(t)

	for i := 0; i < 3; i++ {
		_, err := m.Register(ctx, graph.NewNeuron("x"))
		require.NoError(t, err)
	}
	hook.FailOn("store", nil)

	n, err := m.SuspendUnused(ctx, m.NewDocumentID(), graph.Save)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, m.ActiveProviders(), 3)
	assert.Equal(t, 3, hook.Calls("store"), "every node is attempted")
}

func TestModel_SuspendAllDiscard(t *testing.T) {
	ctx := context.Background()
	m, hook := newTestModel(t)

	saved, err := m.Register(ctx, graph.NewNeuron("saved"))
	require.NoError(t, err)
	require.NoError(t, saved.Save(ctx))
	_, err = m.Register(ctx, graph.NewNeuron("dropped"))
	require.NoError(t, err)
	stores := hook.Calls("store")

	require.NoError(t, m.SuspendAll(ctx, graph.Discard))
	assert.Empty(t, m.ActiveProviders())
	assert.Equal(t, stores, hook.Calls("store"), "discard writes nothing")

	got, err := saved.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "saved", got.(*graph.Neuron).Label)
}

func TestModel_CloseSavesEverything(t *testing.T) {
	ctx := context.Background()
	hook := store.NewMemoryHook()
	m := graph.NewModel(graph.WithHook(hook))

	for i := 0; i < 4; i++ {
		_, err := m.Register(ctx, graph.NewNeuron(fmt.Sprint(i)))
		require.NoError(t, err)
	}
	require.NoError(t, m.Close(ctx))
	assert.Equal(t, 4, hook.Len())
	assert.Empty(t, m.ActiveProviders())
}

// A second model over the same store sees the saved graph; reactivating a
// neuron registers providers for both ends of its synapses.
func TestModel_ReopenFromStore(t *testing.T) {
	ctx := context.Background()
	hook := store.NewMemoryHook()

	m1 := graph.NewModel(graph.WithHook(hook))
	in, err := m1.Register(ctx, graph.NewNeuron("in"))
	require.NoError(t, err)
	out, err := m1.Register(ctx, graph.NewNeuron("out"))
	require.NoError(t, err)
	_, err = graph.Link(ctx, in, out, 0.9)
	require.NoError(t, err)
	require.NoError(t, m1.Close(ctx))

	m2 := graph.NewModel(graph.WithHook(hook))
	assert.Equal(t, 0, m2.Len())

	n, err := m2.Lookup(in.ID()).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, m2.Len())

	syn, ok := n.(*graph.Neuron).Output(out.ID())
	require.True(t, ok)
	assert.Equal(t, 0.9, syn.Weight)

	outNode, err := m2.Lookup(out.ID()).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "out", outNode.(*graph.Neuron).Label)
}

func TestModel_ConcurrentRegistry(t *testing.T) {
	ctx := context.Background()
	m := graph.NewModel(graph.WithHook(store.NewMemoryHook()))

	const workers, perWorker = 16, 50
	var wg sync.WaitGroup
	idsCh := make(chan graph.ID, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				p, err := m.Register(ctx, graph.NewNeuron("n"))
				if !assert.NoError(t, err) {
					return
				}
				idsCh <- p.ID()
				assert.Same(t, p, m.Lookup(p.ID()))
				_ = m.ActiveProviders()
			}
		}()
	}
	wg.Wait()
	close(idsCh)

	seen := make(map[graph.ID]bool)
	for id := range idsCh {
		assert.False(t, seen[id], "id %d allocated twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, workers*perWorker, m.Len())
	assert.Len(t, m.ActiveProviders(), workers*perWorker)
}

func TestModel_ConcurrentSuspendAndGet(t *testing.T) {
	ctx := context.Background()
	m := graph.NewModel(graph.WithHook(store.NewMemoryHook()), graph.WithCompression(true))

	var ps []*graph.Provider
	for i := 0; i < 20; i++ {
		p, err := m.Register(ctx, graph.NewNeuron(fmt.Sprint(i)))
		require.NoError(t, err)
		ps = append(ps, p)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for _, p := range ps {
				assert.NoError(t, p.Suspend(ctx, graph.Save))
			}
		}()
		go func() {
			defer wg.Done()
			for _, p := range ps {
				_, err := p.Get(ctx)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	for i, p := range ps {
		n, err := p.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(i), n.(*graph.Neuron).Label)
	}
}
