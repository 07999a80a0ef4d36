package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/actgraph/internal/graph"
)

// runHookContract checks the behavior every backend must share.
func runHookContract(t *testing.T, open func(t *testing.T) graph.SuspensionHook) {
	t.Helper()
	ctx := context.Background()

	t.Run("ids are unique and increasing", func(t *testing.T) {
		h := open(t)
		var prev graph.ID
		for i := 0; i < 5; i++ {
			id, err := h.NewID(ctx)
			require.NoError(t, err)
			assert.Greater(t, id, prev)
			prev = id
		}
	})

	t.Run("absent record is not an error", func(t *testing.T) {
		h := open(t)
		data, found, err := h.Retrieve(ctx, 424242)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, data)
	})

	t.Run("store then retrieve", func(t *testing.T) {
		h := open(t)
		id, err := h.NewID(ctx)
		require.NoError(t, err)

		require.NoError(t, h.Store(ctx, id, []byte{1, 2, 3}))
		data, found, err := h.Retrieve(ctx, id)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []byte{1, 2, 3}, data)

		require.NoError(t, h.Store(ctx, id, []byte{9}))
		data, found, err = h.Retrieve(ctx, id)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []byte{9}, data, "store overwrites")
	})

	t.Run("remove", func(t *testing.T) {
		h := open(t)
		id, err := h.NewID(ctx)
		require.NoError(t, err)
		require.NoError(t, h.Store(ctx, id, []byte("payload")))

		require.NoError(t, h.Remove(ctx, id))
		_, found, err := h.Retrieve(ctx, id)
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, h.Remove(ctx, id), "removing an absent record is not an error")
	})

	t.Run("ids are not reused after remove", func(t *testing.T) {
		h := open(t)
		id1, err := h.NewID(ctx)
		require.NoError(t, err)
		require.NoError(t, h.Store(ctx, id1, []byte("x")))
		require.NoError(t, h.Remove(ctx, id1))

		id2, err := h.NewID(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, id1, id2)
	})

	t.Run("list ids", func(t *testing.T) {
		h := open(t)
		var want []graph.ID
		for i := 0; i < 3; i++ {
			id, err := h.NewID(ctx)
			require.NoError(t, err)
			require.NoError(t, h.Store(ctx, id, []byte{byte(i)}))
			want = append(want, id)
		}
		got, err := ListIDs(ctx, h)
		require.NoError(t, err)
		assert.Subset(t, got, want)
		assert.IsIncreasing(t, got)
	})

	t.Run("model round trip", func(t *testing.T) {
		h := open(t)
		m := graph.NewModel(graph.WithHook(h), graph.WithCompression(true))

		n := graph.NewNeuron("cat")
		n.Bias = -0.25
		p, err := m.Register(ctx, n)
		require.NoError(t, err)

		require.NoError(t, p.Suspend(ctx, graph.Save))
		assert.True(t, p.IsSuspended())

		got, err := p.Get(ctx)
		require.NoError(t, err)
		neuron := got.(*graph.Neuron)
		assert.Equal(t, "cat", neuron.Label)
		assert.Equal(t, -0.25, neuron.Bias)
	})
}
