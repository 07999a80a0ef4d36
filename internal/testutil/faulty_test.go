package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/actgraph/internal/store"
)

func TestFaultyHook_PassThrough(t *testing.T) {
	ctx := context.Background()
	h := NewFaultyHook(store.NewMemoryHook())

	id, err := h.NewID(ctx)
	require.NoError(t, err)
	require.NoError(t, h.Store(ctx, id, []byte("x")))

	data, found, err := h.Retrieve(ctx, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("x"), data)
	assert.Equal(t, 1, h.Calls(OpStore))
}

func TestFaultyHook_FailOnAndHeal(t *testing.T) {
	ctx := context.Background()
	h := NewFaultyHook(store.NewMemoryHook())
	custom := errors.New("disk full")

	h.FailOn(OpStore, custom)
	h.FailOn(OpRetrieve, nil)

	assert.ErrorIs(t, h.Store(ctx, 1, []byte("x")), custom)
	_, _, err := h.Retrieve(ctx, 1)
	assert.ErrorIs(t, err, ErrInjected)

	h.Heal()
	assert.NoError(t, h.Store(ctx, 1, []byte("x")))
	assert.Equal(t, 2, h.Calls(OpStore))
}

func TestFaultyHook_Hide(t *testing.T) {
	ctx := context.Background()
	h := NewFaultyHook(store.NewMemoryHook())
	require.NoError(t, h.Store(ctx, 7, []byte("x")))

	h.Hide(7)
	_, found, err := h.Retrieve(ctx, 7)
	require.NoError(t, err)
	assert.False(t, found)
}
