package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/actgraph/internal/graph"
)

func TestFileHook_Contract(t *testing.T) {
	runHookContract(t, func(t *testing.T) graph.SuspensionHook {
		h, err := OpenFileHook(t.TempDir())
		require.NoError(t, err)
		return h
	})
}

func TestFileHook_ReopenKeepsRecordsAndCounter(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	h1, err := OpenFileHook(dir)
	require.NoError(t, err)
	id, err := h1.NewID(ctx)
	require.NoError(t, err)
	require.NoError(t, h1.Store(ctx, id, []byte("persisted")))
	_, err = h1.NewID(ctx)
	require.NoError(t, err)
	require.NoError(t, h1.Close())

	h2, err := OpenFileHook(dir)
	require.NoError(t, err)
	defer h2.Close()

	data, found, err := h2.Retrieve(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("persisted"), data)

	next, err := h2.NewID(ctx)
	require.NoError(t, err)
	assert.Equal(t, graph.ID(3), next)
}

func TestFileHook_CounterRecoveredFromRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	h1, err := OpenFileHook(dir)
	require.NoError(t, err)
	require.NoError(t, h1.Store(ctx, 17, []byte("x")))
	require.NoError(t, os.Remove(filepath.Join(dir, counterFile)))

	h2, err := OpenFileHook(dir)
	require.NoError(t, err)
	id, err := h2.NewID(ctx)
	require.NoError(t, err)
	assert.Equal(t, graph.ID(18), id)
}

func TestFileHook_IgnoresForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.node"), []byte("hi"), 0o644))

	h, err := OpenFileHook(dir)
	require.NoError(t, err)
	ids, err := h.IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileHook_Closed(t *testing.T) {
	ctx := context.Background()
	h, err := OpenFileHook(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, h.Close())

	_, err = h.NewID(ctx)
	assert.ErrorIs(t, err, os.ErrClosed)
	_, _, err = h.Retrieve(ctx, 1)
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestOpenFileHook_RequiresDir(t *testing.T) {
	_, err := OpenFileHook("")
	assert.Error(t, err)
}
