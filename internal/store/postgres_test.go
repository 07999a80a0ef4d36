package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/actgraph/internal/graph"
)

func TestPostgresHook_Contract(t *testing.T) {
	dsn := os.Getenv("ACTGRAPH_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ACTGRAPH_POSTGRES_DSN not set")
	}

	runHookContract(t, func(t *testing.T) graph.SuspensionHook {
		h, err := OpenPostgresHook(context.Background(), dsn)
		require.NoError(t, err)
		t.Cleanup(func() { h.Close() })
		return h
	})
}

func TestOpenPostgresHook_RequiresDSN(t *testing.T) {
	_, err := OpenPostgresHook(context.Background(), "")
	require.Error(t, err)
}
