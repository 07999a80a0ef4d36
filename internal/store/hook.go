package store

import (
	"context"
	"fmt"

	"github.com/roach88/actgraph/internal/graph"
)

// Backend kinds accepted by NewHook.
const (
	KindMemory   = "memory"
	KindFile     = "file"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	// Kind is one of memory, file, sqlite, postgres. Empty means memory.
	Kind string
	// Path is the directory (file) or database file (sqlite).
	Path string
	// Driver is the database/sql driver for sqlite: "sqlite3" (default)
	// or "sqlite".
	Driver string
	// DSN is the postgres connection string.
	DSN string
}

// Lister is implemented by hooks that can enumerate their records.
type Lister interface {
	IDs(ctx context.Context) ([]graph.ID, error)
}

// NewHook opens the backend described by opts.
func NewHook(ctx context.Context, opts Options) (graph.SuspensionHook, error) {
	switch opts.Kind {
	case "", KindMemory:
		return NewMemoryHook(), nil
	case KindFile:
		return OpenFileHook(opts.Path)
	case KindSQLite:
		return OpenSQLiteHook(ctx, opts.Path, opts.Driver)
	case KindPostgres:
		return OpenPostgresHook(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", opts.Kind)
	}
}

// CloseIfSupported closes hook if it holds resources.
func CloseIfSupported(hook graph.SuspensionHook) error {
	closer, ok := hook.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

// ListIDs returns the ids stored in hook, if it supports listing.
func ListIDs(ctx context.Context, hook graph.SuspensionHook) ([]graph.ID, error) {
	l, ok := hook.(Lister)
	if !ok {
		return nil, fmt.Errorf("store %T cannot list records", hook)
	}
	return l.IDs(ctx)
}
