package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/roach88/actgraph/internal/graph"
)

const postgresSchema = `
CREATE SEQUENCE IF NOT EXISTS actgraph_node_id_seq;

CREATE TABLE IF NOT EXISTS actgraph_nodes (
    id       BIGINT PRIMARY KEY,
    data     BYTEA  NOT NULL,
    size     INTEGER NOT NULL,
    revision INTEGER NOT NULL DEFAULT 1
);
`

// PostgresHook stores records in PostgreSQL so several processes can share
// one model. Ids come from a sequence.
type PostgresHook struct {
	db *sqlx.DB
}

// OpenPostgresHook connects to dsn and creates the tables if needed.
func OpenPostgresHook(ctx context.Context, dsn string) (*PostgresHook, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	h, err := NewPostgresHook(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// NewPostgresHook wraps an existing connection and creates the tables if
// needed.
func NewPostgresHook(ctx context.Context, db *sqlx.DB) (*PostgresHook, error) {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &PostgresHook{db: db}, nil
}

// Close closes the connection pool.
func (h *PostgresHook) Close() error {
	return h.db.Close()
}

func (h *PostgresHook) NewID(ctx context.Context) (graph.ID, error) {
	var id int64
	if err := h.db.GetContext(ctx, &id, "SELECT nextval('actgraph_node_id_seq')"); err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	return graph.ID(id), nil
}

func (h *PostgresHook) Retrieve(ctx context.Context, id graph.ID) ([]byte, bool, error) {
	var data []byte
	err := h.db.GetContext(ctx, &data, "SELECT data FROM actgraph_nodes WHERE id = $1", int64(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("retrieve node %d: %w", id, err)
	}
	return data, true, nil
}

func (h *PostgresHook) Store(ctx context.Context, id graph.ID, data []byte) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO actgraph_nodes (id, data, size)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			size = EXCLUDED.size,
			revision = actgraph_nodes.revision + 1
	`, int64(id), data, len(data))
	if err != nil {
		return fmt.Errorf("store node %d: %w", id, err)
	}
	return nil
}

func (h *PostgresHook) Remove(ctx context.Context, id graph.ID) error {
	if _, err := h.db.ExecContext(ctx, "DELETE FROM actgraph_nodes WHERE id = $1", int64(id)); err != nil {
		return fmt.Errorf("remove node %d: %w", id, err)
	}
	return nil
}

// IDs implements Lister.
func (h *PostgresHook) IDs(ctx context.Context) ([]graph.ID, error) {
	var raw []int64
	if err := h.db.SelectContext(ctx, &raw, "SELECT id FROM actgraph_nodes ORDER BY id ASC"); err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	ids := make([]graph.ID, len(raw))
	for i, id := range raw {
		ids[i] = graph.ID(id)
	}
	return ids, nil
}
