package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/roach88/actgraph/internal/graph"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - node_ids allocator seeded past the highest stored node id
const currentSchemaVersion = 1

// Database/sql driver names for SQLiteHook.
const (
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3, cgo
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
)

// SQLiteHook stores records in a SQLite database.
// Uses WAL mode and a single connection.
type SQLiteHook struct {
	mu     sync.Mutex
	db     *sql.DB
	driver string
}

// OpenSQLiteHook creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// driver selects the database/sql driver; empty means DriverMattn.
//
// This function is idempotent - safe to call multiple times.
func OpenSQLiteHook(ctx context.Context, path, driver string) (*SQLiteHook, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if driver == "" {
		driver = DriverMattn
	}
	if driver != DriverMattn && driver != DriverModernc {
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteHook{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (h *SQLiteHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

// Driver returns the database/sql driver name in use.
func (h *SQLiteHook) Driver() string {
	return h.driver
}

func (h *SQLiteHook) getDB() (*sql.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == nil {
		return nil, errors.New("sqlite store is closed")
	}
	return h.db, nil
}

// NewID allocates an id from the AUTOINCREMENT sequence. The allocator row
// is deleted again; only sqlite_sequence keeps the high-water mark.
func (h *SQLiteHook) NewID(ctx context.Context) (graph.ID, error) {
	db, err := h.getDB()
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO node_ids DEFAULT VALUES")
	if err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM node_ids WHERE id = ?", id); err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	return graph.ID(id), nil
}

func (h *SQLiteHook) Retrieve(ctx context.Context, id graph.ID) ([]byte, bool, error) {
	db, err := h.getDB()
	if err != nil {
		return nil, false, err
	}

	var data []byte
	err = db.QueryRowContext(ctx, "SELECT data FROM nodes WHERE id = ?", int64(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("retrieve node %d: %w", id, err)
	}
	return data, true, nil
}

func (h *SQLiteHook) Store(ctx context.Context, id graph.ID, data []byte) error {
	db, err := h.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO nodes (id, data, size)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			size = excluded.size,
			revision = nodes.revision + 1
	`, int64(id), data, len(data))
	if err != nil {
		return fmt.Errorf("store node %d: %w", id, err)
	}
	return nil
}

func (h *SQLiteHook) Remove(ctx context.Context, id graph.ID) error {
	db, err := h.getDB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", int64(id)); err != nil {
		return fmt.Errorf("remove node %d: %w", id, err)
	}
	return nil
}

// IDs implements Lister.
func (h *SQLiteHook) IDs(ctx context.Context) ([]graph.ID, error) {
	db, err := h.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT id FROM nodes ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var ids []graph.ID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list nodes: %w", err)
		}
		ids = append(ids, graph.ID(id))
	}
	return ids, rows.Err()
}

// Revision returns how many times a record has been written, or 0 if absent.
func (h *SQLiteHook) Revision(ctx context.Context, id graph.ID) (int, error) {
	db, err := h.getDB()
	if err != nil {
		return 0, err
	}
	var rev int
	err = db.QueryRowContext(ctx, "SELECT revision FROM nodes WHERE id = ?", int64(id)).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("revision of node %d: %w", id, err)
	}
	return rev, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(ctx, db); err != nil {
			return err
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 seeds the id allocator past the highest stored node id.
// Databases written before node_ids existed allocated ids elsewhere; without
// the seed the allocator would hand those ids out again.
func migrateToV1(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sqlite_sequence (name, seq)
		SELECT 'node_ids', COALESCE(MAX(id), 0) FROM nodes
		WHERE NOT EXISTS (SELECT 1 FROM sqlite_sequence WHERE name = 'node_ids')
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (h *SQLiteHook) verifyPragma(name, expected string) error {
	db, err := h.getDB()
	if err != nil {
		return err
	}
	var value string
	if err := db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
