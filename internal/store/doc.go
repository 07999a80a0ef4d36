// Package store provides suspension hooks for graph.Model.
//
// Backends:
//   - memory: map-backed, for tests and models that never outlive the process
//   - file: one file per node in a directory
//   - sqlite: single database file, mattn/go-sqlite3 or the cgo-free modernc driver
//   - postgres: shared store for several processes
//
// Every backend allocates ids that are never reused, even after Remove, and
// reports a missing record as found == false rather than an error.
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
