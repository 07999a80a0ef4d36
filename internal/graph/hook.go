package graph

import "context"

// SuspensionHook is the backing store for suspended payloads.
//
// Retrieve reports absence with found == false and a nil error; err is
// reserved for I/O failures. Remove of an absent id is not an error.
type SuspensionHook interface {
	// NewID allocates a fresh id that has never been returned before.
	NewID(ctx context.Context) (ID, error)
	Retrieve(ctx context.Context, id ID) (data []byte, found bool, err error)
	Store(ctx context.Context, id ID, data []byte) error
	Remove(ctx context.Context, id ID) error
}
