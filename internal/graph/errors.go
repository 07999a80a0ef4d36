package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrDeleted is returned by Provider.Get when the backing record no
	// longer exists. The provider stays deleted.
	ErrDeleted = errors.New("graph: node deleted")

	// ErrStaleHandle is returned by Model.Resolve for a handle whose slot
	// has been retired.
	ErrStaleHandle = errors.New("graph: stale handle")

	// ErrNoHook is returned when an operation needs a SuspensionHook and
	// the model has none.
	ErrNoHook = errors.New("graph: no suspension hook configured")

	// ErrUnknownTag is returned when a record's type tag is not registered.
	ErrUnknownTag = errors.New("graph: unknown type tag")
)

// IsDeleted reports whether err means the node's record is gone.
func IsDeleted(err error) bool {
	return errors.Is(err, ErrDeleted)
}

// CodecError describes a record that could not be encoded or decoded.
type CodecError struct {
	ID  ID
	Op  string
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("graph: %s node %d: %v", e.Op, e.ID, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// IsCodecError reports whether err is a *CodecError.
func IsCodecError(err error) bool {
	var ce *CodecError
	return errors.As(err, &ce)
}
