package engine

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator returns the id of a new Thought.
type IDGenerator func() string

// UUIDv7 returns a time-ordered UUID, so Thought ids sort by creation in
// logs and traces. It is the default generator.
func UUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Fixed returns a generator that always yields id. Scenario runs use it so
// traces do not depend on the wall clock.
func Fixed(id string) IDGenerator {
	return func() string { return id }
}

// Sequential returns a generator yielding prefix-1, prefix-2, ...
// It is safe for concurrent use.
func Sequential(prefix string) IDGenerator {
	var n atomic.Int64
	return func() string {
		return prefix + "-" + strconv.FormatInt(n.Add(1), 10)
	}
}
