package graph

import (
	"fmt"
	"strings"
)

// ID identifies a node within a model. IDs are never reused.
type ID int64

// Handle is a generation-checked reference to a provider slot.
// A handle taken before the node was deleted no longer resolves.
type Handle struct {
	ID  ID
	Gen uint32
}

func (h Handle) String() string {
	return fmt.Sprintf("%d#%d", h.ID, h.Gen)
}

// SuspensionMode selects what Suspend does with unsaved changes.
type SuspensionMode int

const (
	// Save writes the payload to the hook first if it was modified.
	Save SuspensionMode = iota
	// Discard drops the payload and any unsaved changes.
	Discard
)

func (m SuspensionMode) String() string {
	switch m {
	case Save:
		return "save"
	case Discard:
		return "discard"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseSuspensionMode parses "save" or "discard", ignoring case.
func ParseSuspensionMode(s string) (SuspensionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "save", "":
		return Save, nil
	case "discard":
		return Discard, nil
	default:
		return Save, fmt.Errorf("unknown suspension mode %q", s)
	}
}
