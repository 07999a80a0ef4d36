package engine

import (
	"cmp"
	"fmt"
	"math"
	"strings"
)

// Phase groups steps into coarse stages that run strictly in sequence.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseBindingSignal
	PhaseLinking
	PhaseAddInput
	PhaseTemplate
	PhaseFinalLinking
	PhaseCounting
	PhaseGradients
	PhaseTraining
)

var phaseNames = [...]string{
	PhaseInit:          "init",
	PhaseBindingSignal: "binding-signal",
	PhaseLinking:       "linking",
	PhaseAddInput:      "add-input",
	PhaseTemplate:      "template",
	PhaseFinalLinking:  "final-linking",
	PhaseCounting:      "counting",
	PhaseGradients:     "gradients",
	PhaseTraining:      "training",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ParsePhase parses a phase name as printed by Phase.String.
// Underscores are accepted in place of hyphens.
func ParsePhase(s string) (Phase, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// Fired is the logical time at which a graph element became active.
type Fired int64

// NotFired is the firing time of an element that has not fired.
// It sorts after every real firing time.
const NotFired Fired = math.MaxInt64

func (f Fired) String() string {
	if f == NotFired {
		return "not-fired"
	}
	return fmt.Sprintf("%d", int64(f))
}

// QueueKey is the total order of pending steps.
type QueueKey struct {
	Phase Phase
	Fired Fired
	Seq   int64
}

// Compare returns -1, 0 or +1 ordering k before, equal to, or after o.
func (k QueueKey) Compare(o QueueKey) int {
	if c := cmp.Compare(k.Phase, o.Phase); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Fired, o.Fired); c != 0 {
		return c
	}
	return cmp.Compare(k.Seq, o.Seq)
}

// Less reports whether k orders before o.
func (k QueueKey) Less(o QueueKey) bool {
	return k.Compare(o) < 0
}

func (k QueueKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Phase, k.Fired, k.Seq)
}
