package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/actgraph/internal/engine"
)

// Recorder is an engine.EventListener that records every processed step
// as "<seq> <phase> <fired> <name> <element>".
type Recorder struct {
	mu    sync.Mutex
	lines []string
	names []string
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// BeforeProcessed implements engine.EventListener.
func (r *Recorder) BeforeProcessed(s engine.Step, key engine.QueueKey) {}

// AfterProcessed implements engine.EventListener.
func (r *Recorder) AfterProcessed(s engine.Step, key engine.QueueKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf("%d %s %s %s %s",
		key.Seq, key.Phase, key.Fired, s.Name(), s.Element()))
	r.names = append(r.names, s.Name())
}

// Lines returns the recorded lines in processing order.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Names returns the names of the processed steps in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

// Reset clears the recording.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.lines = nil
	r.names = nil
	r.mu.Unlock()
}
