package field

import (
	"fmt"
	"math"
)

// Tolerance is the smallest update magnitude that propagates.
const Tolerance = 1e-7

// Update is what a listener observes when a field commits.
type Update struct {
	Label string
	Old   float64
	New   float64
}

// Delta returns New - Old.
func (u Update) Delta() float64 {
	return u.New - u.Old
}

// Listener is called once per committed update.
type Listener func(Update)

// Output is the readable side of a field.
type Output interface {
	Label() string
	CurrentValue() float64
	NewValue() float64
	Update() float64
	UpdateAvailable() bool
	AddListener(label string, fn Listener)
}

// Input is the writable side of a field.
type Input interface {
	AddAndTriggerUpdate(delta float64) bool
	SetAndTriggerUpdate(value float64) bool
}

type listenerEntry struct {
	label string
	fn    Listener
}

// Field is a reactive scalar with a committed and a pending value.
type Field struct {
	owner     fmt.Stringer
	label     string
	current   float64
	next      float64
	listeners []listenerEntry
}

// New creates a field with the given label and initial value.
// The initial value is committed; no update is pending.
func New(label string, initial float64) *Field {
	checkFinite(label, initial)
	return &Field{
		label:   label,
		current: initial,
		next:    initial,
	}
}

// NewOwned creates a field that reports its owner in diagnostics.
func NewOwned(owner fmt.Stringer, label string, initial float64) *Field {
	f := New(label, initial)
	f.owner = owner
	return f
}

// Label returns the field's label.
func (f *Field) Label() string {
	return f.label
}

// Owner returns the owning element, or nil.
func (f *Field) Owner() fmt.Stringer {
	return f.owner
}

// CurrentValue returns the committed value.
func (f *Field) CurrentValue() float64 {
	return f.current
}

// NewValue returns the pending value.
func (f *Field) NewValue() float64 {
	return f.next
}

// Update returns the pending change, new - current.
func (f *Field) Update() float64 {
	return f.next - f.current
}

// UpdateAvailable reports whether the pending change exceeds Tolerance.
func (f *Field) UpdateAvailable() bool {
	return math.Abs(f.Update()) > Tolerance
}

// Set stages v as the pending value without notifying listeners.
func (f *Field) Set(v float64) {
	checkFinite(f.label, v)
	f.next = v
}

// Add stages a change to the pending value without notifying listeners.
func (f *Field) Add(delta float64) {
	v := f.next + delta
	checkFinite(f.label, v)
	f.next = v
}

// AddListener registers fn to be called on every committed update.
// Listeners run in registration order.
func (f *Field) AddListener(label string, fn Listener) {
	f.listeners = append(f.listeners, listenerEntry{label: label, fn: fn})
}

// Listeners returns the number of registered listeners.
func (f *Field) Listeners() int {
	return len(f.listeners)
}

// TriggerUpdate commits the pending value and notifies listeners.
//
// If the pending change does not exceed Tolerance nothing happens and the
// change stays pending. Returns true if the update propagated.
func (f *Field) TriggerUpdate() bool {
	if !f.UpdateAvailable() {
		return false
	}

	u := Update{Label: f.label, Old: f.current, New: f.next}
	f.current = f.next

	for _, l := range f.listeners {
		l.fn(u)
	}
	return true
}

// AddAndTriggerUpdate adds delta to the pending value and triggers.
func (f *Field) AddAndTriggerUpdate(delta float64) bool {
	f.Add(delta)
	return f.TriggerUpdate()
}

// SetAndTriggerUpdate stages v and triggers.
func (f *Field) SetAndTriggerUpdate(v float64) bool {
	f.Set(v)
	return f.TriggerUpdate()
}

// String implements fmt.Stringer.
func (f *Field) String() string {
	if f.owner != nil {
		return fmt.Sprintf("%s:%s=%g", f.owner, f.label, f.current)
	}
	return fmt.Sprintf("%s=%g", f.label, f.current)
}
