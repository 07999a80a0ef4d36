// Package field implements the reactive field graph.
//
// A Field is a named scalar with a committed ("current") value and a pending
// ("new") value. Writers stage changes into the pending value; TriggerUpdate
// commits them and notifies every registered listener exactly once with the
// (old, new) pair.
//
// COMMIT BEFORE NOTIFY:
// The current value is committed before any listener runs. A listener that
// reads the field during propagation always observes the new value, and a
// session that stops between two updates never sees a half-applied commit.
//
// TOLERANCE:
// Updates whose magnitude is at or below Tolerance are not propagated. This
// is what makes propagation quiesce. Suppressed updates stay pending and
// accumulate, so a run of tiny corrections is released once their sum
// crosses the tolerance.
//
// Derived fields (Function, Scale, Multiplication, Sum, Threshold) are plain
// Fields whose pending value is driven by listeners on their inputs. They
// cache their own current value and re-publish their own delta.
//
// Propagation is synchronous and single-threaded. Fields are not safe for
// concurrent use; they belong to one processing session at a time.
package field
