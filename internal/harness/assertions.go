package harness

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// fieldTolerance is the allowed difference between an expected and an
// actual field value.
const fieldTolerance = 1e-6

// checkExpect compares a result against the expectations and returns one
// message per failed check.
func checkExpect(e *Expect, r *Result) []string {
	var errs []string

	if e.Order != nil && !slices.Equal(e.Order, r.Order) {
		errs = append(errs, fmt.Sprintf("order: expected %v, got %v", e.Order, r.Order))
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		want := e.Fields[name]
		got, ok := r.Fields[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("field %s: not declared", name))
			continue
		}
		if math.Abs(got-want) > fieldTolerance {
			errs = append(errs, fmt.Sprintf("field %s: expected %s, got %s", name, formatFloat(want), formatFloat(got)))
		}
	}

	if e.Processed != nil && *e.Processed != r.Processed {
		errs = append(errs, fmt.Sprintf("processed: expected %d, got %d", *e.Processed, r.Processed))
	}
	if e.Pending != nil && *e.Pending != r.Pending {
		errs = append(errs, fmt.Sprintf("pending: expected %d, got %d", *e.Pending, r.Pending))
	}
	if e.Stopped != r.Stopped {
		errs = append(errs, fmt.Sprintf("stopped: expected %q, got %q", e.Stopped, r.Stopped))
	}
	if e.Deleted != nil && !slices.Equal(e.Deleted, r.Deleted) {
		errs = append(errs, fmt.Sprintf("deleted: expected %v, got %v", e.Deleted, r.Deleted))
	}
	if e.Kept != nil && !slices.Equal(e.Kept, r.Kept) {
		errs = append(errs, fmt.Sprintf("kept: expected %v, got %v", e.Kept, r.Kept))
	}
	return errs
}
