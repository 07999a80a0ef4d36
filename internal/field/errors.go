package field

import (
	"fmt"
	"math"
)

// InvariantError is the panic value raised when a field is driven into an
// invalid state. It indicates a programming error, never a data condition.
type InvariantError struct {
	Label   string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Label, e.Message)
}

// checkFinite panics if v is NaN or infinite.
func checkFinite(label string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		panic(&InvariantError{
			Label:   label,
			Message: fmt.Sprintf("non-finite value %v", v),
		})
	}
}
