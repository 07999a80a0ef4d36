package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation held.
	Pass bool `json:"pass"`

	// Trace is the deterministic execution trace, one event per line.
	Trace []string `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Order lists processed step names in drain order.
	Order []string `json:"order"`

	// Fields holds the committed value of every field after the drain.
	Fields map[string]float64 `json:"fields"`

	// Processed and Pending count steps after the drain.
	Processed int `json:"processed"`
	Pending   int `json:"pending"`

	// Stopped is the runtime error code if the drain stopped early.
	Stopped string `json:"stopped,omitempty"`

	// Deleted lists neurons whose provider reports Deleted.
	Deleted []string `json:"deleted,omitempty"`

	// Kept lists neurons still active after suspension.
	Kept []string `json:"kept,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []string{},
		Errors: []string{},
		Order:  []string{},
		Fields: make(map[string]float64),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) trace(line string) {
	r.Trace = append(r.Trace, line)
}
