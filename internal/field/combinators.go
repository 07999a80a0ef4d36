package field

// Function returns a field that tracks f applied to in.
func Function(label string, in Output, f func(float64) float64) *Field {
	out := New(label, f(in.CurrentValue()))
	in.AddListener(label, func(u Update) {
		out.SetAndTriggerUpdate(f(u.New))
	})
	return out
}

// Scale returns a field that tracks k * in.
func Scale(label string, in Output, k float64) *Field {
	return Function(label, in, func(v float64) float64 {
		return k * v
	})
}

// Multiplication returns a field that tracks a * b.
//
// Each side reads the other's committed value, so an update on a is
// combined with b as it stands at that moment.
func Multiplication(label string, a, b Output) *Field {
	out := New(label, a.CurrentValue()*b.CurrentValue())
	a.AddListener(label, func(u Update) {
		out.SetAndTriggerUpdate(u.New * b.CurrentValue())
	})
	b.AddListener(label, func(u Update) {
		out.SetAndTriggerUpdate(a.CurrentValue() * u.New)
	})
	return out
}

// Sum returns a field that tracks the sum of its inputs.
func Sum(label string, ins ...Output) *Field {
	var total float64
	for _, in := range ins {
		total += in.CurrentValue()
	}
	out := New(label, total)
	for _, in := range ins {
		in.AddListener(label, func(u Update) {
			out.AddAndTriggerUpdate(u.Delta())
		})
	}
	return out
}

// Threshold returns a boolean field (0 or 1) that is 1 while in is above
// threshold. It is edge-triggered: its listeners fire only when the input
// crosses the threshold, not on every update past it.
func Threshold(label string, in Output, threshold float64) *Field {
	out := New(label, crossed(in.CurrentValue(), threshold))
	in.AddListener(label, func(u Update) {
		out.SetAndTriggerUpdate(crossed(u.New, threshold))
	})
	return out
}

// Connect pushes every update of from into to as a delta.
func Connect(label string, from Output, to Input) {
	from.AddListener(label, func(u Update) {
		to.AddAndTriggerUpdate(u.Delta())
	})
}

// IsTrue reports whether a boolean field is set.
func IsTrue(f Output) bool {
	return f.CurrentValue() > 0.5
}

func crossed(v, threshold float64) float64 {
	if v > threshold {
		return 1
	}
	return 0
}
