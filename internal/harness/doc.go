// Package harness runs YAML scenarios against the field graph, the step
// scheduler and the suspension cache, and records a deterministic trace.
//
// # Scenario Format
//
//	name: linear
//	description: "y = 2x queues one counting step"
//	fields:
//	  - name: x
//	    value: 0
//	  - name: y
//	    op: scale          # scale, function, mul, sum, threshold
//	    inputs: [x]
//	    k: 2
//	elements:
//	  - name: n
//	    fired: 1           # omit for not-fired
//	steps:
//	  - name: count
//	    element: n
//	    phase: counting
//	    queued: false      # template only, queued by a trigger or action
//	    actions:
//	      - add: total
//	        value: 1
//	triggers:
//	  - field: y
//	    step: count
//	writes:
//	  - field: x
//	    set: 3
//	nodes:
//	  neurons: [{label: a, bias: 1}, {label: b}]
//	  links: [{from: a, to: b, weight: 0.5}]
//	  suspend: save
//	  delete: [b]
//	expect:
//	  order: [count]
//	  fields: {y: 6}
//
// # Execution
//
// Fields are built in order, then elements, then triggers. Queued steps are
// added in declaration order, writes are applied, and one Thought drains
// the queue. The node section runs after the drain against a graph.Model.
//
// The session id is fixed and the trace has no wall-clock values, so the
// same scenario always produces the same trace. Traces are compared with
// golden files under testdata/golden; regenerate them with:
//
//	go test ./internal/harness -update
package harness
