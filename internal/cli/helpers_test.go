package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const linearScenario = `name: linear
description: "y = 2x queues one counting step"
fields:
  - name: x
  - name: y
    op: scale
    inputs: [x]
    k: 2
  - name: total
elements:
  - name: n
    fired: 1
steps:
  - name: count
    element: n
    phase: counting
    queued: false
    actions:
      - add: total
        value: 1
triggers:
  - field: y
    step: count
writes:
  - field: x
    set: 3
expect:
  fields:
    total: 1
`

const linearTrace = `scenario linear
write x set 3
update x 0 -> 3
update y 0 -> 6
enqueue count n seq=1
step 1 counting 1 count n
update total 0 -> 1
drained processed=1 pending=0
field x = 3
field y = 6
field total = 1
`

const nodesScenario = `name: nodes
description: "two neurons saved into the store"
nodes:
  neurons:
    - label: a
      bias: 0.5
    - label: b
  links:
    - from: a
      to: b
      weight: 2
  suspend: save
`

// executeRoot runs the root command with args and returns stdout.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
