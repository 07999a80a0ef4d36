package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_AllTestdata(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err, path)
		assert.NotEmpty(t, s.Name)
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\ndescription: y\nelement: []\n"), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestStepSpec_IsQueued(t *testing.T) {
	no := false
	assert.True(t, StepSpec{}.IsQueued())
	assert.False(t, StepSpec{Queued: &no}.IsQueued())
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "description: d\n", "name is required"},
		{"no description", "name: n\n", "description is required"},
		{"negative max steps", "name: n\ndescription: d\nmax_steps: -1\n", "max_steps"},
		{"duplicate field", "name: n\ndescription: d\nfields: [{name: x}, {name: x}]\n", "duplicate field"},
		{"unknown op", "name: n\ndescription: d\nfields: [{name: x, op: pow}]\n", "unknown op"},
		{"forward input", "name: n\ndescription: d\nfields: [{name: y, op: scale, inputs: [x]}, {name: x}]\n", "declared earlier"},
		{"mul arity", "name: n\ndescription: d\nfields: [{name: x}, {name: y, op: mul, inputs: [x]}]\n", "takes 2 inputs"},
		{"empty sum", "name: n\ndescription: d\nfields: [{name: y, op: sum}]\n", "at least one input"},
		{"unknown fn", "name: n\ndescription: d\nfields: [{name: x}, {name: y, op: function, fn: cube, inputs: [x]}]\n", "unknown fn"},
		{"bad connect", "name: n\ndescription: d\nfields: [{name: x}]\nconnects: [{from: x, to: z}]\n", "connects[0]"},
		{"unknown element", "name: n\ndescription: d\nsteps: [{name: s, element: e, phase: init}]\n", "unknown element"},
		{"bad phase", "name: n\ndescription: d\nelements: [{name: e}]\nsteps: [{name: s, element: e, phase: later}]\n", "unknown phase"},
		{"two actions", "name: n\ndescription: d\nfields: [{name: x}]\nelements: [{name: e}]\nsteps: [{name: s, element: e, phase: init, actions: [{set: x, add: x}]}]\n", "exactly one of set"},
		{"action field", "name: n\ndescription: d\nelements: [{name: e}]\nsteps: [{name: s, element: e, phase: init, actions: [{add: x}]}]\n", "unknown field"},
		{"trigger step", "name: n\ndescription: d\nfields: [{name: x}]\ntriggers: [{field: x, step: s}]\n", "unknown step"},
		{"write both", "name: n\ndescription: d\nfields: [{name: x}]\nwrites: [{field: x, set: 1, add: 1}]\n", "exactly one of set and add"},
		{"link neuron", "name: n\ndescription: d\nnodes: {neurons: [{label: a}], links: [{from: a, to: b, weight: 1}]}\n", "links[0]"},
		{"suspend mode", "name: n\ndescription: d\nnodes: {neurons: [{label: a}], suspend: later}\n", "suspension mode"},
		{"delete neuron", "name: n\ndescription: d\nnodes: {neurons: [{label: a}], delete: [b]}\n", "delete[0]"},
		{"document neuron", "name: n\ndescription: d\nnodes: {neurons: [{label: a}], documents: [{use: [b]}]}\n", "documents[0]"},
		{"empty document", "name: n\ndescription: d\nnodes: {neurons: [{label: a}], documents: [{use: []}]}\n", "use is empty"},
		{"negative keep", "name: n\ndescription: d\nnodes: {neurons: [{label: a}], keep_documents: -1}\n", "keep_documents"},
		{"nfc duplicate", "name: n\ndescription: d\nnodes: {neurons: [{label: \"\\u00e9\"}, {label: \"e\\u0301\"}]}\n", "duplicate label"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_LabelsAreNFC(t *testing.T) {
	s, err := ParseScenario([]byte("name: n\ndescription: d\n" +
		"nodes: {neurons: [{label: \"\\u00e9\"}], documents: [{use: [\"e\\u0301\"]}], delete: [\"e\\u0301\"]}\n"))
	require.NoError(t, err)

	assert.Equal(t, "\u00e9", s.Nodes.Neurons[0].Label)
	assert.Equal(t, []string{"\u00e9"}, s.Nodes.Documents[0].Use)
	assert.Equal(t, []string{"\u00e9"}, s.Nodes.Delete)
}
