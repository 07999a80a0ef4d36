package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blob is a minimal node type for registry tests.
type blob struct {
	Payload string
}

func (b *blob) NodeType() string { return "blob" }

func (b *blob) WriteFields(w *Writer) error {
	w.WriteString(b.Payload)
	return nil
}

func (b *blob) ReadFields(r *Reader, _ *Model) error {
	b.Payload = r.ReadString()
	return nil
}

func blobRegistry() *Registry {
	return MustRegistry(
		TypeEntry{Tag: NeuronTag, Name: NeuronType, New: func() Node { return NewNeuron("") }},
		TypeEntry{Tag: 7, Name: "blob", New: func() Node { return &blob{} }},
	)
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	mk := func() Node { return &blob{} }

	_, err := NewRegistry(TypeEntry{Tag: 1, Name: "a", New: mk}, TypeEntry{Tag: 1, Name: "b", New: mk})
	assert.ErrorContains(t, err, "tag 1")

	_, err = NewRegistry(TypeEntry{Tag: 1, Name: "a", New: mk}, TypeEntry{Tag: 2, Name: "a", New: mk})
	assert.ErrorContains(t, err, "registered twice")

	_, err = NewRegistry(TypeEntry{Tag: 3, Name: "c"})
	assert.ErrorContains(t, err, "incomplete")

	assert.Panics(t, func() {
		MustRegistry(TypeEntry{Tag: 1, Name: "a", New: mk}, TypeEntry{Tag: 1, Name: "b", New: mk})
	})
}

func TestRegistry_Lookup(t *testing.T) {
	reg := blobRegistry()

	e, ok := reg.ByTag(7)
	require.True(t, ok)
	assert.Equal(t, "blob", e.Name)

	e, ok = reg.ByName(NeuronType)
	require.True(t, ok)
	assert.Equal(t, NeuronTag, e.Tag)

	_, ok = reg.ByTag(200)
	assert.False(t, ok)
	assert.Equal(t, []string{NeuronType, "blob"}, reg.Names())
}

func TestEncodeDecode(t *testing.T) {
	reg := blobRegistry()

	for _, compress := range []bool{false, true} {
		data, err := Encode(reg, &blob{Payload: "hello"}, compress)
		require.NoError(t, err)

		if !compress {
			assert.Equal(t, byte(7), data[0], "record starts with the type tag")
		} else {
			assert.Equal(t, []byte{0x1f, 0x8b}, data[:2], "gzip magic")
		}

		n, err := Decode(reg, nil, data, compress)
		require.NoError(t, err)
		assert.Equal(t, &blob{Payload: "hello"}, n)

		name, err := PeekType(reg, data, compress)
		require.NoError(t, err)
		assert.Equal(t, "blob", name)
	}
}

func TestDecode_UnknownTag(t *testing.T) {
	_, err := Decode(blobRegistry(), nil, []byte{99, 0, 0}, false)
	assert.True(t, errors.Is(err, ErrUnknownTag))

	_, err = PeekType(blobRegistry(), []byte{99}, false)
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestEncode_UnregisteredType(t *testing.T) {
	_, err := Encode(DefaultRegistry(), &blob{}, false)
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestDecode_TrailingBytes(t *testing.T) {
	reg := blobRegistry()
	data, err := Encode(reg, &blob{Payload: "x"}, false)
	require.NoError(t, err)

	_, err = Decode(reg, nil, append(data, 0xFF), false)
	assert.ErrorContains(t, err, "trailing")
}

func TestDecode_CompressionMismatch(t *testing.T) {
	reg := blobRegistry()
	data, err := Encode(reg, &blob{Payload: "x"}, false)
	require.NoError(t, err)

	_, err = Decode(reg, nil, data, true)
	assert.ErrorContains(t, err, "decompress")
}
