package graph

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// maxStringLen bounds string lengths read from a record.
const maxStringLen = 1 << 20

// Writer encodes node fields big-endian.
//
// Errors are sticky: after the first failure every write is a no-op and
// Err returns that failure.
type Writer struct {
	buf bytes.Buffer
	err error
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) write(v any) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(&w.buf, binary.BigEndian, v)
}

// WriteUint8 writes one byte.
func (w *Writer) WriteUint8(v uint8) { w.write(v) }

// WriteBool writes a bool as one byte.
func (w *Writer) WriteBool(v bool) { w.write(v) }

// WriteInt32 writes a 32-bit integer.
func (w *Writer) WriteInt32(v int32) { w.write(v) }

// WriteInt64 writes a 64-bit integer.
func (w *Writer) WriteInt64(v int64) { w.write(v) }

// WriteID writes a node id.
func (w *Writer) WriteID(id ID) { w.write(int64(id)) }

// WriteFloat64 writes an IEEE 754 double.
func (w *Writer) WriteFloat64(v float64) { w.write(math.Float64bits(v)) }

// WriteString writes the bytes of s, prefixed by their length.
func (w *Writer) WriteString(s string) {
	if len(s) > maxStringLen {
		w.fail(fmt.Errorf("string of %d bytes exceeds limit", len(s)))
		return
	}
	w.write(uint32(len(s)))
	if w.err == nil {
		_, w.err = w.buf.WriteString(s)
	}
}

// WriteOptionalString writes a presence flag and, if non-empty, s.
func (w *Writer) WriteOptionalString(s string) {
	w.WriteBool(s != "")
	if s != "" {
		w.WriteString(s)
	}
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Err returns the first write error.
func (w *Writer) Err() error {
	return w.err
}

// Bytes returns the encoded bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Reader decodes fields written by Writer. Errors are sticky.
type Reader struct {
	r   *bytes.Reader
	err error
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{r: bytes.NewReader(data)}
}

func (r *Reader) read(v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.BigEndian, v); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.err = err
	}
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() uint8 {
	var v uint8
	r.read(&v)
	return v
}

// ReadBool reads a bool.
func (r *Reader) ReadBool() bool {
	var v bool
	r.read(&v)
	return v
}

// ReadInt32 reads a 32-bit integer.
func (r *Reader) ReadInt32() int32 {
	var v int32
	r.read(&v)
	return v
}

// ReadInt64 reads a 64-bit integer.
func (r *Reader) ReadInt64() int64 {
	var v int64
	r.read(&v)
	return v
}

// ReadID reads a node id.
func (r *Reader) ReadID() ID {
	return ID(r.ReadInt64())
}

// ReadFloat64 reads an IEEE 754 double.
func (r *Reader) ReadFloat64() float64 {
	var bits uint64
	r.read(&bits)
	return math.Float64frombits(bits)
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() string {
	var n uint32
	r.read(&n)
	if r.err != nil {
		return ""
	}
	if n > maxStringLen || int64(n) > int64(r.r.Len()) {
		r.err = fmt.Errorf("string length %d out of range", n)
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		r.err = err
		return ""
	}
	return string(b)
}

// ReadOptionalString reads a value written by WriteOptionalString.
func (r *Reader) ReadOptionalString() string {
	if !r.ReadBool() {
		return ""
	}
	return r.ReadString()
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return r.r.Len()
}

// Err returns the first read error.
func (r *Reader) Err() error {
	return r.err
}
