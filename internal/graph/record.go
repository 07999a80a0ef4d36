package graph

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// Encode serializes n as a record: type tag, then fields, optionally
// gzip-compressed.
func Encode(reg *Registry, n Node, compress bool) ([]byte, error) {
	entry, ok := reg.ByName(n.NodeType())
	if !ok {
		return nil, fmt.Errorf("encode %q: %w", n.NodeType(), ErrUnknownTag)
	}

	w := NewWriter()
	w.WriteUint8(entry.Tag)
	if err := n.WriteFields(w); err != nil {
		return nil, fmt.Errorf("encode %s: %w", entry.Name, err)
	}
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", entry.Name, err)
	}

	if !compress {
		return w.Bytes(), nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(w.Bytes()); err != nil {
		return nil, fmt.Errorf("compress %s: %w", entry.Name, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress %s: %w", entry.Name, err)
	}
	return buf.Bytes(), nil
}

// Decode parses a record produced by Encode. The tag is resolved before
// any field is read.
func Decode(reg *Registry, m *Model, data []byte, compress bool) (Node, error) {
	if compress {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
		plain, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
		if err := zr.Close(); err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
		data = plain
	}

	r := NewReader(data)
	tag := r.ReadUint8()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode tag: %w", err)
	}
	entry, ok := reg.ByTag(tag)
	if !ok {
		return nil, fmt.Errorf("decode tag %d: %w", tag, ErrUnknownTag)
	}

	n := entry.New()
	if err := n.ReadFields(r, m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", entry.Name, err)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", entry.Name, err)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("decode %s: %d trailing bytes", entry.Name, r.Remaining())
	}
	return n, nil
}

// PeekType returns the type name of a record without decoding its fields.
func PeekType(reg *Registry, data []byte, compress bool) (string, error) {
	if compress {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("decompress: %w", err)
		}
		defer zr.Close()
		var tag [1]byte
		if _, err := io.ReadFull(zr, tag[:]); err != nil {
			return "", fmt.Errorf("decompress: %w", err)
		}
		data = tag[:]
	}
	if len(data) == 0 {
		return "", fmt.Errorf("decode tag: %w", io.ErrUnexpectedEOF)
	}
	entry, ok := reg.ByTag(data[0])
	if !ok {
		return "", fmt.Errorf("decode tag %d: %w", data[0], ErrUnknownTag)
	}
	return entry.Name, nil
}
