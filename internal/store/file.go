package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/actgraph/internal/graph"
)

const (
	recordExt   = ".node"
	counterFile = "last_id"
)

// FileHook stores each record as <dir>/<id>.node. The last allocated id
// is persisted in <dir>/last_id.
type FileHook struct {
	dir string

	mu     sync.Mutex
	lastID graph.ID
	closed bool
}

// OpenFileHook opens or creates a record directory.
//
// The id counter resumes from the larger of the persisted counter and the
// highest record id on disk, so ids are not reused even if last_id was lost.
func OpenFileHook(dir string) (*FileHook, error) {
	if dir == "" {
		return nil, errors.New("file store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create %s: %w", dir, err)
	}

	h := &FileHook{dir: dir}

	raw, err := os.ReadFile(filepath.Join(dir, counterFile))
	switch {
	case err == nil:
		n, perr := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
		if perr != nil {
			return nil, fmt.Errorf("file store: parse %s: %w", counterFile, perr)
		}
		h.lastID = graph.ID(n)
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("file store: read %s: %w", counterFile, err)
	}

	ids, err := h.scan()
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 && ids[len(ids)-1] > h.lastID {
		h.lastID = ids[len(ids)-1]
	}
	return h, nil
}

// Dir returns the record directory.
func (h *FileHook) Dir() string {
	return h.dir
}

func (h *FileHook) path(id graph.ID) string {
	return filepath.Join(h.dir, strconv.FormatInt(int64(id), 10)+recordExt)
}

func (h *FileHook) NewID(_ context.Context) (graph.ID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, os.ErrClosed
	}

	next := h.lastID + 1
	if err := writeFileAtomic(filepath.Join(h.dir, counterFile), []byte(strconv.FormatInt(int64(next), 10))); err != nil {
		return 0, fmt.Errorf("file store: persist id counter: %w", err)
	}
	h.lastID = next
	return next, nil
}

func (h *FileHook) Retrieve(_ context.Context, id graph.ID) ([]byte, bool, error) {
	if err := h.checkOpen(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(h.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("file store: read node %d: %w", id, err)
	}
	return data, true, nil
}

func (h *FileHook) Store(_ context.Context, id graph.ID, data []byte) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if err := writeFileAtomic(h.path(id), data); err != nil {
		return fmt.Errorf("file store: write node %d: %w", id, err)
	}
	return nil
}

func (h *FileHook) Remove(_ context.Context, id graph.ID) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	err := os.Remove(h.path(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file store: remove node %d: %w", id, err)
	}
	return nil
}

// IDs implements Lister.
func (h *FileHook) IDs(_ context.Context) ([]graph.ID, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	return h.scan()
}

// Close marks the hook closed. Later calls fail with os.ErrClosed.
func (h *FileHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *FileHook) checkOpen() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return os.ErrClosed
	}
	return nil
}

func (h *FileHook) scan() ([]graph.ID, error) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		return nil, fmt.Errorf("file store: list %s: %w", h.dir, err)
	}
	var ids []graph.ID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSuffix(name, recordExt), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, graph.ID(n))
	}
	slices.Sort(ids)
	return ids, nil
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
