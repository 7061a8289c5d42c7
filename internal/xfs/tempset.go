package xfs

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// TempSet hands out unique temp file paths for a single request and
// removes all of them on Cleanup.
type TempSet struct {
	dir   string
	log   *slog.Logger
	paths []string
	mu    sync.Mutex
}

// NewTempSet creates a TempSet rooted at dir. An empty dir means os.TempDir().
func NewTempSet(dir string, log *slog.Logger) *TempSet {
	if dir == "" {
		dir = os.TempDir()
	}
	if log == nil {
		log = slog.Default()
	}

	return &TempSet{dir: dir, log: log}
}

// New registers and returns a fresh "<uuid>.<ext>" path. The file itself is
// not created.
func (t *TempSet) New(ext string) string {
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	path := filepath.Join(t.dir, name)

	t.mu.Lock()
	t.paths = append(t.paths, path)
	t.mu.Unlock()

	return path
}

// Paths returns the registered paths in creation order.
func (t *TempSet) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]string(nil), t.paths...)
}

// Remove deletes one path ahead of Cleanup. A missing file is not an error;
// other failures are logged.
func (t *TempSet) Remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		t.log.Warn("Failed to remove temp file", "path", path, "error", err)
	}
}

// Cleanup removes every registered path. Missing files are skipped silently,
// other failures are logged and never returned.
func (t *TempSet) Cleanup() {
	for _, p := range t.Paths() {
		t.Remove(p)
	}
}
