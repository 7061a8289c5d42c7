package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// Watcher reports changes to files the running process depends on, such as
// the whisper model and the config file. It never reloads anything: the
// configuration stays immutable and changes only surface in the logs and
// through onChange.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	onChange func(path string, op fsnotify.Op)
	log      *slog.Logger
	timers   map[string]*time.Timer
	mu       sync.Mutex
	events   atomic.Uint32
	done     chan struct{}
}

// NewWatcher starts watching paths. Parent directories are watched so that
// atomic replacements (rename over the old file) are still seen.
func NewWatcher(paths []string, log *slog.Logger, onChange func(path string, op fsnotify.Op)) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]bool),
		onChange: onChange,
		log:      log,
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		clean := filepath.Clean(p)
		w.files[clean] = true
		dirs[filepath.Dir(clean)] = true
	}

	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("config: failed to watch %s: %w", dir, err)
		}
	}

	go w.watch()

	return w, nil
}

// watch consumes fsnotify events until Close.
func (w *Watcher) watch() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			name := filepath.Clean(event.Name)
			if !w.files[name] || event.Op == fsnotify.Chmod {
				continue
			}

			w.schedule(name, event.Op)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			w.log.Error("Watcher error", "error", err)
		}
	}
}

// schedule debounces bursts of events on the same file.
func (w *Watcher) schedule(name string, op fsnotify.Op) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[name]; ok {
		t.Stop()
	}

	w.timers[name] = time.AfterFunc(watchDebounce, func() {
		count := w.events.Add(1)
		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			w.log.Warn("Watched file removed or replaced", "path", name, "op", op.String(), "count", count)
		} else {
			w.log.Info("Watched file changed", "path", name, "op", op.String(), "count", count)
		}

		if w.onChange != nil {
			w.onChange(name, op)
		}
	})
}

// EventCount returns the number of debounced change notifications so far.
func (w *Watcher) EventCount() uint32 {
	return w.events.Load()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done

	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()

	return err
}
