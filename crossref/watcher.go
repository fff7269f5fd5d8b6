package crossref

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-runs validation whenever the watched directories change.
// Changes are debounced so a burst of writes triggers one run.
type Watcher struct {
	dirs     []string
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	pendingMu sync.Mutex
	pending   map[string]struct{}
}

// NewWatcher creates a watcher over the given directories. A zero debounce
// defaults to 250ms.
func NewWatcher(dirs []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce == 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{
		dirs:     dirs,
		debounce: debounce,
		logger:   logger,
		watcher:  fsw,
		pending:  make(map[string]struct{}),
	}, nil
}

// Run watches until ctx is cancelled, invoking fn after each debounced batch
// of changes. fn runs on the watcher goroutine; validation is quick enough
// that serializing runs is the desired behavior.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context)) error {
	defer w.watcher.Close()

	for _, dir := range w.dirs {
		if err := w.addWatchesRecursive(dir); err != nil {
			return err
		}
	}

	w.logger.Info("Watching for changes",
		"dirs", strings.Join(w.dirs, ","),
		"debounce", w.debounce)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			if w.takePending() {
				fn(ctx)
			}
		}
	}
}

// addWatchesRecursive watches dir and every non-hidden subdirectory.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if base := filepath.Base(path); strings.HasPrefix(base, ".") && path != root {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

// handleEvent accumulates a change; new directories gain watches so files
// created under them are seen.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	w.pendingMu.Lock()
	w.pending[event.Name] = struct{}{}
	w.pendingMu.Unlock()

	w.logger.Debug("Change detected", "path", event.Name, "op", event.Op.String())
}

// takePending reports whether changes accumulated since the last tick, and
// clears them.
func (w *Watcher) takePending() bool {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if len(w.pending) == 0 {
		return false
	}
	w.pending = make(map[string]struct{})
	return true
}
