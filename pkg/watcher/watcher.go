// Package watcher turns filesystem events into debounced file callbacks.
// It watches directories rather than single files, so inputs dropped into a
// watched directory after startup are picked up too.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DirWatcher watches directories and triggers a callback for files that
// pass the filter, debouncing rapid successive writes to the same file.
type DirWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration
	filter   func(string) bool
	onChange func(string)

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// New creates a watcher. filter decides which paths are interesting; a nil
// filter accepts everything. onChange runs after a file has been quiet for
// the debounce interval.
func New(debounce time.Duration, logger *zap.Logger, filter func(string) bool, onChange func(string)) (*DirWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}

	return &DirWatcher{
		watcher:  fsWatcher,
		logger:   logger,
		debounce: debounce,
		filter:   filter,
		onChange: onChange,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Add registers a directory to watch.
func (w *DirWatcher) Add(dir string) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", dir, err)
	}
	if err := w.watcher.Add(absPath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", absPath, err)
	}
	return nil
}

// Run processes events until ctx is cancelled or the watcher is closed.
func (w *DirWatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			// Only trigger on write or create events
			if event.Op&fsnotify.Write != fsnotify.Write && event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !w.filter(event.Name) {
				continue
			}
			w.handleFileChange(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// handleFileChange handles a file change event with debouncing
func (w *DirWatcher) handleFileChange(filePath string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	// Cancel existing timer if any
	if timer, exists := w.timers[filePath]; exists {
		timer.Stop()
	}

	// Create a new debounced timer
	w.timers[filePath] = time.AfterFunc(w.debounce, func() {
		w.onChange(filePath)
	})
}

// Close stops the watcher and cancels pending debounce timers.
func (w *DirWatcher) Close() error {
	w.mu.Lock()
	w.closed = true
	for _, timer := range w.timers {
		timer.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.mu.Unlock()

	return w.watcher.Close()
}
