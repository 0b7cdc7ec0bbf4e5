// pattern: Imperative Shell

package editor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"crafthub/internal/config"
	"crafthub/internal/logging"
)

const defaultSettle = 500 * time.Millisecond

// Watcher reports when an editor executable appears in or disappears from
// one of the candidates' fallback directories. Bursts of events (package
// managers touch many files) are coalesced into a single callback.
type Watcher struct {
	dirs     []string
	names    map[string]bool
	onChange func()
	settle   time.Duration
	logger   *logging.ScopedLogger
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for the fallback directories of candidates.
// onChange runs on the watcher goroutine.
func NewWatcher(candidates []Candidate, onChange func(), logger *logging.ScopedLogger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create directory watcher: %w", err)
	}

	seenDir := make(map[string]bool)
	w := &Watcher{
		names:    make(map[string]bool),
		onChange: onChange,
		settle:   defaultSettle,
		logger:   logger,
		watcher:  fw,
	}
	for _, c := range candidates {
		for _, exe := range c.Executables {
			w.names[exe] = true
		}
		for _, dir := range c.FallbackDirs {
			dir = filepath.Clean(config.ExpandHome(dir))
			if !seenDir[dir] {
				seenDir[dir] = true
				w.dirs = append(w.dirs, dir)
			}
		}
	}
	return w, nil
}

// Dirs returns the directories the watcher will observe.
func (w *Watcher) Dirs() []string {
	return append([]string(nil), w.dirs...)
}

// Start watches until ctx is cancelled. Directories that do not exist are
// skipped; if none can be watched Start returns immediately with nil.
func (w *Watcher) Start(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	watched := 0
	for _, dir := range w.dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("cannot watch editor directory", "dir", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		w.logger.Debug("no editor directories to watch")
		return nil
	}
	w.logger.Debug("watching editor directories", "count", watched)

	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.names[filepath.Base(event.Name)] {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Debug("editor executable changed", "path", event.Name, "op", event.Op.String())
				timer.Reset(w.settle)
			}

		case <-timer.C:
			if w.onChange != nil {
				w.onChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("editor directory watch error", "error", err)
		}
	}
}
