// Package watch monitors deck sources and triggers debounced rebuilds.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// BuildFunc recompiles the deck after a source change.
type BuildFunc func(ctx context.Context) error

// Watcher monitors deck input files and triggers rebuilds on changes.
type Watcher struct {
	files        map[string]bool // absolute file paths to react to
	dirs         map[string]bool // directories whose yaml files matter
	build        BuildFunc
	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	stopChan     chan struct{}
	rebuildChan  chan struct{}
	debounceTime time.Duration
}

// New creates a watcher over the given paths. Directories are watched for
// template file changes, plain files for writes to the file itself.
func New(build BuildFunc, paths ...string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		files:        map[string]bool{},
		dirs:         map[string]bool{},
		build:        build,
		watcher:      fsWatcher,
		stopChan:     make(chan struct{}),
		rebuildChan:  make(chan struct{}, 1),
		debounceTime: 500 * time.Millisecond,
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("failed to resolve path %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if info.IsDir() {
			w.dirs[abs] = true
		} else {
			w.files[abs] = true
		}
	}
	return w, nil
}

// Start begins monitoring and rebuilding until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Watch parent directories rather than the files themselves; editors
	// replace files on save and a direct watch goes stale.
	watched := map[string]bool{}
	for f := range w.files {
		watched[filepath.Dir(f)] = true
	}
	for d := range w.dirs {
		watched[d] = true
	}
	for dir := range watched {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	slog.Info("Starting deck watcher", "directories", len(watched))

	go w.watchLoop(ctx)
	go w.rebuildLoop(ctx)

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	slog.Info("Stopping deck watcher")
	close(w.stopChan)
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				slog.Debug("Source change detected", "file", event.Name, "op", event.Op.String())
				w.triggerRebuild()
			} else if event.Op&fsnotify.Remove != 0 {
				slog.Warn("Watched file removed", "file", event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Deck watcher error", "error", err)
		}
	}
}

// relevant reports whether a change to path should trigger a rebuild.
func (w *Watcher) relevant(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if w.files[abs] {
		return true
	}
	dir := filepath.Dir(abs)
	if !w.dirs[dir] {
		return false
	}
	ext := filepath.Ext(abs)
	return ext == ".yaml" || ext == ".yml"
}

// rebuildLoop handles debounced rebuilds.
func (w *Watcher) rebuildLoop(ctx context.Context) {
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.rebuildChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounceTime, func() {
				if err := w.build(ctx); err != nil {
					slog.Error("Rebuild failed", "error", err)
				}
			})
		}
	}
}

func (w *Watcher) triggerRebuild() {
	select {
	case w.rebuildChan <- struct{}{}:
	default:
		// Rebuild already pending
	}
}
