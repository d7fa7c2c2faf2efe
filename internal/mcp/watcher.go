package mcp

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reindexer re-runs the indexing pipeline over one source tree.
type Reindexer interface {
	Reindex(ctx context.Context, rootPath string) error
}

// FileWatcher watches a codebase root recursively and triggers an
// incremental re-index after changes settle. Events are debounced: a burst
// of saves produces a single run, and the change-detection layer keeps
// per-file work proportional to what actually changed.
type FileWatcher struct {
	reindexer    Reindexer
	rootPath     string
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
	started      atomic.Bool
	stopOnce     sync.Once
}

// NewFileWatcher creates a watcher over rootPath and all its
// subdirectories. Hidden directories and common dependency trees are not
// watched.
func NewFileWatcher(reindexer Reindexer, rootPath string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skipWatchDir(d.Name()) && path != rootPath {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		watcher.Close()
		return nil, err
	}

	return &FileWatcher{
		reindexer:    reindexer,
		rootPath:     rootPath,
		watcher:      watcher,
		debounceTime: 500 * time.Millisecond,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins watching for file changes.
func (fw *FileWatcher) Start(ctx context.Context) {
	fw.started.Store(true)
	go fw.watch(ctx)
}

// Stop stops the file watcher and waits for the event loop to exit.
func (fw *FileWatcher) Stop() {
	fw.stopOnce.Do(func() {
		close(fw.stopCh)
		// The event loop owns doneCh; if Start never ran there is
		// nothing to wait for.
		if fw.started.Load() {
			<-fw.doneCh
		}
		fw.watcher.Close()
	})
}

// watch is the main event loop with debouncing logic.
func (fw *FileWatcher) watch(ctx context.Context) {
	defer close(fw.doneCh)

	var debounceTimer *time.Timer
	reindexCh := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case <-fw.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories must be added to the watch set.
			if event.Op&fsnotify.Create != 0 {
				fw.maybeWatchDir(event.Name)
			}
			if debounceTimer != nil {
				if !debounceTimer.Stop() {
					select {
					case <-debounceTimer.C:
					default:
					}
				}
			}
			debounceTimer = time.AfterFunc(fw.debounceTime, func() {
				select {
				case reindexCh <- struct{}{}:
				default:
				}
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: file watcher error: %v", err)

		case <-reindexCh:
			if err := fw.reindexer.Reindex(ctx, fw.rootPath); err != nil {
				// Keep serving from the previous index state.
				log.Printf("Warning: incremental re-index failed: %v", err)
			}
		}
	}
}

func (fw *FileWatcher) maybeWatchDir(path string) {
	if skipWatchDir(filepath.Base(path)) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := fw.watcher.Add(path); err != nil {
		log.Printf("Warning: cannot watch %s: %v", path, err)
	}
}

func skipWatchDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "node_modules", "vendor", "dist", "build", "target", "__pycache__":
		return true
	}
	return false
}
