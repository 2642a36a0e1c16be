// Package watcher implements recursive file system watching for watch mode.
package watcher

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/fab/internal/core/ports"
)

var _ ports.Watcher = (*Watcher)(nil)

// skipDirectories are directory names never watched. The output directory is
// added per instance so artifact writes do not feed back into the loop.
var skipDirectories = map[string]bool{
	".git":         true,
	".jj":          true,
	"node_modules": true,
}

const eventChannelBuffer = 100

// Watcher implements recursive file system watching on fsnotify.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	log       ports.Logger
	skipDirs  map[string]bool
	events    chan ports.WatchEvent
}

// NewWatcher creates a watcher. extraSkip lists directory names to exclude
// on top of the defaults, typically the output directory.
func NewWatcher(log ports.Logger, extraSkip ...string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool, len(skipDirectories)+len(extraSkip))
	for name := range skipDirectories {
		skip[name] = true
	}
	for _, name := range extraSkip {
		if name != "" {
			skip[name] = true
		}
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		log:       log,
		skipDirs:  skip,
		events:    make(chan ports.WatchEvent, eventChannelBuffer),
	}, nil
}

// Start begins watching the given root directory recursively.
func (w *Watcher) Start(ctx context.Context, root string) error {
	for dir := range w.directories(root) {
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
	}

	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events returns an iterator of file system events.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

// directories walks the tree and yields every watchable directory.
func (w *Watcher) directories(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Skip unreadable directories, keep walking.
				return nil //nolint:nilerr // Unreadable entries are not fatal
			}
			if !d.IsDir() {
				return nil
			}
			if w.shouldSkip(d.Name()) && path != root {
				return fs.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// shouldSkip reports whether a directory name is excluded from watching.
// Hidden directories are excluded except the root itself.
func (w *Watcher) shouldSkip(name string) bool {
	if w.skipDirs[name] {
		return true
	}
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// processEvents converts fsnotify events and forwards them until the context
// ends or the watcher closes.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			watchEvent, ok := convertEvent(event)
			if !ok {
				continue
			}

			select {
			case w.events <- watchEvent:
			case <-ctx.Done():
				return
			}

			// New directories join the watch set immediately so files
			// created inside them are not missed.
			if watchEvent.Operation == ports.OpCreate {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.shouldSkip(info.Name()) {
					for dir := range w.directories(event.Name) {
						_ = w.fsWatcher.Add(dir)
					}
				}
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file system watch error: " + err.Error())
		}
	}
}

// convertEvent maps an fsnotify event onto the port's operation set. Chmod
// only events carry no content change and are dropped.
func convertEvent(event fsnotify.Event) (ports.WatchEvent, bool) {
	switch {
	case event.Op&fsnotify.Write != 0:
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpWrite}, true
	case event.Op&fsnotify.Create != 0:
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpCreate}, true
	case event.Op&fsnotify.Remove != 0:
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpRemove}, true
	case event.Op&fsnotify.Rename != 0:
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpRename}, true
	default:
		return ports.WatchEvent{}, false
	}
}
