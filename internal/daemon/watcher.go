package daemon

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/modkit/internal/logfields"
	"git.home.luguber.info/inful/modkit/internal/resolver"
)

// Watcher monitors the tracked module roots and debounces rapid event
// bursts (editor saves, package manager syncs) into single triggers.
type Watcher struct {
	roots    []string
	debounce time.Duration
	trigger  chan<- string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher over the given roots. fsnotify watches are
// not recursive, so every subdirectory is registered individually.
func NewWatcher(roots []string, debounce time.Duration, trigger chan<- string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &Watcher{roots: roots, debounce: debounce, trigger: trigger, watcher: fsw}
	if err := w.Resync(); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Resync re-registers every directory under the tracked roots. Missing
// roots are skipped; they may appear later and are picked up on the next
// resync after a pass.
func (w *Watcher) Resync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, root := range w.roots {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable subtrees are simply not watched
			}
			if !d.IsDir() || d.Name() == resolver.OutputDirName {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if addErr := w.watcher.Add(path); addErr != nil {
				slog.Debug("Failed to watch directory", logfields.Path(path), logfields.Error(addErr))
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("walk watch root %s: %w", root, err)
		}
	}
	return nil
}

// Run pumps filesystem events into debounced triggers until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			slog.Debug("Filesystem event", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", logfields.Error(err))
		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case w.trigger <- "filesystem":
			default:
				// A pass is already pending.
			}
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
