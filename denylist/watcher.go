package denylist

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/semihalev/zlog/v2"
)

// Watcher rebuilds the Store held by a Holder when the denylist file changes
// on disk. Events are debounced: the file is read once it has been quiet for
// settleDelay. A failed rebuild keeps the previous Store.
type Watcher struct {
	path   string
	holder *Holder

	watcher *fsnotify.Watcher
	reload  func(string) (*Store, error)
	clock   clockwork.Clock
}

// NewWatcher watches the directory holding path, not the file itself, so
// editors that replace the file with a rename are still noticed.
func NewWatcher(path string, holder *Holder) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch denylist directory: %w", err)
	}

	return &Watcher{
		path:    path,
		holder:  holder,
		watcher: watcher,
		reload:  Load,
		clock:   clockwork.NewRealClock(),
	}, nil
}

// Run handles file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	zlog.Info("Watching denylist for changes", "path", w.path)

	var (
		settle  clockwork.Timer
		settled <-chan time.Time
	)

	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-settled:
			settled = nil
			w.Reload()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			if !w.isRelevantEvent(event) {
				continue
			}

			zlog.Debug("Denylist file event", "event", event.String())

			// restart the wait on every event
			if settle == nil {
				settle = w.clock.NewTimer(settleDelay)
			} else {
				if !settle.Stop() {
					select {
					case <-settle.Chan():
					default:
					}
				}
				settle.Reset(settleDelay)
			}
			settled = settle.Chan()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			zlog.Error("Denylist watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}

	return filepath.Base(event.Name) == filepath.Base(w.path)
}

// Reload builds a new Store from the file and swaps it in.
func (w *Watcher) Reload() bool {
	s, err := w.reload(w.path)
	if err != nil {
		zlog.Error("Denylist reload failed, keeping previous list", "path", w.path, "error", err.Error())
		return false
	}

	prev := w.holder.Swap(s)
	zlog.Info("Denylist reloaded", "path", w.path, "total", s.Len(), "previous", prev.Len())

	return true
}

const settleDelay = 500 * time.Millisecond
