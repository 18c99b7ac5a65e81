package builder

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeBatch is the set of paths a debounce window collected before
// flushing to the watcher's callback.
type ChangeBatch struct {
	Changed []string
	Removed []string
}

// Watcher recursively watches root for file changes and delivers them in
// debounced batches, the same shape the teacher's indexing file watcher
// uses for its own incremental rebuild trigger, reduced to what a
// one-shot re-analyze loop needs: no create/write/remove callback
// distinction, just "these paths changed, go re-run."
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher creates a Watcher and registers root plus every subdirectory
// under it (fsnotify watches are non-recursive, so each directory needs an
// explicit Add call).
func NewWatcher(root string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if info.IsDir() {
			if err := fsw.Add(path); err != nil {
				return nil // an unwatchable directory (permissions, removed mid-walk) is skipped, not fatal
			}
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{fsw: fsw, debounce: debounce}, nil
}

func (w *Watcher) Close() error { return w.fsw.Close() }

// Run blocks, delivering a ChangeBatch to onBatch every time the debounce
// window closes with at least one event pending, until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, onBatch func(ChangeBatch)) error {
	pending := map[string]bool{}
	removed := map[string]bool{}
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(pending) == 0 && len(removed) == 0 {
			return
		}
		batch := ChangeBatch{}
		for p := range pending {
			batch.Changed = append(batch.Changed, p)
		}
		for p := range removed {
			batch.Removed = append(batch.Removed, p)
		}
		pending = map[string]bool{}
		removed = map[string]bool{}
		onBatch(batch)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return nil
			}
			if event.Op&fsnotify.Remove != 0 || event.Op&fsnotify.Rename != 0 {
				removed[event.Name] = true
				delete(pending, event.Name)
			} else {
				pending[event.Name] = true
				delete(removed, event.Name)
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C
		case <-timerC:
			flush()
			timerC = nil
		case _, ok := <-w.fsw.Errors:
			if !ok {
				flush()
				return nil
			}
		}
	}
}
