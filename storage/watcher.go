// Package storage persists the controller state.
// This file contains the Watcher that reports external edits of the
// state file.
package storage

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yllada/proxy-tray/common"
)

// Watcher reports edits to a YAML state file made by other processes.
// Writes performed through the store itself are ignored.
type Watcher struct {
	store     *YAMLStore
	fsWatcher *fsnotify.Watcher
	onChange  func()
	delay     time.Duration

	done     chan struct{}
	stopOnce sync.Once

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewWatcher creates a watcher for store. onChange runs on its own
// goroutine once the file has been quiet for delay.
func NewWatcher(store *YAMLStore, delay time.Duration, onChange func()) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if delay <= 0 {
		delay = common.WatchDebounce
	}
	return &Watcher{
		store:     store,
		fsWatcher: fsWatcher,
		onChange:  onChange,
		delay:     delay,
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching the directory holding the state file.
func (w *Watcher) Start() error {
	// Atomic replacement swaps the inode, so watch the directory instead of the file
	if err := w.fsWatcher.Add(filepath.Dir(w.store.Path())); err != nil {
		return err
	}
	go w.processEvents()
	common.LogDebug("Storage: watching %s", w.store.Path())
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsWatcher.Close()

		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timerMu.Unlock()
	})
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			common.LogWarn("Storage: watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.store.Path()) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.fire)
}

func (w *Watcher) fire() {
	select {
	case <-w.done:
		return
	default:
	}

	data, err := os.ReadFile(w.store.Path())
	if err != nil {
		return
	}
	if w.store.ownContent(data) {
		return
	}

	common.LogInfo("Storage: state file changed on disk")
	if w.onChange != nil {
		w.onChange()
	}
}
