package config

import (
	"context"
	"errors"
	"io/fs"
	log "log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultWatchDebounce = 500 * time.Millisecond

// Watcher reloads a SettingsStore when its file changes on disk. The
// directory is watched so editors that replace the file are picked up.
type Watcher struct {
	store    *SettingsStore
	path     string
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewWatcher(store *SettingsStore, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	path := store.Path()
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Watcher{store: store, path: filepath.Clean(path), debounce: debounce}
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	log.Debug("Watching settings", "path", w.path)

	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			w.schedule()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("Settings watcher error", "err", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.store.Reload(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn("Settings reload failed", "err", err)
		}
	})
}
