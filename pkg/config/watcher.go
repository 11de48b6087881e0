package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher wraps a single fsnotify.Watcher and fans file-change events out
// to every registered callback. One Watcher watches one file at a time.
type Watcher struct {
	fsw *fsnotify.Watcher

	mu        sync.Mutex
	callbacks []func()
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewWatcher() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{fsw: fsw}, nil
}

// OnChange registers a callback invoked (possibly more than once per
// edit, fsnotify does not de-duplicate) whenever the watched file changes.
func (w *Watcher) OnChange(cb func()) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, cb)
	w.mu.Unlock()
}

// Watch starts watching path until ctx is canceled or Close is called.
func (w *Watcher) Watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.fsw.Add(abs); err != nil {
		return err
	}
	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()
	go w.loop(watchCtx, abs, done)
	return nil
}

func (w *Watcher) loop(ctx context.Context, path string, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.mu.Lock()
			cbs := make([]func(), len(w.callbacks))
			copy(cbs, w.callbacks)
			w.mu.Unlock()
			for _, cb := range cbs {
				cb()
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops watching and waits (briefly) for the event loop to drain.
func (w *Watcher) Close() error {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	err := w.fsw.Close()
	if done != nil {
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
	return err
}
