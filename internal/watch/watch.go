// Package watch reruns a callback when a file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last write before the
// callback runs.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a file for changes
type Watcher struct {
	file     string
	debounce time.Duration
	callback func(ctx context.Context) error
	watcher  *fsnotify.Watcher

	// OnError receives callback and watcher failures. Nil discards them.
	OnError func(err error)
}

// New creates a watcher for file. The containing directory is watched so
// editors that replace the file on save are still seen.
func New(file string, debounce time.Duration, callback func(ctx context.Context) error) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	absPath, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		file:     absPath,
		debounce: debounce,
		callback: callback,
		watcher:  watcher,
	}, nil
}

// Run invokes the callback once, then again after every debounced change
// to the file, until ctx is done. A failing callback does not stop the
// watch.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	w.invoke(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				timer.Reset(w.debounce)
				fire = timer.C
			}

		case <-fire:
			fire = nil
			w.invoke(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.fail(err)

		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	path, err := filepath.Abs(event.Name)
	return err == nil && path == w.file
}

func (w *Watcher) invoke(ctx context.Context) {
	if err := w.callback(ctx); err != nil {
		w.fail(err)
	}
}

func (w *Watcher) fail(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}
