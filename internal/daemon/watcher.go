package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docpub/internal/logfields"
	"git.home.luguber.info/inful/docpub/internal/run"
)

// PathWatcher monitors the watch-trigger paths and submits a run after a
// quiet window, coalescing editor save bursts into one trigger.
type PathWatcher struct {
	watcher      *fsnotify.Watcher
	paths        []string
	submit       func(reason run.Reason)
	stopChan     chan struct{}
	changeChan   chan struct{}
	debounceTime time.Duration
}

// NewPathWatcher creates a watcher over the given paths. Directories are
// watched directly; for plain files the containing directory is watched.
func NewPathWatcher(paths []string, submit func(reason run.Reason)) (*PathWatcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one watch path is required")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to resolve watch path %s: %w", p, err)
		}
		abs = append(abs, a)
	}

	return &PathWatcher{
		watcher:      watcher,
		paths:        abs,
		submit:       submit,
		stopChan:     make(chan struct{}),
		changeChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second,
	}, nil
}

// Start begins monitoring the configured paths.
func (w *PathWatcher) Start(ctx context.Context) error {
	for _, p := range w.paths {
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		slog.Info("Watching path for changes", logfields.Path(p))
	}

	go w.watchLoop(ctx)
	go w.triggerLoop(ctx)
	return nil
}

// Stop stops the watcher.
func (w *PathWatcher) Stop() {
	close(w.stopChan)
	if err := w.watcher.Close(); err != nil {
		slog.Error("Error closing file watcher", logfields.Error(err))
	}
}

func (w *PathWatcher) watchLoop(ctx context.Context) {
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
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			slog.Debug("File change detected",
				logfields.Path(event.Name),
				slog.String("op", event.Op.String()))
			select {
			case w.changeChan <- struct{}{}:
			default: // a trigger is already pending
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

// triggerLoop debounces change notifications into run submissions.
func (w *PathWatcher) triggerLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-w.changeChan:
			if timer == nil {
				timer = time.NewTimer(w.debounceTime)
				timerC = timer.C
			} else {
				timer.Reset(w.debounceTime)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			slog.Info("Watch trigger fired after quiet window")
			w.submit(run.ReasonWatch)
		}
	}
}
