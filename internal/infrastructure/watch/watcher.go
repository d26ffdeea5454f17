package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent represents a change to a watched file.
type ChangeEvent struct {
	Path       string
	ChangeType string // "create", "write", "remove", "rename"
}

// SaveWatcher watches one directory for changes to files matching its
// patterns. Change callbacks run on the Run goroutine.
type SaveWatcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	patterns []string
	debounce time.Duration
	onChange func(ChangeEvent) error
	logger   *slog.Logger
}

// NewSaveWatcher watches dir. Patterns are filepath.Match globs against file
// base names; no patterns matches every file.
func NewSaveWatcher(dir string, patterns []string, debounce time.Duration, onChange func(ChangeEvent) error, logger *slog.Logger) (*SaveWatcher, error) {
	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if debounce == 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveWatcher{
		watcher:  w,
		dir:      dir,
		patterns: patterns,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Matches reports whether path's base name matches a watched pattern.
func (w *SaveWatcher) Matches(path string) bool {
	if len(w.patterns) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, p := range w.patterns {
		if matched, _ := filepath.Match(p, base); matched {
			return true
		}
	}
	return false
}

// Run starts the event loop. It blocks until the context is cancelled.
// Callback errors are logged and do not stop the loop.
func (w *SaveWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	fired := make(chan ChangeEvent, 1)
	debouncer := NewDebouncer(w.debounce, func(e ChangeEvent) {
		offerLatest(fired, e)
	})
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			changeType := opToChangeType(event.Op)
			if changeType == "" || !w.Matches(event.Name) {
				continue
			}
			debouncer.Trigger(ChangeEvent{Path: event.Name, ChangeType: changeType})

		case e := <-fired:
			if w.onChange == nil {
				continue
			}
			if err := w.onChange(e); err != nil {
				w.logger.Warn("change handler failed", "path", e.Path, "change", e.ChangeType, "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func opToChangeType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return ""
	}
}

// offerLatest leaves e as the single pending event in ch, replacing any
// event the loop has not picked up yet.
func offerLatest(ch chan ChangeEvent, e ChangeEvent) {
	for {
		select {
		case ch <- e:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
