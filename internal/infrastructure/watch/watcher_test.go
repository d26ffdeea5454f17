package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatcher(t *testing.T, w *SaveWatcher) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = w.Run(ctx)
	}()
	// Give watcher time to start
	time.Sleep(50 * time.Millisecond)
	return cancel
}

func TestSaveWatcher_DetectsMatchingWrite(t *testing.T) {
	dir := t.TempDir()
	save := filepath.Join(dir, "save.main.json")
	if err := os.WriteFile(save, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	var eventCount atomic.Int32
	var lastPath atomic.Value
	w, err := NewSaveWatcher(dir, []string{"save.main.json"}, 50*time.Millisecond, func(e ChangeEvent) error {
		eventCount.Add(1)
		lastPath.Store(e.Path)
		return nil
	}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	cancel := startWatcher(t, w)
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(save, []byte(`{"objectives":[]}`), 0600); err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(250 * time.Millisecond)

	if got := eventCount.Load(); got != 1 {
		t.Errorf("expected 1 debounced change, got %d", got)
	}
	if p, _ := lastPath.Load().(string); filepath.Base(p) != "save.main.json" {
		t.Errorf("unexpected path %q", p)
	}
}

func TestSaveWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()

	var eventCount atomic.Int32
	w, err := NewSaveWatcher(dir, []string{"save.main.json"}, 50*time.Millisecond, func(ChangeEvent) error {
		eventCount.Add(1)
		return nil
	}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	cancel := startWatcher(t, w)
	defer cancel()

	if err := os.WriteFile(filepath.Join(dir, "save.other.json"), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "events.jsonl"), []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)

	if got := eventCount.Load(); got != 0 {
		t.Errorf("expected no change events, got %d", got)
	}
}

func TestSaveWatcher_HandlerErrorKeepsRunning(t *testing.T) {
	dir := t.TempDir()
	save := filepath.Join(dir, "save.main.json")

	var eventCount atomic.Int32
	w, err := NewSaveWatcher(dir, nil, 30*time.Millisecond, func(ChangeEvent) error {
		eventCount.Add(1)
		return errors.New("bad save")
	}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	cancel := startWatcher(t, w)
	defer cancel()

	if err := os.WriteFile(save, []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	if err := os.WriteFile(save, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)

	if got := eventCount.Load(); got < 2 {
		t.Errorf("expected the watcher to survive handler errors, got %d calls", got)
	}
}

func TestSaveWatcher_ContextCancellation(t *testing.T) {
	w, err := NewSaveWatcher(t.TempDir(), nil, 50*time.Millisecond, nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("watcher did not stop after context cancellation")
	}
}

func TestNewSaveWatcher_Errors(t *testing.T) {
	if _, err := NewSaveWatcher(t.TempDir(), []string{"["}, 0, nil, nil); err == nil {
		t.Error("expected error for malformed pattern")
	}
	if _, err := NewSaveWatcher(filepath.Join(t.TempDir(), "missing"), nil, 0, nil, nil); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestSaveWatcher_Matches(t *testing.T) {
	w := &SaveWatcher{patterns: []string{"save.*.json", "saves.db*"}}
	cases := map[string]bool{
		"/tmp/.questlog/save.main.json": true,
		"saves.db-wal":                  true,
		"events.jsonl":                  false,
		"catalog.yaml":                  false,
	}
	for path, want := range cases {
		if got := w.Matches(path); got != want {
			t.Errorf("Matches(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestOfferLatest_ReplacesPendingEvent(t *testing.T) {
	ch := make(chan ChangeEvent, 1)
	offerLatest(ch, ChangeEvent{Path: "save.main.json", ChangeType: "create"})
	offerLatest(ch, ChangeEvent{Path: "save.main.json", ChangeType: "write"})

	select {
	case e := <-ch:
		if e.ChangeType != "write" {
			t.Fatalf("expected newest event, got %s", e.ChangeType)
		}
	default:
		t.Fatal("expected a pending event")
	}
	select {
	case e := <-ch:
		t.Fatalf("expected one pending event, got another: %+v", e)
	default:
	}
}
