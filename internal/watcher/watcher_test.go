package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/flownote/internal/checksum"
	"github.com/starford/flownote/internal/dirhandle"
	"github.com/starford/flownote/internal/storage"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type static struct{ h dirhandle.Handle }

func (s static) Handle(context.Context) (dirhandle.Handle, error) { return s.h, nil }

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestTracked(t *testing.T) {
	cases := map[string]bool{
		"notes.json":               true,
		"flowCategories.json":      true,
		"trash-index.json":         true,
		"trash/notes/abc.json":     true,
		"trash/flows/abc.json":     true,
		"random.json":              false,
		"notes.md":                 false,
		".flownote-tmp-123":        false,
		"trash/other/abc.json":     false,
		"sub/notes.json":           false,
		"trash/notes/.hidden.json": false,
	}
	for rel, want := range cases {
		if got := Tracked(rel); got != want {
			t.Errorf("Tracked(%q) = %v, want %v", rel, got, want)
		}
	}
}

func TestWatchIgnoresOwnWritesAndRefreshesOnExternal(t *testing.T) {
	root := t.TempDir()
	h, err := dirhandle.NewOS(root)
	if err != nil {
		t.Fatal(err)
	}
	tracker := checksum.NewTracker()
	backend := storage.NewDirectory(static{h}, tracker, quiet)

	var refreshes atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, root, tracker, func(context.Context) error {
			refreshes.Add(1)
			return nil
		}, 50*time.Millisecond, quiet)
	}()
	time.Sleep(100 * time.Millisecond)

	if err := backend.WriteDocument(ctx, storage.DocNotes, []byte("[]")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := refreshes.Load(); n != 0 {
		t.Fatalf("own write triggered %d refreshes", n)
	}

	if err := os.WriteFile(filepath.Join(root, "notes.json"), []byte(`[{"id":"x"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return refreshes.Load() >= 1
	}, "external edit did not trigger a refresh")

	cancel()
	<-done
}

func TestSupervisorRestart(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	var current atomic.Value
	current.Store(first)

	var refreshes atomic.Int32
	s := NewSupervisor(func(context.Context) (string, bool) {
		return current.Load().(string), true
	}, nil, func(context.Context) error {
		refreshes.Add(1)
		return nil
	}, 30*time.Millisecond, quiet)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	current.Store(second)
	s.Restart()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(second, "folders.json"), []byte(`["a"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return refreshes.Load() >= 1
	}, "restarted watcher missed a change")

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
