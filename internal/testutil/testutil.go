// Package testutil provides shared test helpers for wiring a storage stack
// over in-memory doubles.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/flownote/internal/capability"
	"github.com/starford/flownote/internal/checksum"
	"github.com/starford/flownote/internal/dirhandle"
	"github.com/starford/flownote/internal/index"
	"github.com/starford/flownote/internal/kv"
	"github.com/starford/flownote/internal/noteservice"
	"github.com/starford/flownote/internal/onboarding"
	"github.com/starford/flownote/internal/sse"
	"github.com/starford/flownote/internal/storage"
	"github.com/starford/flownote/internal/trash"
)

// Quiet is a logger that discards everything.
var Quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// Env is a fully wired storage stack. The picker hands out Dir.
type Env struct {
	Dir        *dirhandle.Memory
	Local      *kv.Memory
	Flags      *kv.Memory
	Slots      *capability.MemoryStore
	Manager    *capability.Manager
	Tracker    *checksum.Tracker
	Directory  *storage.Directory
	Fallback   *storage.Fallback
	Broker     *sse.Broker
	Notes      *noteservice.Service
	Trash      *trash.Service
	Search     *index.Searcher
	Onboarding *onboarding.Service
}

// NewEnv wires a stack that starts on the local fallback with no directory
// configured. Everything is closed on cleanup.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	e := &Env{
		Dir:     dirhandle.NewMemory("flownote"),
		Local:   kv.NewMemory(0),
		Flags:   kv.NewMemory(0),
		Slots:   capability.NewMemoryStore(),
		Tracker: checksum.NewTracker(),
		Broker:  sse.NewBroker(0),
	}
	e.Manager = capability.NewManager(capability.Options{
		Store: e.Slots,
		Flags: e.Flags,
		Picker: capability.PickerFunc(func(context.Context, string) (dirhandle.Handle, error) {
			return e.Dir, nil
		}),
		Opener: func(d dirhandle.Descriptor) (dirhandle.Handle, error) {
			return e.Dir, nil
		},
		RestoreWait: time.Second,
		Logger:      Quiet,
	})
	e.Directory = storage.NewDirectory(e.Manager, e.Tracker, Quiet)
	e.Fallback = storage.NewFallback(e.Local)
	e.Notes = noteservice.New(noteservice.Options{
		Directory:  e.Directory,
		Fallback:   e.Fallback,
		Capability: e.Manager,
		Notifier:   e.Broker,
		Logger:     Quiet,
	})
	e.Trash = trash.New(e.Notes, Quiet)
	searchDB, err := index.Open(filepath.Join(t.TempDir(), "search.db"))
	if err != nil {
		t.Fatalf("open search index: %v", err)
	}
	e.Search = index.NewSearcher(searchDB, e.Notes, Quiet)
	e.Onboarding = onboarding.New(onboarding.Options{
		Manager:   e.Manager,
		Notes:     e.Notes,
		Directory: e.Directory,
		Fallback:  e.Fallback,
		Flags:     e.Flags,
		Logger:    Quiet,
	})
	t.Cleanup(func() {
		_ = e.Notes.Close()
		e.Broker.Close()
		_ = e.Search.Close()
	})
	if err := e.Notes.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return e
}

// Connect onboards Dir as the active directory.
func (e *Env) Connect(t *testing.T) onboarding.ConnectResult {
	t.Helper()
	ctx := capability.WithGesture(context.Background(), "")
	res, err := e.Onboarding.Connect(ctx, "")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return res
}

// Flush waits for pending writes.
func (e *Env) Flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Notes.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}
