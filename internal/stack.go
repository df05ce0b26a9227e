package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

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
	"github.com/starford/flownote/internal/watcher"
)

// stack is the wired storage layer shared by the server and the one-shot
// commands.
type stack struct {
	logger     *slog.Logger
	slots      *capability.SQLiteStore
	local      kv.Store
	manager    *capability.Manager
	tracker    *checksum.Tracker
	broker     *sse.Broker
	notes      *noteservice.Service
	trash      *trash.Service
	search     *index.Searcher
	onboarding *onboarding.Service
	supervisor *watcher.Supervisor
}

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	return app, nil
}

func buildStack(ctx context.Context, cfg *Config, logger *slog.Logger) (*stack, error) {
	sc := cfg.Storage
	if err := os.MkdirAll(sc.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	slots, err := capability.OpenSQLiteStore(sc.HandleDBPath())
	if err != nil {
		return nil, fmt.Errorf("init handle store: %w", err)
	}
	local, err := kv.BuildFromDSN(sc.FallbackStoreDSN(), sc.FallbackQuotaBytes)
	if err != nil {
		slots.Close()
		return nil, fmt.Errorf("init fallback store: %w", err)
	}

	s := &stack{
		logger:  logger,
		slots:   slots,
		local:   local,
		tracker: checksum.NewTracker(),
		broker:  sse.NewBroker(sc.RefreshThrottle),
	}
	s.manager = capability.NewManager(capability.Options{
		Store:         slots,
		Flags:         local,
		Picker:        capability.DirectoryPicker{Base: sc.PickerBase},
		SuggestedName: sc.SuggestedName,
		RestoreWait:   sc.RestoreWait,
		Logger:        logger,
	})
	directory := storage.NewDirectory(s.manager, s.tracker, logger)
	fallback := storage.NewFallback(local)
	s.notes = noteservice.New(noteservice.Options{
		Directory:  directory,
		Fallback:   fallback,
		Capability: s.manager,
		Notifier:   s.broker,
		Logger:     logger,
	})
	s.trash = trash.New(s.notes, logger)
	searchDB, err := index.Open(sc.SearchDBPath())
	if err != nil {
		local.Close()
		slots.Close()
		return nil, fmt.Errorf("init search index: %w", err)
	}
	s.search = index.NewSearcher(searchDB, s.notes, logger)
	s.supervisor = watcher.NewSupervisor(s.watchRoot, s.tracker, s.notes.Refresh, sc.WatchDebounce, logger)
	s.onboarding = onboarding.New(onboarding.Options{
		Manager:   s.manager,
		Notes:     s.notes,
		Directory: directory,
		Fallback:  fallback,
		Flags:     local,
		OnChange:  s.storageChanged,
		Logger:    logger,
	})

	if err := s.notes.Init(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("storage not ready, continuing in recoverable state", slog.String("error", err.Error()))
		}
	}
	return s, nil
}

// watchRoot resolves the connected directory on disk, if usable.
func (s *stack) watchRoot(ctx context.Context) (string, bool) {
	h, err := s.manager.Handle(ctx)
	if err != nil {
		return "", false
	}
	rooted, ok := h.(dirhandle.Rooted)
	if !ok {
		return "", false
	}
	return rooted.Root(), true
}

func (s *stack) storageChanged(st onboarding.Status) {
	s.supervisor.Restart()
	s.broker.Publish(sse.Event{Type: sse.StatusEvent, Data: st})
}

func (s *stack) Close() {
	if err := s.notes.Close(); err != nil {
		s.logger.Error("close storage", slog.String("error", err.Error()))
	}
	s.broker.Close()
	if err := s.search.Close(); err != nil {
		s.logger.Error("close search index", slog.String("error", err.Error()))
	}
	if err := s.local.Close(); err != nil {
		s.logger.Error("close fallback store", slog.String("error", err.Error()))
	}
	if err := s.slots.Close(); err != nil {
		s.logger.Error("close handle store", slog.String("error", err.Error()))
	}
}
