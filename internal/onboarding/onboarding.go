// Package onboarding drives the directory lifecycle seen by the user:
// connecting a directory, restoring lost access and disconnecting.
package onboarding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/flownote/internal/capability"
	"github.com/starford/flownote/internal/kv"
	"github.com/starford/flownote/internal/migrate"
	"github.com/starford/flownote/internal/noteservice"
	"github.com/starford/flownote/internal/storage"
)

// Options configures a Service.
type Options struct {
	Manager   *capability.Manager
	Notes     *noteservice.Service
	Directory storage.Backend
	Fallback  storage.Backend
	Flags     kv.Store
	// OnChange runs after the active backend may have changed.
	OnChange func(Status)
	Logger   *slog.Logger
}

// Service serializes onboarding transitions.
type Service struct {
	mu        sync.Mutex
	manager   *capability.Manager
	notes     *noteservice.Service
	directory storage.Backend
	fallback  storage.Backend
	flags     kv.Store
	onChange  func(Status)
	logger    *slog.Logger
}

// Status is the storage banner state.
type Status struct {
	capability.Status
	Backend     string     `json:"backend"`
	Ready       bool       `json:"ready"`
	Unavailable bool       `json:"unavailable"`
	MigratedAt  *time.Time `json:"migratedAt,omitempty"`
}

// ConnectResult describes a finished connect.
type ConnectResult struct {
	Cancelled bool           `json:"cancelled"`
	Migrated  migrate.Report `json:"migrated"`
	Status    Status         `json:"status"`
}

// New creates a Service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		manager:   opts.Manager,
		notes:     opts.Notes,
		directory: opts.Directory,
		fallback:  opts.Fallback,
		flags:     opts.Flags,
		onChange:  opts.OnChange,
		logger:    logger,
	}
}

// Status reports the current capability and backend state.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{
		Status:  s.manager.Status(ctx),
		Backend: s.notes.BackendKind(),
		Ready:   s.notes.Ready(),
	}
	st.Unavailable = st.Configured && !st.Usable()
	if s.flags != nil {
		if at, ok := migrate.MigratedAt(ctx, s.flags); ok {
			st.MigratedAt = &at
		}
	}
	return st
}

// Connect asks the user for a directory, persists it, merges the fallback
// data into it and reloads the cache from it. ctx must carry a gesture.
func (s *Service) Connect(ctx context.Context, suggestedName string) (ConnectResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.manager.Acquire(ctx, suggestedName)
	if err != nil {
		return ConnectResult{}, err
	}
	if h == nil {
		return ConnectResult{Cancelled: true, Status: s.Status(ctx)}, nil
	}
	if err := s.notes.Flush(ctx); err != nil {
		return ConnectResult{}, fmt.Errorf("onboarding: flush before connect: %w", err)
	}
	if err := s.manager.Persist(ctx, h); err != nil {
		return ConnectResult{}, err
	}

	rep, err := migrate.Run(ctx, s.fallback, s.directory, s.flags, s.logger)
	if err != nil {
		// The directory stays connected; the local copy is untouched and the
		// merge can be retried by connecting again.
		s.logger.Error("onboarding: migration failed", slog.String("error", err.Error()))
	}
	refreshErr := s.notes.Refresh(ctx)
	st := s.changed(ctx)
	if err != nil {
		return ConnectResult{Migrated: rep, Status: st}, fmt.Errorf("onboarding: migrate: %w", err)
	}
	if refreshErr != nil {
		return ConnectResult{Migrated: rep, Status: st}, refreshErr
	}
	return ConnectResult{Migrated: rep, Status: st}, nil
}

// Restore re-requests access to the configured directory under a gesture.
// It reports whether the directory is usable afterwards.
func (s *Service) Restore(ctx context.Context) (bool, Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.manager.RestoreWithGesture(ctx)
	if err != nil {
		return false, s.Status(ctx), err
	}
	if !ok {
		return false, s.Status(ctx), nil
	}
	if err := s.notes.Refresh(ctx); err != nil {
		return false, s.changed(ctx), err
	}
	return true, s.changed(ctx), nil
}

// Disconnect forgets the directory and switches back to the local fallback.
// Files in the directory are left in place.
func (s *Service) Disconnect(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.notes.Flush(ctx); err != nil {
		s.logger.Warn("onboarding: flush before disconnect", slog.String("error", err.Error()))
	}
	if err := s.manager.Clear(ctx); err != nil {
		return s.Status(ctx), err
	}
	err := s.notes.Refresh(ctx)
	return s.changed(ctx), err
}

func (s *Service) changed(ctx context.Context) Status {
	st := s.Status(ctx)
	if s.onChange != nil {
		s.onChange(st)
	}
	return st
}
