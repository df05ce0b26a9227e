// Package capability owns the lifecycle of the directory handle: acquisition,
// persistence across restarts, permission checks and recovery after the
// permission lapses.
package capability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/flownote/internal/apperr"
	"github.com/starford/flownote/internal/dirhandle"
	"github.com/starford/flownote/internal/kv"
)

// ConfiguredKey is the flag recording that the user connected a directory.
const ConfiguredKey = "flownote:fs-configured"

// DefaultRestoreWait bounds how long a caller joining an in-flight restore waits.
const DefaultRestoreWait = 5 * time.Second

// Opener rebuilds a handle from a stored descriptor.
type Opener func(dirhandle.Descriptor) (dirhandle.Handle, error)

// Options configures a Manager.
type Options struct {
	Store         HandleStore
	Flags         kv.Store
	Picker        Picker
	Opener        Opener
	SuggestedName string
	RestoreWait   time.Duration
	Logger        *slog.Logger
}

// Status summarises the capability for a recoverable "directory unavailable" banner.
type Status struct {
	Configured bool                 `json:"configured"`
	HasHandle  bool                 `json:"hasHandle"`
	Permission dirhandle.Permission `json:"permission,omitempty"`
	Name       string               `json:"name,omitempty"`
}

// Usable reports whether the directory can be read and written right now.
func (s Status) Usable() bool {
	return s.HasHandle && s.Permission == dirhandle.PermissionGranted
}

type restoreCall struct {
	done chan struct{}
	err  error
}

// Manager holds at most one live directory handle.
type Manager struct {
	store         HandleStore
	flags         kv.Store
	picker        Picker
	opener        Opener
	suggestedName string
	restoreWait   time.Duration
	logger        *slog.Logger

	mu       sync.Mutex
	handle   dirhandle.Handle
	inflight *restoreCall
}

// NewManager creates a manager. Store and Flags are required.
func NewManager(opts Options) *Manager {
	m := &Manager{
		store:         opts.Store,
		flags:         opts.Flags,
		picker:        opts.Picker,
		opener:        opts.Opener,
		suggestedName: opts.SuggestedName,
		restoreWait:   opts.RestoreWait,
		logger:        opts.Logger,
	}
	if m.picker == nil {
		m.picker = DirectoryPicker{}
	}
	if m.opener == nil {
		m.opener = dirhandle.Open
	}
	if m.suggestedName == "" {
		m.suggestedName = "flownote"
	}
	if m.restoreWait <= 0 {
		m.restoreWait = DefaultRestoreWait
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// IsConfigured reports the persisted configured flag. It says nothing about
// whether the handle can currently be resolved.
func (m *Manager) IsConfigured(ctx context.Context) bool {
	v, ok, err := m.flags.Get(ctx, ConfiguredKey)
	if err != nil {
		m.logger.Warn("capability: read configured flag failed", slog.String("error", err.Error()))
		return false
	}
	return ok && v == "true"
}

// HasHandle reports whether a handle is held in memory.
func (m *Manager) HasHandle() bool {
	return m.current() != nil
}

func (m *Manager) current() dirhandle.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// HasValidAccess queries the live permission of the held handle.
func (m *Manager) HasValidAccess(ctx context.Context) bool {
	h := m.current()
	if h == nil {
		return false
	}
	return m.query(ctx, h) == dirhandle.PermissionGranted
}

// query never reports denied because of a failed check.
func (m *Manager) query(ctx context.Context, h dirhandle.Handle) dirhandle.Permission {
	p, err := h.QueryPermission(ctx)
	if err != nil {
		m.logger.Debug("capability: permission query failed",
			slog.String("handle", h.Descriptor().Name),
			slog.String("error", err.Error()))
		return dirhandle.PermissionPrompt
	}
	return p
}

func (m *Manager) request(ctx context.Context, h dirhandle.Handle) dirhandle.Permission {
	p, err := h.RequestPermission(ctx)
	if err != nil {
		m.logger.Debug("capability: permission request failed",
			slog.String("handle", h.Descriptor().Name),
			slog.String("error", err.Error()))
		return dirhandle.PermissionPrompt
	}
	return p
}

// Handle returns the held handle when its permission is granted.
func (m *Manager) Handle(ctx context.Context) (dirhandle.Handle, error) {
	h := m.current()
	if h == nil {
		return nil, apperr.ErrDirectoryUnavailable
	}
	if p := m.query(ctx, h); p != dirhandle.PermissionGranted {
		return nil, fmt.Errorf("capability: permission %s: %w", p, apperr.ErrAccessRevoked)
	}
	return h, nil
}

// Status reports the capability state.
func (m *Manager) Status(ctx context.Context) Status {
	st := Status{Configured: m.IsConfigured(ctx)}
	if h := m.current(); h != nil {
		st.HasHandle = true
		st.Name = h.Descriptor().Name
		st.Permission = m.query(ctx, h)
	}
	return st
}

// Acquire asks the user to pick a directory. It must run under a user
// gesture. A nil handle with a nil error means the user cancelled.
func (m *Manager) Acquire(ctx context.Context, suggestedName string) (dirhandle.Handle, error) {
	if _, ok := GestureFrom(ctx); !ok {
		return nil, apperr.ErrNoGesture
	}
	if suggestedName == "" {
		suggestedName = m.suggestedName
	}
	h, err := m.picker.Pick(ctx, suggestedName)
	if err != nil {
		return nil, fmt.Errorf("capability: pick directory: %w", err)
	}
	if h == nil {
		m.logger.Info("capability: directory picker cancelled")
		return nil, nil
	}
	return h, nil
}

// Persist stores h in the handle slot, sets the configured flag and adopts
// h as the live handle.
func (m *Manager) Persist(ctx context.Context, h dirhandle.Handle) error {
	if h == nil {
		return fmt.Errorf("capability: persist nil handle: %w", apperr.ErrInvalidInput)
	}
	if err := m.store.Save(ctx, DirectorySlot, h.Descriptor()); err != nil {
		return err
	}
	if err := m.flags.Set(ctx, ConfiguredKey, "true"); err != nil {
		return fmt.Errorf("capability: set configured flag: %w", err)
	}
	m.mu.Lock()
	m.handle = h
	m.mu.Unlock()
	m.logger.Info("capability: directory handle persisted", slog.String("name", h.Descriptor().Name))
	return nil
}

// RestoreOnStartup reloads the stored handle. Concurrent callers join the
// restore already in flight and wait for it at most the restore wait.
// Denied or pending permission is not an error and never clears the
// configured flag.
func (m *Manager) RestoreOnStartup(ctx context.Context) error {
	m.mu.Lock()
	if call := m.inflight; call != nil {
		m.mu.Unlock()
		timer := time.NewTimer(m.restoreWait)
		defer timer.Stop()
		select {
		case <-call.done:
			return call.err
		case <-timer.C:
			m.logger.Warn("capability: restore still running, not waiting any longer")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &restoreCall{done: make(chan struct{})}
	m.inflight = call
	m.mu.Unlock()

	call.err = m.restore(ctx)

	m.mu.Lock()
	m.inflight = nil
	m.mu.Unlock()
	close(call.done)
	return call.err
}

func (m *Manager) restore(ctx context.Context) error {
	h := m.current()
	if h == nil {
		d, err := m.store.Load(ctx, DirectorySlot)
		if err != nil {
			return fmt.Errorf("capability: restore: %w", err)
		}
		if d == nil {
			if m.IsConfigured(ctx) {
				m.logger.Warn("capability: configured but no stored handle, waiting for the user to restore access")
			}
			return nil
		}
		opened, err := m.opener(*d)
		if err != nil {
			m.logger.Warn("capability: stored handle could not be reopened",
				slog.String("location", d.Location),
				slog.String("error", err.Error()))
			return nil
		}
		m.mu.Lock()
		if m.handle == nil {
			m.handle = opened
		}
		h = m.handle
		m.mu.Unlock()
	}

	name := h.Descriptor().Name
	switch m.query(ctx, h) {
	case dirhandle.PermissionGranted:
		m.logger.Info("capability: directory access restored", slog.String("name", name))
	case dirhandle.PermissionDenied:
		m.logger.Warn("capability: directory access denied, keeping configuration for an explicit restore",
			slog.String("name", name))
	default:
		// Without a user gesture this usually fails; that is expected.
		if m.request(ctx, h) == dirhandle.PermissionGranted {
			m.logger.Info("capability: directory access re-granted", slog.String("name", name))
		} else {
			m.logger.Info("capability: directory access pending a user gesture", slog.String("name", name))
		}
	}
	return nil
}

// RestoreWithGesture re-requests permission on the held handle, falling back
// to asking the user to pick the directory again. It reports whether access
// is usable afterwards; false with a nil error means the user cancelled.
func (m *Manager) RestoreWithGesture(ctx context.Context) (bool, error) {
	if _, ok := GestureFrom(ctx); !ok {
		return false, apperr.ErrNoGesture
	}
	if h := m.current(); h != nil {
		if m.request(ctx, h) == dirhandle.PermissionGranted {
			if err := m.Persist(ctx, h); err != nil {
				return false, err
			}
			return true, nil
		}
		m.logger.Info("capability: permission request failed, asking for the directory again",
			slog.String("name", h.Descriptor().Name))
	}

	h, err := m.Acquire(ctx, m.suggestedName)
	if err != nil || h == nil {
		return false, err
	}
	if err := m.Persist(ctx, h); err != nil {
		return false, err
	}
	if m.query(ctx, h) != dirhandle.PermissionGranted && m.request(ctx, h) != dirhandle.PermissionGranted {
		return false, nil
	}
	return true, nil
}

// Clear forgets the handle, the configured flag and the stored slot.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.handle = nil
	m.mu.Unlock()

	err := errors.Join(
		m.flags.Delete(ctx, ConfiguredKey),
		m.store.Delete(ctx, DirectorySlot),
	)
	if err != nil {
		return fmt.Errorf("capability: clear: %w", err)
	}
	m.logger.Info("capability: directory disconnected")
	return nil
}
