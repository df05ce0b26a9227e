package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/flownote/internal/checksum"
)

// RootFunc returns the directory to watch, or false when none is usable.
type RootFunc func(ctx context.Context) (string, bool)

// Supervisor keeps one watcher running on the current directory and
// replaces it when Restart is called, for example after the user connects
// a different directory.
type Supervisor struct {
	root     RootFunc
	tracker  *checksum.Tracker
	refresh  RefreshFunc
	debounce time.Duration
	logger   *slog.Logger
	restart  chan struct{}
}

// NewSupervisor creates a supervisor.
func NewSupervisor(root RootFunc, tracker *checksum.Tracker, refresh RefreshFunc, debounce time.Duration, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		root:     root,
		tracker:  tracker,
		refresh:  refresh,
		debounce: debounce,
		logger:   logger,
		restart:  make(chan struct{}, 1),
	}
}

// Restart re-resolves the root and restarts the watcher.
func (s *Supervisor) Restart() {
	select {
	case s.restart <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		wctx, cancel := context.WithCancel(ctx)
		var wg sync.WaitGroup
		if root, ok := s.root(ctx); ok {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := Watch(wctx, root, s.tracker, s.refresh, s.debounce, s.logger); err != nil {
					s.logger.Warn("watcher: not watching directory",
						slog.String("root", root),
						slog.String("error", err.Error()))
				}
			}()
		}
		select {
		case <-ctx.Done():
			cancel()
			wg.Wait()
			return nil
		case <-s.restart:
			cancel()
			wg.Wait()
		}
	}
}
