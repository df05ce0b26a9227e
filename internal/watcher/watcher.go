// Package watcher refreshes the façade when documents in the connected
// directory change outside this process.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/flownote/internal/checksum"
	"github.com/starford/flownote/internal/storage"
)

// DefaultDebounce groups bursts of file events into one refresh.
const DefaultDebounce = 200 * time.Millisecond

// RefreshFunc reloads cached state after an external change.
type RefreshFunc func(ctx context.Context) error

// Watch watches root until ctx is cancelled. Events for files whose content
// equals what tracker recorded for our own writes are ignored; any other
// change to a document or trash copy triggers refresh after debounce.
func Watch(ctx context.Context, root string, tracker *checksum.Tracker, refresh RefreshFunc, debounce time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var timerC <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerC = timer.C
			return
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerC:
			timer, timerC = nil, nil
			if err := refresh(ctx); err != nil {
				logger.Warn("watcher: refresh failed", slog.String("error", err.Error()))
				continue
			}
			logger.Debug("watcher: refreshed after external change")

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if !Tracked(rel) {
				continue
			}
			data, readErr := os.ReadFile(ev.Name)
			if readErr != nil && !errors.Is(readErr, fs.ErrNotExist) {
				logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
				continue
			}
			if tracker != nil && tracker.Matches(rel, data) {
				continue
			}
			logger.Debug("watcher: external change", slog.String("path", rel), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// Tracked reports whether rel names a document or a trash copy.
func Tracked(rel string) bool {
	if strings.HasPrefix(path.Base(rel), ".") || !strings.HasSuffix(rel, ".json") {
		return false
	}
	if !strings.Contains(rel, "/") {
		return slices.Contains(storage.Documents, storage.Document(rel))
	}
	dir := path.Dir(rel)
	return dir == storage.TrashDir+"/notes" || dir == storage.TrashDir+"/flows"
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}
