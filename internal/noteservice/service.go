// Package noteservice is the storage façade: a synchronously readable cache of
// notes, flows, folders, categories and theme, persisted asynchronously to the
// active backend.
//
// Mutations update the cache first and return; the document is written by a
// background worker. A process exit between a mutation and the next Flush can
// lose that mutation.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/flownote/internal/apperr"
	"github.com/starford/flownote/internal/models"
	"github.com/starford/flownote/internal/storage"
)

// Capability is the slice of the capability manager the façade needs to
// pick a backend.
type Capability interface {
	IsConfigured(ctx context.Context) bool
	HasValidAccess(ctx context.Context) bool
	RestoreOnStartup(ctx context.Context) error
}

// Notifier receives the payload-less storage-refresh signal.
type Notifier interface {
	PublishRefresh()
}

// Options configures a Service. Fallback is required.
type Options struct {
	Directory  storage.Backend
	Fallback   storage.Backend
	Capability Capability
	Notifier   Notifier
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

// Service is the storage façade.
type Service struct {
	directory  storage.Backend
	fallback   storage.Backend
	capability Capability
	notifier   Notifier
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string

	mu         sync.RWMutex
	active     storage.Backend
	ready      bool
	notes      []models.Note
	flows      []models.Flow
	folders    []string
	categories []string
	theme      string

	queue *persister
}

// New creates the façade and starts its persistence worker.
func New(opts Options) *Service {
	s := &Service{
		directory:  opts.Directory,
		fallback:   opts.Fallback,
		capability: opts.Capability,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		now:        opts.Now,
		newID:      opts.NewID,
		theme:      models.ThemeDefault,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	s.active = s.fallback
	s.queue = newPersister(s.write, s.logger)
	return s
}

// Init loads every collection from the selected backend. When a directory is
// configured but cannot be used, the directory stays selected, the cache stays
// empty and the capability error is returned so the caller can offer a
// restore instead of onboarding.
func (s *Service) Init(ctx context.Context) error {
	backend := s.selectBackend(ctx)
	snap, err := s.load(ctx, backend)

	s.mu.Lock()
	s.active = backend
	if err != nil {
		s.notes, s.flows, s.folders, s.categories = nil, nil, nil, nil
		s.theme = models.ThemeDefault
		s.ready = false
		s.mu.Unlock()
		if apperr.IsRecoverable(err) {
			s.logger.Warn("noteservice: directory configured but unavailable",
				slog.String("error", err.Error()))
		}
		return err
	}
	s.notes, s.flows = snap.Notes, snap.Flows
	s.folders, s.categories = snap.Folders, snap.Categories
	s.theme = snap.Theme
	s.ready = true
	s.mu.Unlock()

	s.logger.Info("noteservice: cache loaded",
		slog.String("backend", backend.Kind()),
		slog.Int("notes", len(snap.Notes)),
		slog.Int("flows", len(snap.Flows)))
	return nil
}

// Refresh waits for pending writes, re-selects the backend, reloads the cache
// and broadcasts storage-refresh.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		return err
	}
	err := s.Init(ctx)
	s.publish()
	return err
}

func (s *Service) selectBackend(ctx context.Context) storage.Backend {
	if s.directory == nil || s.capability == nil || !s.capability.IsConfigured(ctx) {
		return s.fallback
	}
	if !s.capability.HasValidAccess(ctx) {
		if err := s.capability.RestoreOnStartup(ctx); err != nil {
			s.logger.Warn("noteservice: handle restoration failed", slog.String("error", err.Error()))
		}
	}
	return s.directory
}

// Snapshot is a full copy of the cached collections.
type Snapshot struct {
	Notes      []models.Note `json:"notes"`
	Flows      []models.Flow `json:"flows"`
	Folders    []string      `json:"folders"`
	Categories []string      `json:"categories"`
	Theme      string        `json:"theme"`
}

func (s *Service) load(ctx context.Context, b storage.Backend) (Snapshot, error) {
	snap := Snapshot{Theme: models.ThemeDefault}
	var err error
	if snap.Notes, err = storage.ReadList[models.Note](ctx, b, storage.DocNotes, s.logger); err != nil {
		return snap, err
	}
	if snap.Flows, err = storage.ReadList[models.Flow](ctx, b, storage.DocFlows, s.logger); err != nil {
		return snap, err
	}
	var folders, categories []string
	if folders, err = storage.ReadList[string](ctx, b, storage.DocFolders, s.logger); err != nil {
		return snap, err
	}
	if categories, err = storage.ReadList[string](ctx, b, storage.DocCategories, s.logger); err != nil {
		return snap, err
	}
	theme, err := storage.ReadObject[models.ThemeSetting](ctx, b, storage.DocTheme, s.logger)
	if err != nil {
		return snap, err
	}
	if theme != nil && theme.Validate() == nil {
		snap.Theme = theme.Theme
	}
	for i := range snap.Notes {
		snap.Notes[i].Folder = models.NormalizeLabel(snap.Notes[i].Folder)
	}
	for i := range snap.Flows {
		snap.Flows[i].Category = models.NormalizeLabel(snap.Flows[i].Category)
	}
	snap.Folders = normalizeLabels(folders)
	snap.Categories = normalizeLabels(categories)
	return snap, nil
}

// Ready reports whether the cache holds loaded data. Reads before that
// return empty results meaning "not loaded yet".
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Backend returns the active backend. The trash subsystem writes through it
// directly.
func (s *Service) Backend() storage.Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// BackendKind names the active backend.
func (s *Service) BackendKind() string {
	return s.Backend().Kind()
}

// Export returns a copy of every cached collection.
func (s *Service) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Notes:      cloneNotes(s.notes),
		Flows:      cloneFlows(s.flows),
		Folders:    s.allFoldersLocked(),
		Categories: s.allCategoriesLocked(),
		Theme:      s.theme,
	}
}

// Writable reports whether mutations are accepted. Until the cache holds
// loaded data they fail with ErrNotLoaded; with a directory selected the error
// also matches ErrDirectoryUnavailable so callers offer a restore.
func (s *Service) Writable() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writableLocked()
}

func (s *Service) writableLocked() error {
	if s.ready {
		return nil
	}
	if s.active != s.fallback {
		return fmt.Errorf("noteservice: %w: %w", apperr.ErrNotLoaded, apperr.ErrDirectoryUnavailable)
	}
	return fmt.Errorf("noteservice: %w", apperr.ErrNotLoaded)
}

// Flush blocks until every mutation made before the call is persisted.
func (s *Service) Flush(ctx context.Context) error {
	return s.queue.flush(ctx)
}

// FlushDocuments is Flush followed by a check of the last write of each doc.
// It fails when that write reached neither the active backend nor the
// fallback.
func (s *Service) FlushDocuments(ctx context.Context, docs ...storage.Document) error {
	if err := s.Flush(ctx); err != nil {
		return err
	}
	var errs []error
	for _, doc := range docs {
		if err := s.queue.lastError(doc); err != nil {
			errs = append(errs, fmt.Errorf("noteservice: persist %s: %w", doc, err))
		}
	}
	return errors.Join(errs...)
}

// Close persists pending writes and stops the worker.
func (s *Service) Close() error {
	s.queue.close()
	return nil
}

func (s *Service) publish() {
	if s.notifier != nil {
		s.notifier.PublishRefresh()
	}
}

// persistLocked queues the current content of doc. Callers hold s.mu and
// have checked writableLocked.
func (s *Service) persistLocked(doc storage.Document) {
	var v any
	switch doc {
	case storage.DocNotes:
		v = nonNil(s.notes)
	case storage.DocFlows:
		v = nonNil(s.flows)
	case storage.DocFolders:
		v = nonNil(s.folders)
	case storage.DocCategories:
		v = nonNil(s.categories)
	case storage.DocTheme:
		v = models.ThemeSetting{Theme: s.theme}
	default:
		s.logger.Error("noteservice: unknown document", slog.String("document", string(doc)))
		return
	}
	data, err := storage.Encode(v)
	if err != nil {
		s.logger.Error("noteservice: encode failed", slog.String("document", string(doc)), slog.String("error", err.Error()))
		return
	}
	s.queue.enqueue(doc, data)
}

// write runs on the persistence worker.
func (s *Service) write(ctx context.Context, doc storage.Document, data []byte) error {
	primary := s.Backend()
	if primary == s.fallback {
		return primary.WriteDocument(ctx, doc, data)
	}
	var restorer storage.Restorer
	if s.capability != nil {
		restorer = s.capability
	}
	return storage.WriteThrough{
		Primary:  primary,
		Fallback: s.fallback,
		Restorer: restorer,
		Logger:   s.logger,
	}.WriteDocument(ctx, doc, data)
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func cloneNotes(in []models.Note) []models.Note {
	return slices.Clone(nonNil(in))
}

func cloneFlows(in []models.Flow) []models.Flow {
	out := make([]models.Flow, len(in))
	for i, f := range in {
		out[i] = cloneFlow(f)
	}
	return out
}

func cloneFlow(f models.Flow) models.Flow {
	f.Nodes = slices.Clone(f.Nodes)
	for i := range f.Nodes {
		f.Nodes[i].Tags = slices.Clone(f.Nodes[i].Tags)
	}
	f.Edges = slices.Clone(f.Edges)
	return f
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("noteservice: "+format+": %w", append(args, apperr.ErrInvalidInput)...)
}

func notFound(kind, id string) error {
	return fmt.Errorf("noteservice: %s %s: %w", kind, id, apperr.ErrNotFound)
}

var errClosed = errors.New("noteservice: closed")

// PublishRefresh broadcasts storage-refresh on behalf of collaborators that
// mutate through the façade, such as the trash.
func (s *Service) PublishRefresh() {
	s.publish()
}
