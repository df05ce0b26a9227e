// Package trash implements soft deletion on top of the active backend: items
// move into a reserved area, are recorded in the trash index and can be
// restored or purged.
package trash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/flownote/internal/apperr"
	"github.com/starford/flownote/internal/models"
	"github.com/starford/flownote/internal/noteservice"
	"github.com/starford/flownote/internal/storage"
)

// Service moves items between the façade and the trash.
type Service struct {
	notes  *noteservice.Service
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	// mu serialises read-modify-write cycles of the trash index.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs overrides the container id generator.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// New creates a trash service over the façade.
func New(notes *noteservice.Service, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		notes:  notes,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) readIndex(ctx context.Context, b storage.Backend) (*models.TrashIndex, error) {
	ix, err := storage.ReadObject[models.TrashIndex](ctx, b, storage.DocTrashIndex, s.logger)
	if err != nil {
		return nil, fmt.Errorf("trash: read index: %w", err)
	}
	if ix == nil {
		ix = &models.TrashIndex{}
	}
	ix.Version = models.TrashIndexVersion
	return ix, nil
}

func (s *Service) writeIndex(ctx context.Context, b storage.Backend, ix *models.TrashIndex) error {
	ix.Version = models.TrashIndexVersion
	ix.LastUpdated = s.now()
	if ix.Items == nil {
		ix.Items = []models.TrashedItem{}
	}
	if err := storage.WriteValue(ctx, b, storage.DocTrashIndex, ix); err != nil {
		return fmt.Errorf("trash: write index: %w", err)
	}
	return nil
}

// MoveNoteToTrash trashes a note. Trashing a note that is not active is a
// no-op and returns nil.
func (s *Service) MoveNoteToTrash(ctx context.Context, id string) (*models.TrashedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.notes.Writable(); err != nil {
		return nil, fmt.Errorf("trash: move note %s: %w", id, err)
	}
	return s.moveLocked(ctx, s.notes.Backend(), models.ItemNote, id)
}

// MoveFlowToTrash trashes a flow. Trashing a flow that is not active is a
// no-op and returns nil.
func (s *Service) MoveFlowToTrash(ctx context.Context, id string) (*models.TrashedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.notes.Writable(); err != nil {
		return nil, fmt.Errorf("trash: move flow %s: %w", id, err)
	}
	return s.moveLocked(ctx, s.notes.Backend(), models.ItemFlow, id)
}

// moveLocked copies the item into the trash area, records it in the index
// and only then removes it from active storage. An interruption leaves at
// worst a duplicate, which List resolves in favour of the active item.
func (s *Service) moveLocked(ctx context.Context, b storage.Backend, t models.ItemType, id string) (*models.TrashedItem, error) {
	item := models.TrashedItem{ID: id, Type: t}
	var payload any
	switch t {
	case models.ItemNote:
		n, ok := s.notes.GetNoteByID(id)
		if !ok {
			s.logger.Warn("trash: note already absent from active storage", slog.String("id", id))
			return nil, nil
		}
		payload = n
		item.Title = n.Title
		item.OriginalPath = b.Location(storage.DocNotes)
		item.OriginalFolder = n.Folder
		item.Metadata.Note = &n
	case models.ItemFlow:
		f, ok := s.notes.GetFlowByID(id)
		if !ok {
			s.logger.Warn("trash: flow already absent from active storage", slog.String("id", id))
			return nil, nil
		}
		payload = f
		item.Title = f.Title
		item.OriginalPath = b.Location(storage.DocFlows)
		item.OriginalCategory = f.Category
		item.Metadata.Flow = &f
	default:
		return nil, fmt.Errorf("trash: move %s: %w", t, apperr.ErrInvalidInput)
	}

	data, err := storage.Encode(payload)
	if err != nil {
		return nil, err
	}
	if item.TrashPath, err = b.WriteArtifact(ctx, t, id, data); err != nil {
		return nil, fmt.Errorf("trash: copy %s %s: %w", t, id, err)
	}

	ix, err := s.readIndex(ctx, b)
	if err == nil {
		item.DeletedAt = s.now()
		ix.Remove(id)
		ix.Items = append(ix.Items, item)
		err = s.writeIndex(ctx, b, ix)
	}
	if err != nil {
		if cerr := b.DeleteArtifact(ctx, t, id); cerr != nil {
			s.logger.Error("trash: orphaned trash copy left behind",
				slog.String("type", string(t)),
				slog.String("id", id),
				slog.String("error", cerr.Error()))
		}
		return nil, err
	}

	switch t {
	case models.ItemNote:
		s.notes.DeleteNote(id)
	case models.ItemFlow:
		s.notes.DeleteFlow(id)
	}
	s.logger.Info("trash: moved to trash", slog.String("type", string(t)), slog.String("id", id))
	return &item, nil
}

// MoveFolderToTrash trashes every note in folder and records the folder as a
// container entry listing them.
func (s *Service) MoveFolderToTrash(ctx context.Context, folder string) (*models.TrashedItem, error) {
	folder = models.NormalizeLabel(folder)
	return s.moveContainer(ctx, models.ItemFolder, folder, storage.DocFolders, models.ItemNote, func() ([]string, bool) {
		if !slices.Contains(s.notes.GetAllFolders(), folder) {
			return nil, false
		}
		var ids []string
		for _, n := range s.notes.NotesInFolder(folder) {
			ids = append(ids, n.ID)
		}
		return ids, true
	}, s.notes.ForgetFolder)
}

// MoveCategoryToTrash trashes every flow in category and records the
// category as a container entry listing them.
func (s *Service) MoveCategoryToTrash(ctx context.Context, category string) (*models.TrashedItem, error) {
	category = models.NormalizeLabel(category)
	return s.moveContainer(ctx, models.ItemCategory, category, storage.DocCategories, models.ItemFlow, func() ([]string, bool) {
		if !slices.Contains(s.notes.GetAllCategories(), category) {
			return nil, false
		}
		var ids []string
		for _, f := range s.notes.FlowsInCategory(category) {
			ids = append(ids, f.ID)
		}
		return ids, true
	}, s.notes.ForgetCategory)
}

// moveContainer resolves the members and forgets the label under mu.
func (s *Service) moveContainer(ctx context.Context, t models.ItemType, label string, doc storage.Document, memberType models.ItemType,
	memberIDs func() ([]string, bool), forget func(string)) (*models.TrashedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.notes.Writable(); err != nil {
		return nil, fmt.Errorf("trash: move %s %q: %w", t, label, err)
	}
	ids, ok := memberIDs()
	if !ok {
		return nil, fmt.Errorf("trash: %s %q: %w", t, label, apperr.ErrNotFound)
	}
	b := s.notes.Backend()

	members := make([]string, 0, len(ids))
	for _, id := range ids {
		moved, err := s.moveLocked(ctx, b, memberType, id)
		if err != nil {
			return nil, fmt.Errorf("trash: %s %q: %w", t, label, err)
		}
		if moved != nil {
			members = append(members, id)
		}
	}

	item := models.TrashedItem{
		ID:           s.newID(),
		Type:         t,
		Title:        label,
		OriginalPath: b.Location(doc),
		DeletedAt:    s.now(),
		Metadata:     models.TrashMetadata{MemberIDs: members},
	}
	if t == models.ItemFolder {
		item.OriginalFolder = label
	} else {
		item.OriginalCategory = label
	}
	ix, err := s.readIndex(ctx, b)
	if err != nil {
		return nil, err
	}
	ix.Items = append(ix.Items, item)
	if err := s.writeIndex(ctx, b, ix); err != nil {
		return nil, err
	}
	forget(label)
	s.logger.Info("trash: moved container to trash",
		slog.String("type", string(t)),
		slog.String("label", label),
		slog.Int("members", len(members)))
	return &item, nil
}

// List returns the trash, newest first. It also repairs what an interrupted
// move can leave behind: an entry whose item is still active is dropped
// together with its copy, and copies without an entry are deleted.
func (s *Service) List(ctx context.Context) ([]models.TrashedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.notes.Backend()
	ix, err := s.readIndex(ctx, b)
	if err != nil {
		return nil, err
	}
	if s.notes.Ready() {
		if s.reconcileLocked(ctx, b, ix) {
			if err := s.writeIndex(ctx, b, ix); err != nil {
				s.logger.Warn("trash: could not save reconciled index", slog.String("error", err.Error()))
			}
		}
	}
	out := slices.Clone(ix.Items)
	slices.SortStableFunc(out, func(a, b models.TrashedItem) int {
		return b.DeletedAt.Compare(a.DeletedAt)
	})
	return out, nil
}

func (s *Service) active(t models.ItemType, id string) bool {
	switch t {
	case models.ItemNote:
		_, ok := s.notes.GetNoteByID(id)
		return ok
	case models.ItemFlow:
		_, ok := s.notes.GetFlowByID(id)
		return ok
	}
	return false
}

func (s *Service) reconcileLocked(ctx context.Context, b storage.Backend, ix *models.TrashIndex) bool {
	changed := false
	kept := ix.Items[:0:0]
	entries := map[models.ItemType]map[string]bool{
		models.ItemNote: {},
		models.ItemFlow: {},
	}
	for _, item := range ix.Items {
		if !item.Type.IsContainer() && s.active(item.Type, item.ID) {
			s.logger.Warn("trash: item is still active, dropping its trash entry",
				slog.String("type", string(item.Type)), slog.String("id", item.ID))
			s.deleteArtifact(ctx, b, item.Type, item.ID)
			changed = true
			continue
		}
		if set, ok := entries[item.Type]; ok {
			set[item.ID] = true
		}
		kept = append(kept, item)
	}
	ix.Items = kept

	for t, known := range entries {
		ids, err := b.ListArtifacts(ctx, t)
		if err != nil {
			s.logger.Warn("trash: list trash copies failed", slog.String("type", string(t)), slog.String("error", err.Error()))
			continue
		}
		for _, id := range ids {
			if !known[id] {
				s.logger.Warn("trash: removing trash copy without index entry",
					slog.String("type", string(t)), slog.String("id", id))
				s.deleteArtifact(ctx, b, t, id)
			}
		}
	}
	return changed
}

func (s *Service) deleteArtifact(ctx context.Context, b storage.Backend, t models.ItemType, id string) {
	if err := b.DeleteArtifact(ctx, t, id); err != nil {
		s.logger.Warn("trash: delete trash copy failed",
			slog.String("type", string(t)), slog.String("id", id), slog.String("error", err.Error()))
	}
}

// Restore puts a trashed item back into active storage. Restoring a
// container restores each member still in the trash and re-registers the
// label. An entry whose copy is missing is cleared and reported as not found.
func (s *Service) Restore(ctx context.Context, id string) (*models.TrashedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.notes.Writable(); err != nil {
		return nil, fmt.Errorf("trash: restore %s: %w", id, err)
	}
	b := s.notes.Backend()
	ix, err := s.readIndex(ctx, b)
	if err != nil {
		return nil, err
	}
	i := ix.Find(id)
	if i < 0 {
		return nil, fmt.Errorf("trash: restore %s: %w", id, apperr.ErrNotFound)
	}
	item := ix.Items[i]

	var restoreErr error
	if item.Type.IsContainer() {
		restoreErr = s.restoreContainerLocked(ctx, b, ix, item)
	} else {
		restoreErr = s.restoreItemLocked(ctx, b, ix, item)
	}
	if err := s.writeIndex(ctx, b, ix); err != nil {
		return nil, errors.Join(restoreErr, err)
	}
	s.notes.PublishRefresh()
	if restoreErr != nil {
		return nil, restoreErr
	}
	s.logger.Info("trash: restored", slog.String("type", string(item.Type)), slog.String("id", id))
	return &item, nil
}

// restoreItemLocked drops the copy and the entry only once the item has been
// persisted somewhere; otherwise both stay and the cache is rolled back.
func (s *Service) restoreItemLocked(ctx context.Context, b storage.Backend, ix *models.TrashIndex, item models.TrashedItem) error {
	data, err := b.ReadArtifact(ctx, item.Type, item.ID)
	if err != nil {
		return fmt.Errorf("trash: read copy of %s: %w", item.ID, err)
	}
	if data == nil {
		s.logger.Warn("trash: trash copy missing, treating as already purged",
			slog.String("type", string(item.Type)), slog.String("id", item.ID))
		ix.Remove(item.ID)
		return fmt.Errorf("trash: copy of %s %s: %w", item.Type, item.ID, apperr.ErrNotFound)
	}

	switch item.Type {
	case models.ItemNote:
		var n models.Note
		if err := json.Unmarshal(data, &n); err != nil || n.ID == "" {
			if item.Metadata.Note == nil {
				return fmt.Errorf("trash: decode copy of %s: %w", item.ID, apperr.ErrInvalidInput)
			}
			n = *item.Metadata.Note
		}
		wasActive := s.active(item.Type, n.ID)
		if _, err := s.notes.RestoreNote(n); err != nil {
			return err
		}
		if err := s.notes.FlushDocuments(ctx, storage.DocNotes); err != nil {
			if !wasActive {
				s.notes.DeleteNote(n.ID)
			}
			return fmt.Errorf("trash: restore note %s: %w", item.ID, err)
		}
	case models.ItemFlow:
		var f models.Flow
		if err := json.Unmarshal(data, &f); err != nil || f.ID == "" {
			if item.Metadata.Flow == nil {
				return fmt.Errorf("trash: decode copy of %s: %w", item.ID, apperr.ErrInvalidInput)
			}
			f = *item.Metadata.Flow
		}
		wasActive := s.active(item.Type, f.ID)
		if _, err := s.notes.RestoreFlow(f); err != nil {
			return err
		}
		if err := s.notes.FlushDocuments(ctx, storage.DocFlows); err != nil {
			if !wasActive {
				s.notes.DeleteFlow(f.ID)
			}
			return fmt.Errorf("trash: restore flow %s: %w", item.ID, err)
		}
	default:
		return fmt.Errorf("trash: restore %s: %w", item.Type, apperr.ErrInvalidInput)
	}

	s.deleteArtifact(ctx, b, item.Type, item.ID)
	ix.Remove(item.ID)
	return nil
}

func (s *Service) restoreContainerLocked(ctx context.Context, b storage.Backend, ix *models.TrashIndex, container models.TrashedItem) error {
	for _, memberID := range container.Metadata.MemberIDs {
		j := ix.Find(memberID)
		if j < 0 {
			continue
		}
		err := s.restoreItemLocked(ctx, b, ix, ix.Items[j])
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("trash: restore %s %q: %w", container.Type, container.Title, err)
		}
	}
	var err error
	if container.Type == models.ItemFolder {
		err = s.notes.RegisterFolder(container.Title)
	} else {
		err = s.notes.RegisterCategory(container.Title)
	}
	if err != nil {
		return fmt.Errorf("trash: restore %s %q: %w", container.Type, container.Title, err)
	}
	ix.Remove(container.ID)
	return nil
}

// PermanentlyDelete purges one entry and its copy. A container purges its
// members still in the trash as well.
func (s *Service) PermanentlyDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.notes.Backend()
	ix, err := s.readIndex(ctx, b)
	if err != nil {
		return err
	}
	i := ix.Find(id)
	if i < 0 {
		return fmt.Errorf("trash: delete %s: %w", id, apperr.ErrNotFound)
	}
	item := ix.Items[i]
	if item.Type.IsContainer() {
		for _, memberID := range item.Metadata.MemberIDs {
			j := ix.Find(memberID)
			if j < 0 {
				continue
			}
			if err := s.purgeLocked(ctx, b, ix, ix.Items[j]); err != nil {
				if werr := s.writeIndex(ctx, b, ix); werr != nil {
					return errors.Join(err, werr)
				}
				return err
			}
		}
	}
	if err := s.purgeLocked(ctx, b, ix, item); err != nil {
		return err
	}
	return s.writeIndex(ctx, b, ix)
}

func (s *Service) purgeLocked(ctx context.Context, b storage.Backend, ix *models.TrashIndex, item models.TrashedItem) error {
	if !item.Type.IsContainer() {
		if err := b.DeleteArtifact(ctx, item.Type, item.ID); err != nil {
			return fmt.Errorf("trash: purge %s %s: %w", item.Type, item.ID, err)
		}
	}
	ix.Remove(item.ID)
	return nil
}

// EmptyResult reports what EmptyTrash removed.
type EmptyResult struct {
	Removed int      `json:"removed"`
	Failed  []string `json:"failed,omitempty"`
}

// EmptyTrash purges every entry. A failing entry is logged and kept; the
// rest are still purged and the saved index lists exactly what remains.
func (s *Service) EmptyTrash(ctx context.Context) (EmptyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.notes.Backend()
	ix, err := s.readIndex(ctx, b)
	if err != nil {
		return EmptyResult{}, err
	}
	var res EmptyResult
	for _, item := range slices.Clone(ix.Items) {
		if err := s.purgeLocked(ctx, b, ix, item); err != nil {
			s.logger.Error("trash: purge failed, keeping entry",
				slog.String("id", item.ID), slog.String("error", err.Error()))
			res.Failed = append(res.Failed, item.ID)
			continue
		}
		res.Removed++
	}
	if err := s.writeIndex(ctx, b, ix); err != nil {
		return res, err
	}
	return res, nil
}
