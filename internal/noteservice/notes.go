package noteservice

import (
	"context"
	"fmt"
	"slices"

	"github.com/starford/flownote/internal/apperr"
	"github.com/starford/flownote/internal/models"
	"github.com/starford/flownote/internal/storage"
)

// NoteInput holds the caller-settable fields of a new note.
type NoteInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Folder  string `json:"folder,omitempty"`
}

// GetNotes returns every cached note.
func (s *Service) GetNotes() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneNotes(s.notes)
}

// GetNoteByID returns the cached note with id.
func (s *Service) GetNoteByID(id string) (models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.noteIndexLocked(id); i >= 0 {
		return s.notes[i], true
	}
	return models.Note{}, false
}

// NotesInFolder returns the notes labelled folder.
func (s *Service) NotesInFolder(folder string) []models.Note {
	folder = models.NormalizeLabel(folder)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Note
	for _, n := range s.notes {
		if n.Folder == folder {
			out = append(out, n)
		}
	}
	return out
}

func (s *Service) noteIndexLocked(id string) int {
	for i := range s.notes {
		if s.notes[i].ID == id {
			return i
		}
	}
	return -1
}

// CreateNote adds a note with a fresh id.
func (s *Service) CreateNote(in NoteInput) (models.Note, error) {
	now := s.now()
	n := models.Note{
		ID:        s.newID(),
		Title:     in.Title,
		Content:   in.Content,
		Folder:    models.NormalizeLabel(in.Folder),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := n.Validate(); err != nil {
		return models.Note{}, fmt.Errorf("noteservice: create note: %w: %w", apperr.ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return models.Note{}, err
	}
	s.notes = append(s.notes, n)
	s.persistLocked(storage.DocNotes)
	return n, nil
}

// SaveNote stores n, replacing the note with the same id or adding it.
// CreatedAt of an existing note is kept; UpdatedAt is refreshed.
func (s *Service) SaveNote(n models.Note) (models.Note, error) {
	if err := n.Validate(); err != nil {
		return models.Note{}, fmt.Errorf("noteservice: save note: %w: %w", apperr.ErrInvalidInput, err)
	}
	n.Folder = models.NormalizeLabel(n.Folder)
	now := s.now()
	n.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return models.Note{}, err
	}
	if i := s.noteIndexLocked(n.ID); i >= 0 {
		n.CreatedAt = s.notes[i].CreatedAt
		s.notes[i] = n
	} else {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		s.notes = append(s.notes, n)
	}
	s.persistLocked(storage.DocNotes)
	return n, nil
}

// DeleteNote removes a note from active storage and reports whether it
// existed. Flow nodes referencing it are left in place.
func (s *Service) DeleteNote(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.noteIndexLocked(id)
	if i < 0 {
		return false
	}
	s.notes = append(s.notes[:i:i], s.notes[i+1:]...)
	s.persistLocked(storage.DocNotes)
	return true
}

// SetNoteFolder moves a note into folder; an empty folder means unfiled.
func (s *Service) SetNoteFolder(id, folder string) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return models.Note{}, err
	}
	i := s.noteIndexLocked(id)
	if i < 0 {
		return models.Note{}, notFound("note", id)
	}
	s.notes[i].Folder = models.NormalizeLabel(folder)
	s.notes[i].UpdatedAt = s.now()
	s.persistLocked(storage.DocNotes)
	return s.notes[i], nil
}

// RestoreNote puts a trashed note back under its original id and re-registers
// its folder.
func (s *Service) RestoreNote(n models.Note) (models.Note, error) {
	if err := n.Validate(); err != nil {
		return models.Note{}, fmt.Errorf("noteservice: restore note: %w: %w", apperr.ErrInvalidInput, err)
	}
	n.Folder = models.NormalizeLabel(n.Folder)
	n.UpdatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return models.Note{}, err
	}
	if i := s.noteIndexLocked(n.ID); i >= 0 {
		s.notes[i] = n
	} else {
		s.notes = append(s.notes, n)
	}
	s.persistLocked(storage.DocNotes)
	if n.Folder != "" {
		var added bool
		if s.folders, added = addLabel(s.folders, n.Folder); added {
			s.persistLocked(storage.DocFolders)
		}
	}
	return n, nil
}

// GetAllFolders returns registered folders plus every folder in use, sorted.
func (s *Service) GetAllFolders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allFoldersLocked()
}

func (s *Service) allFoldersLocked() []string {
	return unionLabels(s.folders, func(yield func(string)) {
		for _, n := range s.notes {
			yield(n.Folder)
		}
	})
}

// CreateFolder registers an empty folder.
func (s *Service) CreateFolder(name string) (string, error) {
	name = models.NormalizeLabel(name)
	if name == "" {
		return "", invalid("empty folder name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return "", err
	}
	var added bool
	if s.folders, added = addLabel(s.folders, name); !added {
		return "", fmt.Errorf("noteservice: folder %q: %w", name, apperr.ErrAlreadyExists)
	}
	s.persistLocked(storage.DocFolders)
	return name, nil
}

// RenameFolder relabels every note in from and the registry entry. Renaming
// onto an existing folder merges the two. It returns the number of notes moved.
func (s *Service) RenameFolder(from, to string) (int, error) {
	from, to = models.NormalizeLabel(from), models.NormalizeLabel(to)
	if from == "" || to == "" {
		return 0, invalid("empty folder name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return 0, err
	}
	if !slices.Contains(s.allFoldersLocked(), from) {
		return 0, notFound("folder", from)
	}
	if from == to {
		return 0, nil
	}
	now := s.now()
	count := 0
	for i := range s.notes {
		if s.notes[i].Folder == from {
			s.notes[i].Folder = to
			s.notes[i].UpdatedAt = now
			count++
		}
	}
	registry, removed := removeLabel(s.folders, from)
	if removed {
		registry, _ = addLabel(registry, to)
	}
	s.folders = registry
	if count > 0 {
		s.persistLocked(storage.DocNotes)
	}
	if removed {
		s.persistLocked(storage.DocFolders)
	}
	return count, nil
}

// DeleteFolder removes a folder. DeleteContainedItems removes its notes
// outright; MoveToUnfiled clears their folder. It returns the number of
// notes affected.
func (s *Service) DeleteFolder(name string, mode DeleteMode) (int, error) {
	name = models.NormalizeLabel(name)
	if name == "" {
		return 0, invalid("empty folder name")
	}
	if !mode.Valid() {
		return 0, invalid("delete mode %q", mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return 0, err
	}
	if !slices.Contains(s.allFoldersLocked(), name) {
		return 0, notFound("folder", name)
	}
	now := s.now()
	count := 0
	kept := s.notes[:0:0]
	for _, n := range s.notes {
		if n.Folder != name {
			kept = append(kept, n)
			continue
		}
		count++
		if mode == MoveToUnfiled {
			n.Folder = ""
			n.UpdatedAt = now
			kept = append(kept, n)
		}
	}
	s.notes = kept
	if count > 0 {
		s.persistLocked(storage.DocNotes)
	}
	var removed bool
	if s.folders, removed = removeLabel(s.folders, name); removed {
		s.persistLocked(storage.DocFolders)
	}
	return count, nil
}

// ForgetFolder drops name from the folder registry without touching notes.
func (s *Service) ForgetFolder(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed bool
	if s.folders, removed = removeLabel(s.folders, models.NormalizeLabel(name)); removed {
		s.persistLocked(storage.DocFolders)
	}
}

// RegisterFolder adds name to the registry if missing.
func (s *Service) RegisterFolder(name string) error {
	name = models.NormalizeLabel(name)
	if name == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return err
	}
	var added bool
	if s.folders, added = addLabel(s.folders, name); added {
		s.persistLocked(storage.DocFolders)
	}
	return nil
}

// ImportNotes merges notes into the cache by id, replacing existing notes,
// and broadcasts storage-refresh. Notes without an id get a fresh one.
func (s *Service) ImportNotes(_ context.Context, notes []models.Note) (int, error) {
	now := s.now()
	prepared := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if n.ID == "" {
			n.ID = s.newID()
		}
		if err := n.Validate(); err != nil {
			return 0, fmt.Errorf("noteservice: import note %s: %w: %w", n.ID, apperr.ErrInvalidInput, err)
		}
		n.Folder = models.NormalizeLabel(n.Folder)
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		if n.UpdatedAt.IsZero() {
			n.UpdatedAt = now
		}
		prepared = append(prepared, n)
	}

	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	for _, n := range prepared {
		if i := s.noteIndexLocked(n.ID); i >= 0 {
			s.notes[i] = n
		} else {
			s.notes = append(s.notes, n)
		}
	}
	s.persistLocked(storage.DocNotes)
	s.mu.Unlock()

	s.publish()
	return len(prepared), nil
}
