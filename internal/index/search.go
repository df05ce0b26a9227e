package index

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/flownote/internal/apperr"
	"github.com/starford/flownote/internal/models"
	"github.com/starford/flownote/internal/parser"
)

// NoteSource hands out the current notes.
type NoteSource interface {
	GetNotes() []models.Note
}

// Searcher answers queries over a NoteSource, syncing the index lazily
// before each query.
type Searcher struct {
	mu     sync.Mutex
	db     NoteIndex
	src    NoteSource
	logger *slog.Logger
}

// NewSearcher creates a Searcher.
func NewSearcher(db NoteIndex, src NoteSource, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{db: db, src: src, logger: logger}
}

// Search returns up to limit notes matching q.
func (s *Searcher) Search(ctx context.Context, q string, limit int) ([]SearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperr.ErrInvalidInput
	}
	if _, err := s.sync(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Search(q, limit)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []SearchResult{}
	}
	return res, nil
}

// Backlinks returns the notes that link to the note with the given id.
func (s *Searcher) Backlinks(ctx context.Context, noteID string) ([]models.Note, error) {
	notes, err := s.sync(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}
	target, ok := byID[noteID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	title := parser.Analyze(target).Title
	if title == "" {
		return []models.Note{}, nil
	}

	s.mu.Lock()
	ids, err := s.db.Backlinks(title)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]models.Note, 0, len(ids))
	for _, id := range ids {
		if n, ok := byID[id]; ok && id != noteID {
			out = append(out, n)
		}
	}
	return out, nil
}

// Close closes the underlying index.
func (s *Searcher) Close() error {
	return s.db.Close()
}

func (s *Searcher) sync(ctx context.Context) ([]models.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	notes := s.src.GetNotes()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := Sync(s.db, notes, s.logger); err != nil {
		return nil, err
	}
	return notes, nil
}
