package noteservice

import (
	"context"
	"fmt"
	"slices"

	"github.com/starford/flownote/internal/apperr"
	"github.com/starford/flownote/internal/models"
	"github.com/starford/flownote/internal/storage"
)

// FlowInput holds the caller-settable fields of a new flow.
type FlowInput struct {
	Title    string            `json:"title"`
	Category string            `json:"category,omitempty"`
	Nodes    []models.FlowNode `json:"nodes"`
	Edges    []models.FlowEdge `json:"edges"`
}

// NodeRef describes the note a flow node points at.
type NodeRef struct {
	NodeID      string `json:"nodeId"`
	NoteID      string `json:"noteId"`
	Label       string `json:"label"`
	NoteDeleted bool   `json:"noteDeleted"`
}

// GetFlows returns every cached flow.
func (s *Service) GetFlows() []models.Flow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFlows(s.flows)
}

// GetFlowByID returns the cached flow with id.
func (s *Service) GetFlowByID(id string) (models.Flow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.flowIndexLocked(id); i >= 0 {
		return cloneFlow(s.flows[i]), true
	}
	return models.Flow{}, false
}

// FlowsInCategory returns the flows labelled category.
func (s *Service) FlowsInCategory(category string) []models.Flow {
	category = models.NormalizeLabel(category)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Flow
	for _, f := range s.flows {
		if f.Category == category {
			out = append(out, cloneFlow(f))
		}
	}
	return out
}

func (s *Service) flowIndexLocked(id string) int {
	for i := range s.flows {
		if s.flows[i].ID == id {
			return i
		}
	}
	return -1
}

// FlowNodeRefs resolves every node of a flow against the notes in the cache.
// Nodes whose note no longer exists are reported with NoteDeleted set.
func (s *Service) FlowNodeRefs(flowID string) ([]NodeRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.flowIndexLocked(flowID)
	if i < 0 {
		return nil, notFound("flow", flowID)
	}
	refs := make([]NodeRef, 0, len(s.flows[i].Nodes))
	for _, node := range s.flows[i].Nodes {
		ref := NodeRef{NodeID: node.ID, NoteID: node.NoteID, Label: node.Label}
		if j := s.noteIndexLocked(node.NoteID); j >= 0 {
			ref.Label = s.notes[j].Title
		} else {
			ref.NoteDeleted = true
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// CreateFlow adds a flow with a fresh id.
func (s *Service) CreateFlow(in FlowInput) (models.Flow, error) {
	now := s.now()
	f := models.Flow{
		ID:        s.newID(),
		Title:     in.Title,
		Category:  models.NormalizeLabel(in.Category),
		Nodes:     nonNil(slices.Clone(in.Nodes)),
		Edges:     nonNil(slices.Clone(in.Edges)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.Validate(); err != nil {
		return models.Flow{}, fmt.Errorf("noteservice: create flow: %w: %w", apperr.ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return models.Flow{}, err
	}
	s.flows = append(s.flows, f)
	s.persistLocked(storage.DocFlows)
	return cloneFlow(f), nil
}

// SaveFlow stores f, replacing the flow with the same id or adding it.
func (s *Service) SaveFlow(f models.Flow) (models.Flow, error) {
	if err := f.Validate(); err != nil {
		return models.Flow{}, fmt.Errorf("noteservice: save flow: %w: %w", apperr.ErrInvalidInput, err)
	}
	f = cloneFlow(f)
	f.Category = models.NormalizeLabel(f.Category)
	f.Nodes, f.Edges = nonNil(f.Nodes), nonNil(f.Edges)
	now := s.now()
	f.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return models.Flow{}, err
	}
	if i := s.flowIndexLocked(f.ID); i >= 0 {
		f.CreatedAt = s.flows[i].CreatedAt
		s.flows[i] = f
	} else {
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		s.flows = append(s.flows, f)
	}
	s.persistLocked(storage.DocFlows)
	return cloneFlow(f), nil
}

// DeleteFlow removes a flow from active storage and reports whether it existed.
func (s *Service) DeleteFlow(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.flowIndexLocked(id)
	if i < 0 {
		return false
	}
	s.flows = append(s.flows[:i:i], s.flows[i+1:]...)
	s.persistLocked(storage.DocFlows)
	return true
}

// SetFlowCategory moves a flow into category; empty means uncategorised.
func (s *Service) SetFlowCategory(id, category string) (models.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return models.Flow{}, err
	}
	i := s.flowIndexLocked(id)
	if i < 0 {
		return models.Flow{}, notFound("flow", id)
	}
	s.flows[i].Category = models.NormalizeLabel(category)
	s.flows[i].UpdatedAt = s.now()
	s.persistLocked(storage.DocFlows)
	return cloneFlow(s.flows[i]), nil
}

// RestoreFlow puts a trashed flow back under its original id and
// re-registers its category.
func (s *Service) RestoreFlow(f models.Flow) (models.Flow, error) {
	if err := f.Validate(); err != nil {
		return models.Flow{}, fmt.Errorf("noteservice: restore flow: %w: %w", apperr.ErrInvalidInput, err)
	}
	f = cloneFlow(f)
	f.Category = models.NormalizeLabel(f.Category)
	f.Nodes, f.Edges = nonNil(f.Nodes), nonNil(f.Edges)
	f.UpdatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return models.Flow{}, err
	}
	if i := s.flowIndexLocked(f.ID); i >= 0 {
		s.flows[i] = f
	} else {
		s.flows = append(s.flows, f)
	}
	s.persistLocked(storage.DocFlows)
	if f.Category != "" {
		var added bool
		if s.categories, added = addLabel(s.categories, f.Category); added {
			s.persistLocked(storage.DocCategories)
		}
	}
	return cloneFlow(f), nil
}

// GetAllCategories returns registered categories plus every category in use, sorted.
func (s *Service) GetAllCategories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allCategoriesLocked()
}

func (s *Service) allCategoriesLocked() []string {
	return unionLabels(s.categories, func(yield func(string)) {
		for _, f := range s.flows {
			yield(f.Category)
		}
	})
}

// CreateCategory registers an empty category.
func (s *Service) CreateCategory(name string) (string, error) {
	name = models.NormalizeLabel(name)
	if name == "" {
		return "", invalid("empty category name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return "", err
	}
	var added bool
	if s.categories, added = addLabel(s.categories, name); !added {
		return "", fmt.Errorf("noteservice: category %q: %w", name, apperr.ErrAlreadyExists)
	}
	s.persistLocked(storage.DocCategories)
	return name, nil
}

// RenameCategory relabels every flow in from and the registry entry. It
// returns the number of flows moved.
func (s *Service) RenameCategory(from, to string) (int, error) {
	from, to = models.NormalizeLabel(from), models.NormalizeLabel(to)
	if from == "" || to == "" {
		return 0, invalid("empty category name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return 0, err
	}
	if !slices.Contains(s.allCategoriesLocked(), from) {
		return 0, notFound("category", from)
	}
	if from == to {
		return 0, nil
	}
	now := s.now()
	count := 0
	for i := range s.flows {
		if s.flows[i].Category == from {
			s.flows[i].Category = to
			s.flows[i].UpdatedAt = now
			count++
		}
	}
	registry, removed := removeLabel(s.categories, from)
	if removed {
		registry, _ = addLabel(registry, to)
	}
	s.categories = registry
	if count > 0 {
		s.persistLocked(storage.DocFlows)
	}
	if removed {
		s.persistLocked(storage.DocCategories)
	}
	return count, nil
}

// DeleteCategory removes a category; see DeleteFolder for the modes.
func (s *Service) DeleteCategory(name string, mode DeleteMode) (int, error) {
	name = models.NormalizeLabel(name)
	if name == "" {
		return 0, invalid("empty category name")
	}
	if !mode.Valid() {
		return 0, invalid("delete mode %q", mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return 0, err
	}
	if !slices.Contains(s.allCategoriesLocked(), name) {
		return 0, notFound("category", name)
	}
	now := s.now()
	count := 0
	kept := s.flows[:0:0]
	for _, f := range s.flows {
		if f.Category != name {
			kept = append(kept, f)
			continue
		}
		count++
		if mode == MoveToUnfiled {
			f.Category = ""
			f.UpdatedAt = now
			kept = append(kept, f)
		}
	}
	s.flows = kept
	if count > 0 {
		s.persistLocked(storage.DocFlows)
	}
	var removed bool
	if s.categories, removed = removeLabel(s.categories, name); removed {
		s.persistLocked(storage.DocCategories)
	}
	return count, nil
}

// ForgetCategory drops name from the category registry without touching flows.
func (s *Service) ForgetCategory(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed bool
	if s.categories, removed = removeLabel(s.categories, models.NormalizeLabel(name)); removed {
		s.persistLocked(storage.DocCategories)
	}
}

// RegisterCategory adds name to the registry if missing.
func (s *Service) RegisterCategory(name string) error {
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
	if s.categories, added = addLabel(s.categories, name); added {
		s.persistLocked(storage.DocCategories)
	}
	return nil
}

// ImportFlows merges flows into the cache by id and broadcasts storage-refresh.
func (s *Service) ImportFlows(_ context.Context, flows []models.Flow) (int, error) {
	now := s.now()
	prepared := make([]models.Flow, 0, len(flows))
	for _, f := range flows {
		if f.ID == "" {
			f.ID = s.newID()
		}
		if err := f.Validate(); err != nil {
			return 0, fmt.Errorf("noteservice: import flow %s: %w: %w", f.ID, apperr.ErrInvalidInput, err)
		}
		f = cloneFlow(f)
		f.Category = models.NormalizeLabel(f.Category)
		f.Nodes, f.Edges = nonNil(f.Nodes), nonNil(f.Edges)
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		if f.UpdatedAt.IsZero() {
			f.UpdatedAt = now
		}
		prepared = append(prepared, f)
	}

	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	for _, f := range prepared {
		if i := s.flowIndexLocked(f.ID); i >= 0 {
			s.flows[i] = f
		} else {
			s.flows = append(s.flows, f)
		}
	}
	s.persistLocked(storage.DocFlows)
	s.mu.Unlock()

	s.publish()
	return len(prepared), nil
}
