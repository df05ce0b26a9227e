package api

import (
	"github.com/starford/flownote/internal/index"
	"github.com/starford/flownote/internal/models"
	"github.com/starford/flownote/internal/noteservice"
	"github.com/starford/flownote/internal/onboarding"
	"github.com/starford/flownote/internal/trash"
)

// Note is the note response type (aliased from the domain layer).
type Note = models.Note

// Flow is the flow response type (aliased from the domain layer).
type Flow = models.Flow

// TrashedItem is a trash entry (aliased from the domain layer).
type TrashedItem = models.TrashedItem

// StorageStatus is the storage banner state (aliased from the onboarding layer).
type StorageStatus = onboarding.Status

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest = noteservice.NoteInput

// CreateFlowRequest is the request body for creating a flow.
type CreateFlowRequest = noteservice.FlowInput

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []Note `json:"notes" validate:"required"`
	Total int    `json:"total" example:"42" validate:"required"`
}

// FlowListResponse wraps flow listings.
type FlowListResponse struct {
	Flows []Flow `json:"flows" validate:"required"`
	Total int    `json:"total" example:"3" validate:"required"`
}

// FlowNodesResponse lists the notes a flow points at.
type FlowNodesResponse struct {
	Nodes []noteservice.NodeRef `json:"nodes" validate:"required"`
}

// LabelRequest names a folder or category.
type LabelRequest struct {
	Name string `json:"name" example:"Work" validate:"required"`
}

// LabelListResponse lists folders or categories.
type LabelListResponse struct {
	Labels []string `json:"labels" validate:"required"`
}

// AssignRequest moves an item into a folder or category. Empty means unfiled.
type AssignRequest struct {
	Name string `json:"name" example:"Work"`
}

// CountResponse reports how many items an operation touched.
type CountResponse struct {
	Affected int `json:"affected" example:"3"`
}

// ThemeRequest sets the theme.
type ThemeRequest struct {
	Theme string `json:"theme" example:"darker" validate:"required"`
}

// TrashListResponse lists trash entries newest first.
type TrashListResponse struct {
	Items []TrashedItem `json:"items" validate:"required"`
}

// EmptyTrashResponse reports an empty-trash run.
type EmptyTrashResponse = trash.EmptyResult

// ConnectRequest carries the directory the user picked. An empty path means
// the picker was dismissed.
type ConnectRequest struct {
	Path string `json:"path" example:"/home/me/flownote"`
	Name string `json:"name,omitempty" example:"flownote"`
}

// ConnectResponse reports a connect attempt.
type ConnectResponse = onboarding.ConnectResult

// RestoreResponse reports a gesture restore.
type RestoreResponse struct {
	Restored bool          `json:"restored"`
	Status   StorageStatus `json:"status"`
}

// ImportRequest carries notes and flows to merge into the store.
type ImportRequest struct {
	Notes []Note `json:"notes"`
	Flows []Flow `json:"flows"`
}

// ImportResponse reports how many items were imported.
type ImportResponse struct {
	Notes int `json:"notes"`
	Flows int `json:"flows"`
}

// ExportResponse is a full copy of the cached collections.
type ExportResponse = noteservice.Snapshot

// SearchResult is one search hit (aliased from the index layer).
type SearchResult = index.SearchResult

// SearchResponse wraps search hits.
type SearchResponse struct {
	Query   string         `json:"query" example:"meeting"`
	Results []SearchResult `json:"results" validate:"required"`
}

// BacklinksResponse lists the notes linking to a note.
type BacklinksResponse struct {
	Notes []Note `json:"notes" validate:"required"`
}
