package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/flownote/internal/index"
	"github.com/starford/flownote/internal/noteservice"
	"github.com/starford/flownote/internal/onboarding"
	"github.com/starford/flownote/internal/trash"
)

// Services are the domain services behind the API.
type Services struct {
	Notes   *noteservice.Service
	Trash   *trash.Service
	Storage *onboarding.Service
	Search  *index.Searcher
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc Services, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.SaveNote)
	r.Delete("/notes/{id}", h.TrashNote)
	r.Put("/notes/{id}/folder", h.SetNoteFolder)
	r.Get("/notes/{id}/backlinks", h.Backlinks)

	// Search.
	r.Get("/search", h.Search)

	// Folders.
	r.Get("/folders", h.ListFolders)
	r.Post("/folders", h.CreateFolder)
	r.Put("/folders/{name}", h.RenameFolder)
	r.Delete("/folders/{name}", h.DeleteFolder)
	r.Post("/folders/{name}/trash", h.TrashFolder)

	// Flows.
	r.Get("/flows", h.ListFlows)
	r.Post("/flows", h.CreateFlow)
	r.Get("/flows/{id}", h.GetFlow)
	r.Put("/flows/{id}", h.SaveFlow)
	r.Delete("/flows/{id}", h.TrashFlow)
	r.Put("/flows/{id}/category", h.SetFlowCategory)
	r.Get("/flows/{id}/nodes", h.FlowNodes)

	// Categories.
	r.Get("/categories", h.ListCategories)
	r.Post("/categories", h.CreateCategory)
	r.Put("/categories/{name}", h.RenameCategory)
	r.Delete("/categories/{name}", h.DeleteCategory)
	r.Post("/categories/{name}/trash", h.TrashCategory)

	// Theme.
	r.Get("/theme", h.GetTheme)
	r.Put("/theme", h.SetTheme)

	// Trash.
	r.Get("/trash", h.ListTrash)
	r.Delete("/trash", h.EmptyTrash)
	r.Post("/trash/{id}/restore", h.RestoreFromTrash)
	r.Delete("/trash/{id}", h.DeleteFromTrash)

	// Storage lifecycle.
	r.Get("/storage", h.StorageStatus)
	r.Post("/storage/connect", h.Connect)
	r.Post("/storage/restore", h.RestoreAccess)
	r.Post("/storage/disconnect", h.Disconnect)
	r.Post("/storage/refresh", h.Refresh)

	// Bulk data.
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
