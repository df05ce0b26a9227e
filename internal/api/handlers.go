package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/flownote/internal/index"
	"github.com/starford/flownote/internal/noteservice"
	"github.com/starford/flownote/internal/onboarding"
	"github.com/starford/flownote/internal/trash"
)

// Handler holds API route handlers.
type Handler struct {
	notes   *noteservice.Service
	trash   *trash.Service
	storage *onboarding.Service
	search  *index.Searcher
}

// NewHandler creates a new Handler.
func NewHandler(svc Services) *Handler {
	return &Handler{notes: svc.Notes, trash: svc.Trash, storage: svc.Storage, search: svc.Search}
}

// param returns a decoded URL parameter. Labels may contain encoded slashes
// and spaces.
func param(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, optionally only those in one folder
//	@Tags			notes
//	@Produce		json
//	@Param			folder	query		string	false	"Folder filter; empty selects unfiled notes"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var notes []Note
	if q.Has("folder") {
		notes = h.notes.NotesInFolder(q.Get("folder"))
	} else {
		notes = h.notes.GetNotes()
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note by id
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, ok := h.notes.GetNoteByID(param(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.notes.CreateNote(req)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// SaveNote handles PUT /api/notes/{id}.
//
//	@Summary		Replace a note, creating it when absent
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string	true	"Note id"
//	@Param			body	body		Note	true	"Note"
//	@Success		200		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	var n Note
	if !decodeJSON(w, r, &n) {
		return
	}
	n.ID = param(r, "id")
	saved, err := h.notes.SaveNote(n)
	if err != nil {
		writeError(w, "save note", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// TrashNote handles DELETE /api/notes/{id}. The note is moved to the trash;
// deleting a note that is already gone is a no-op.
//
//	@Summary		Move a note to the trash
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	TrashedItem
//	@Success		204
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) TrashNote(w http.ResponseWriter, r *http.Request) {
	item, err := h.trash.MoveNoteToTrash(r.Context(), param(r, "id"))
	writeTrashed(w, "trash note", item, err)
}

// SetNoteFolder handles PUT /api/notes/{id}/folder.
//
//	@Summary		Move a note into a folder
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Note id"
//	@Param			body	body		AssignRequest	true	"Target folder"
//	@Success		200		{object}	Note
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/folder [put]
func (h *Handler) SetNoteFolder(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.notes.SetNoteFolder(param(r, "id"), req.Name)
	if err != nil {
		writeError(w, "set note folder", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// ListFolders handles GET /api/folders.
//
//	@Summary		List folders, including empty ones
//	@Tags			folders
//	@Produce		json
//	@Success		200	{object}	LabelListResponse
//	@Security		BearerAuth
//	@Router			/folders [get]
func (h *Handler) ListFolders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LabelListResponse{Labels: h.notes.GetAllFolders()})
}

// CreateFolder handles POST /api/folders.
//
//	@Summary		Create an empty folder
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LabelRequest	true	"Folder"
//	@Success		201		{object}	LabelRequest
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [post]
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req LabelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name, err := h.notes.CreateFolder(req.Name)
	if err != nil {
		writeError(w, "create folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, LabelRequest{Name: name})
}

// RenameFolder handles PUT /api/folders/{name}.
//
//	@Summary		Rename a folder and move its notes
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Current folder name"
//	@Param			body	body		LabelRequest	true	"New name"
//	@Success		200		{object}	CountResponse
//	@Security		BearerAuth
//	@Router			/folders/{name} [put]
func (h *Handler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	var req LabelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.notes.RenameFolder(param(r, "name"), req.Name)
	if err != nil {
		writeError(w, "rename folder", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Affected: n})
}

// DeleteFolder handles DELETE /api/folders/{name}.
//
//	@Summary		Delete a folder
//	@Tags			folders
//	@Produce		json
//	@Param			name	path		string	true	"Folder name"
//	@Param			mode	query		string	false	"What happens to contained notes"	Enums(move-to-unfiled, delete-contained-items)
//	@Success		200		{object}	CountResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{name} [delete]
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	n, err := h.notes.DeleteFolder(param(r, "name"), deleteMode(r))
	if err != nil {
		writeError(w, "delete folder", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Affected: n})
}

// TrashFolder handles POST /api/folders/{name}/trash.
//
//	@Summary		Move a folder and its notes to the trash
//	@Tags			folders
//	@Produce		json
//	@Param			name	path		string	true	"Folder name"
//	@Success		200		{object}	TrashedItem
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{name}/trash [post]
func (h *Handler) TrashFolder(w http.ResponseWriter, r *http.Request) {
	item, err := h.trash.MoveFolderToTrash(r.Context(), param(r, "name"))
	writeTrashed(w, "trash folder", item, err)
}

func deleteMode(r *http.Request) noteservice.DeleteMode {
	mode := noteservice.DeleteMode(r.URL.Query().Get("mode"))
	if mode == "" {
		return noteservice.MoveToUnfiled
	}
	return mode
}

func writeTrashed(w http.ResponseWriter, op string, item *TrashedItem, err error) {
	if err != nil {
		writeError(w, op, err)
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
