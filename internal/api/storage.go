package api

import (
	"net/http"

	"github.com/starford/flownote/internal/capability"
)

// StorageStatus handles GET /api/storage.
//
//	@Summary		Report the active backend and directory access state
//	@Tags			storage
//	@Produce		json
//	@Success		200	{object}	StorageStatus
//	@Security		BearerAuth
//	@Router			/storage [get]
func (h *Handler) StorageStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.storage.Status(r.Context()))
}

// Connect handles POST /api/storage/connect. The request itself is the user
// gesture; an empty path means the user dismissed the picker.
//
//	@Summary		Connect a directory and move local data into it
//	@Tags			storage
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConnectRequest	true	"Picked directory"
//	@Success		200		{object}	ConnectResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/storage/connect [post]
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := capability.WithGesture(r.Context(), req.Path)
	res, err := h.storage.Connect(ctx, req.Name)
	if err != nil {
		writeError(w, "connect directory", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RestoreAccess handles POST /api/storage/restore.
//
//	@Summary		Re-grant access to the configured directory
//	@Tags			storage
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConnectRequest	false	"Directory to pick when the stored one is gone"
//	@Success		200		{object}	RestoreResponse
//	@Security		BearerAuth
//	@Router			/storage/restore [post]
func (h *Handler) RestoreAccess(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	ctx := capability.WithGesture(r.Context(), req.Path)
	ok, st, err := h.storage.Restore(ctx)
	if err != nil {
		writeError(w, "restore directory access", err)
		return
	}
	writeJSON(w, http.StatusOK, RestoreResponse{Restored: ok, Status: st})
}

// Disconnect handles POST /api/storage/disconnect.
//
//	@Summary		Forget the directory and use local storage
//	@Tags			storage
//	@Produce		json
//	@Success		200	{object}	StorageStatus
//	@Security		BearerAuth
//	@Router			/storage/disconnect [post]
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	st, err := h.storage.Disconnect(r.Context())
	if err != nil {
		writeError(w, "disconnect directory", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Refresh handles POST /api/storage/refresh.
//
//	@Summary		Reload every collection from the active backend
//	@Tags			storage
//	@Produce		json
//	@Success		200	{object}	StorageStatus
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/storage/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Refresh(r.Context()); err != nil {
		writeError(w, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, h.storage.Status(r.Context()))
}

// GetTheme handles GET /api/theme.
func (h *Handler) GetTheme(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ThemeRequest{Theme: h.notes.GetTheme()})
}

// SetTheme handles PUT /api/theme.
func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.notes.SetTheme(req.Theme); err != nil {
		writeError(w, "set theme", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// Export handles GET /api/export.
//
//	@Summary		Export every note, flow, label and the theme
//	@Tags			data
//	@Produce		json
//	@Success		200	{object}	ExportResponse
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) Export(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.notes.Export())
}

// Import handles POST /api/import. Items with a known id replace the
// existing copy.
//
//	@Summary		Import notes and flows
//	@Tags			data
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ImportRequest	true	"Items to import"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var res ImportResponse
	var err error
	if res.Notes, err = h.notes.ImportNotes(r.Context(), req.Notes); err != nil {
		writeError(w, "import notes", err)
		return
	}
	if res.Flows, err = h.notes.ImportFlows(r.Context(), req.Flows); err != nil {
		writeError(w, "import flows", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
