package api

import (
	"net/http"
)

// ListTrash handles GET /api/trash.
//
//	@Summary		List trash entries, newest first
//	@Tags			trash
//	@Produce		json
//	@Success		200	{object}	TrashListResponse
//	@Failure		409	{object}	errResponse	"Directory unavailable"
//	@Security		BearerAuth
//	@Router			/trash [get]
func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	items, err := h.trash.List(r.Context())
	if err != nil {
		writeError(w, "list trash", err)
		return
	}
	if items == nil {
		items = []TrashedItem{}
	}
	writeJSON(w, http.StatusOK, TrashListResponse{Items: items})
}

// RestoreFromTrash handles POST /api/trash/{id}/restore.
//
//	@Summary		Restore a trash entry to its original place
//	@Tags			trash
//	@Produce		json
//	@Param			id	path		string	true	"Trash entry id"
//	@Success		200	{object}	TrashedItem
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/trash/{id}/restore [post]
func (h *Handler) RestoreFromTrash(w http.ResponseWriter, r *http.Request) {
	item, err := h.trash.Restore(r.Context(), param(r, "id"))
	if err != nil {
		writeError(w, "restore from trash", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteFromTrash handles DELETE /api/trash/{id}.
//
//	@Summary		Permanently delete a trash entry
//	@Tags			trash
//	@Param			id	path	string	true	"Trash entry id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/trash/{id} [delete]
func (h *Handler) DeleteFromTrash(w http.ResponseWriter, r *http.Request) {
	if err := h.trash.PermanentlyDelete(r.Context(), param(r, "id")); err != nil {
		writeError(w, "delete from trash", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EmptyTrash handles DELETE /api/trash.
//
//	@Summary		Permanently delete every trash entry
//	@Tags			trash
//	@Produce		json
//	@Success		200	{object}	EmptyTrashResponse
//	@Security		BearerAuth
//	@Router			/trash [delete]
func (h *Handler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	res, err := h.trash.EmptyTrash(r.Context())
	if err != nil {
		writeError(w, "empty trash", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
