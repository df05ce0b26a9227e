package api

import (
	"net/http"
	"strconv"
)

const defaultSearchLimit = 20

// Search handles GET /api/search.
//
//	@Summary		Full-text search over notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Query"
//	@Param			limit	query		int		false	"Maximum hits"	default(20)
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody("search is not enabled"))
		return
	}
	q := r.URL.Query().Get("q")
	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		limit = n
	}
	res, err := h.search.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: q, Results: res})
}

// Backlinks handles GET /api/notes/{id}/backlinks.
//
//	@Summary		Notes whose content links to this note by title
//	@Tags			search
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	BacklinksResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody("search is not enabled"))
		return
	}
	notes, err := h.search.Backlinks(r.Context(), param(r, "id"))
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Notes: notes})
}
