package api

import (
	"net/http"
)

// ListFlows handles GET /api/flows.
//
//	@Summary		List flows, optionally only those in one category
//	@Tags			flows
//	@Produce		json
//	@Param			category	query		string	false	"Category filter; empty selects uncategorized flows"
//	@Success		200			{object}	FlowListResponse
//	@Security		BearerAuth
//	@Router			/flows [get]
func (h *Handler) ListFlows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var flows []Flow
	if q.Has("category") {
		flows = h.notes.FlowsInCategory(q.Get("category"))
	} else {
		flows = h.notes.GetFlows()
	}
	writeJSON(w, http.StatusOK, FlowListResponse{Flows: flows, Total: len(flows)})
}

// GetFlow handles GET /api/flows/{id}.
//
//	@Summary		Get a single flow by id
//	@Tags			flows
//	@Produce		json
//	@Param			id	path		string	true	"Flow id"
//	@Success		200	{object}	Flow
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/flows/{id} [get]
func (h *Handler) GetFlow(w http.ResponseWriter, r *http.Request) {
	f, ok := h.notes.GetFlowByID(param(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// CreateFlow handles POST /api/flows.
//
//	@Summary		Create a new flow
//	@Tags			flows
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateFlowRequest	true	"Flow to create"
//	@Success		201		{object}	Flow
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/flows [post]
func (h *Handler) CreateFlow(w http.ResponseWriter, r *http.Request) {
	var req CreateFlowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := h.notes.CreateFlow(req)
	if err != nil {
		writeError(w, "create flow", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// SaveFlow handles PUT /api/flows/{id}.
//
//	@Summary		Replace a flow, creating it when absent
//	@Tags			flows
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string	true	"Flow id"
//	@Param			body	body		Flow	true	"Flow"
//	@Success		200		{object}	Flow
//	@Security		BearerAuth
//	@Router			/flows/{id} [put]
func (h *Handler) SaveFlow(w http.ResponseWriter, r *http.Request) {
	var f Flow
	if !decodeJSON(w, r, &f) {
		return
	}
	f.ID = param(r, "id")
	saved, err := h.notes.SaveFlow(f)
	if err != nil {
		writeError(w, "save flow", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// TrashFlow handles DELETE /api/flows/{id}.
//
//	@Summary		Move a flow to the trash
//	@Tags			flows
//	@Produce		json
//	@Param			id	path		string	true	"Flow id"
//	@Success		200	{object}	TrashedItem
//	@Success		204
//	@Security		BearerAuth
//	@Router			/flows/{id} [delete]
func (h *Handler) TrashFlow(w http.ResponseWriter, r *http.Request) {
	item, err := h.trash.MoveFlowToTrash(r.Context(), param(r, "id"))
	writeTrashed(w, "trash flow", item, err)
}

// SetFlowCategory handles PUT /api/flows/{id}/category.
//
//	@Summary		Move a flow into a category
//	@Tags			flows
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Flow id"
//	@Param			body	body		AssignRequest	true	"Target category"
//	@Success		200		{object}	Flow
//	@Security		BearerAuth
//	@Router			/flows/{id}/category [put]
func (h *Handler) SetFlowCategory(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := h.notes.SetFlowCategory(param(r, "id"), req.Name)
	if err != nil {
		writeError(w, "set flow category", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// FlowNodes handles GET /api/flows/{id}/nodes.
//
//	@Summary		Resolve the notes a flow points at, flagging deleted ones
//	@Tags			flows
//	@Produce		json
//	@Param			id	path		string	true	"Flow id"
//	@Success		200	{object}	FlowNodesResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/flows/{id}/nodes [get]
func (h *Handler) FlowNodes(w http.ResponseWriter, r *http.Request) {
	refs, err := h.notes.FlowNodeRefs(param(r, "id"))
	if err != nil {
		writeError(w, "flow nodes", err)
		return
	}
	writeJSON(w, http.StatusOK, FlowNodesResponse{Nodes: refs})
}

// ListCategories handles GET /api/categories.
//
//	@Summary		List flow categories, including empty ones
//	@Tags			categories
//	@Produce		json
//	@Success		200	{object}	LabelListResponse
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LabelListResponse{Labels: h.notes.GetAllCategories()})
}

// CreateCategory handles POST /api/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req LabelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name, err := h.notes.CreateCategory(req.Name)
	if err != nil {
		writeError(w, "create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, LabelRequest{Name: name})
}

// RenameCategory handles PUT /api/categories/{name}.
func (h *Handler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	var req LabelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.notes.RenameCategory(param(r, "name"), req.Name)
	if err != nil {
		writeError(w, "rename category", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Affected: n})
}

// DeleteCategory handles DELETE /api/categories/{name}?mode=.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	n, err := h.notes.DeleteCategory(param(r, "name"), deleteMode(r))
	if err != nil {
		writeError(w, "delete category", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Affected: n})
}

// TrashCategory handles POST /api/categories/{name}/trash.
func (h *Handler) TrashCategory(w http.ResponseWriter, r *http.Request) {
	item, err := h.trash.MoveCategoryToTrash(r.Context(), param(r, "name"))
	writeTrashed(w, "trash category", item, err)
}
