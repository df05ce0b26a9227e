package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/flownote/internal/apperr"
)

// Error codes carried next to the message so the UI can pick a banner.
const (
	CodeDirectoryUnavailable = "directory_unavailable"
	CodeQuotaExceeded        = "quota_exceeded"
	CodeGestureRequired      = "gesture_required"
	CodeNotLoaded            = "not_loaded"
)

const maxBody = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Code  string `json:"code,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// writeError maps a service error onto a status code. Capability errors are
// rendered as a recoverable conflict, never as a server failure.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case apperr.IsRecoverable(err):
		writeJSON(w, http.StatusConflict, errResponse{Error: err.Error(), Code: CodeDirectoryUnavailable})
	case errors.Is(err, apperr.ErrNotLoaded):
		writeJSON(w, http.StatusServiceUnavailable, errResponse{Error: err.Error(), Code: CodeNotLoaded})
	case errors.Is(err, apperr.ErrNoGesture):
		writeJSON(w, http.StatusForbidden, errResponse{Error: err.Error(), Code: CodeGestureRequired})
	case errors.Is(err, apperr.ErrQuotaExceeded):
		writeJSON(w, http.StatusInsufficientStorage, errResponse{Error: err.Error(), Code: CodeQuotaExceeded})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
