// Package apperr defines the error taxonomy shared by the storage layer.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotImplemented = errors.New("not implemented")
	ErrQuotaExceeded  = errors.New("storage quota exceeded")

	// ErrDirectoryUnavailable means no usable directory handle is held: the
	// handle was never restored, or its slot could not be reopened.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrAccessRevoked means a handle is held but its permission is no longer granted.
	ErrAccessRevoked = errors.New("directory access revoked")
	// ErrNotLoaded means the cache has not been loaded from the active backend,
	// so a write built on it would replace data it never saw.
	ErrNotLoaded = errors.New("storage not loaded")
	// ErrNoGesture is returned by operations that may only run from a user action.
	ErrNoGesture = errors.New("operation requires a user gesture")
)

// IsRecoverable reports whether err is a capability-class failure the user can
// fix by re-granting or re-selecting the directory.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrDirectoryUnavailable) || errors.Is(err, ErrAccessRevoked)
}
