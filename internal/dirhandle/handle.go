// Package dirhandle abstracts a revocable capability granting access to one
// user-selected directory.
package dirhandle

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/flownote/internal/apperr"
)

// Permission is the live permission state of a handle.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionPrompt  Permission = "prompt"
	PermissionDenied  Permission = "denied"
)

// Handle kinds.
const (
	KindOS     = "os"
	KindMemory = "memory"
)

// Descriptor is the persistable locator of a handle. Capability stores keep
// descriptors; handles themselves are rebuilt with Open.
type Descriptor struct {
	Kind     string
	Location string
	Name     string
}

// Handle is an opaque, revocable directory capability. Names are slash
// separated and relative to the directory. Missing entries are reported with
// an error wrapping fs.ErrNotExist.
type Handle interface {
	Descriptor() Descriptor
	// QueryPermission reports the current permission without side effects.
	QueryPermission(ctx context.Context) (Permission, error)
	// RequestPermission asks for read/write access and returns the resulting state.
	RequestPermission(ctx context.Context) (Permission, error)
	ReadFile(ctx context.Context, name string) ([]byte, error)
	// WriteFile fully replaces name, creating parent directories.
	WriteFile(ctx context.Context, name string, data []byte) error
	RemoveEntry(ctx context.Context, name string) error
	// ListDir returns the file names (not sub-directories) directly under dir.
	ListDir(ctx context.Context, dir string) ([]string, error)
}

// Rooted is implemented by handles backed by a real directory on disk.
type Rooted interface {
	Root() string
}

// Open rebuilds a handle from a persisted descriptor.
func Open(d Descriptor) (Handle, error) {
	switch strings.ToLower(strings.TrimSpace(d.Kind)) {
	case KindOS, "":
		return NewOS(d.Location)
	default:
		return nil, fmt.Errorf("dirhandle: open %s handle: %w", d.Kind, apperr.ErrNotImplemented)
	}
}
