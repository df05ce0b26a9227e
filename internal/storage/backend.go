// Package storage defines the document backends the façade and the trash
// persist through: a user-granted directory, or the key/value fallback.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/starford/flownote/internal/apperr"
	"github.com/starford/flownote/internal/models"
)

// Document names one whole-collection JSON document.
type Document string

const (
	DocNotes      Document = "notes.json"
	DocFolders    Document = "folders.json"
	DocFlows      Document = "flows.json"
	DocCategories Document = "flowCategories.json"
	DocTheme      Document = "theme.json"
	DocTrashIndex Document = "trash-index.json"
)

// Documents lists every document in the order migration copies them.
var Documents = []Document{DocNotes, DocFolders, DocFlows, DocCategories, DocTheme, DocTrashIndex}

// Backend kinds.
const (
	KindDirectory = "directory"
	KindFallback  = "fallback"
)

// Backend reads and writes whole documents and per-item trash artifacts.
// Absent documents and artifacts read as nil data with a nil error.
type Backend interface {
	Kind() string
	// Location reports where doc is kept, for trash bookkeeping and logs.
	Location(doc Document) string
	ReadDocument(ctx context.Context, doc Document) ([]byte, error)
	// WriteDocument fully replaces doc.
	WriteDocument(ctx context.Context, doc Document, data []byte) error
	// DeleteDocument removes doc. Removing an absent document is not an error.
	DeleteDocument(ctx context.Context, doc Document) error

	// WriteArtifact stores the trash copy of one item and returns its location.
	WriteArtifact(ctx context.Context, t models.ItemType, id string, data []byte) (string, error)
	ReadArtifact(ctx context.Context, t models.ItemType, id string) ([]byte, error)
	// DeleteArtifact removes a trash copy. Removing an absent artifact is not an error.
	DeleteArtifact(ctx context.Context, t models.ItemType, id string) error
	// ListArtifacts returns the ids of every stored trash copy of type t.
	ListArtifacts(ctx context.Context, t models.ItemType) ([]string, error)
}

// artifactDir maps an item type to its trash sub-directory. Containers have
// no artifacts of their own.
func artifactDir(t models.ItemType) (string, error) {
	switch t {
	case models.ItemNote:
		return "notes", nil
	case models.ItemFlow:
		return "flows", nil
	default:
		return "", fmt.Errorf("storage: %s items have no trash artifact: %w", t, apperr.ErrInvalidInput)
	}
}

func validID(id string) error {
	if id == "" {
		return fmt.Errorf("storage: empty artifact id: %w", apperr.ErrInvalidInput)
	}
	return nil
}

// escapeID turns an item id into a single path element. Separators, drive
// colons and the dot names are percent-encoded; unescapeID reverses it.
func escapeID(id string) string {
	switch id {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return strings.ReplaceAll(url.PathEscape(id), ":", "%3A")
}

func unescapeID(name string) (string, bool) {
	id, err := url.PathUnescape(name)
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}
