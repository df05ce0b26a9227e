package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/flownote/internal/apperr"
	"github.com/starford/flownote/internal/checksum"
	"github.com/starford/flownote/internal/dirhandle"
	"github.com/starford/flownote/internal/models"
)

// TrashDir is the reserved directory holding trash artifacts.
const TrashDir = "trash"

// HandleProvider yields the live directory handle, or a capability-class
// error when it is missing or its permission lapsed.
type HandleProvider interface {
	Handle(ctx context.Context) (dirhandle.Handle, error)
}

// Directory stores documents as files in the user-granted directory.
type Directory struct {
	handles HandleProvider
	tracker *checksum.Tracker
	logger  *slog.Logger
}

// NewDirectory creates a directory backend. tracker may be nil.
func NewDirectory(handles HandleProvider, tracker *checksum.Tracker, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{handles: handles, tracker: tracker, logger: logger}
}

// Kind implements Backend.
func (d *Directory) Kind() string { return KindDirectory }

// Location implements Backend.
func (d *Directory) Location(doc Document) string { return string(doc) }

// ReadDocument implements Backend.
func (d *Directory) ReadDocument(ctx context.Context, doc Document) ([]byte, error) {
	return d.read(ctx, string(doc))
}

// WriteDocument implements Backend.
func (d *Directory) WriteDocument(ctx context.Context, doc Document, data []byte) error {
	return d.write(ctx, string(doc), data)
}

// DeleteDocument implements Backend.
func (d *Directory) DeleteDocument(ctx context.Context, doc Document) error {
	return d.remove(ctx, string(doc))
}

// WriteArtifact implements Backend.
func (d *Directory) WriteArtifact(ctx context.Context, t models.ItemType, id string, data []byte) (string, error) {
	name, err := artifactName(t, id)
	if err != nil {
		return "", err
	}
	if err := d.write(ctx, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// ReadArtifact implements Backend.
func (d *Directory) ReadArtifact(ctx context.Context, t models.ItemType, id string) ([]byte, error) {
	name, err := artifactName(t, id)
	if err != nil {
		return nil, err
	}
	return d.read(ctx, name)
}

// DeleteArtifact implements Backend.
func (d *Directory) DeleteArtifact(ctx context.Context, t models.ItemType, id string) error {
	name, err := artifactName(t, id)
	if err != nil {
		return err
	}
	return d.remove(ctx, name)
}

// ListArtifacts implements Backend.
func (d *Directory) ListArtifacts(ctx context.Context, t models.ItemType) ([]string, error) {
	sub, err := artifactDir(t)
	if err != nil {
		return nil, err
	}
	h, err := d.handles.Handle(ctx)
	if err != nil {
		return nil, err
	}
	dir := path.Join(TrashDir, sub)
	names, err := h.ListDir(ctx, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("list", dir, err)
	}
	ids := make([]string, 0, len(names))
	for _, n := range names {
		name, ok := strings.CutSuffix(n, ".json")
		if !ok {
			continue
		}
		if id, ok := unescapeID(name); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func artifactName(t models.ItemType, id string) (string, error) {
	sub, err := artifactDir(t)
	if err != nil {
		return "", err
	}
	if err := validID(id); err != nil {
		return "", err
	}
	return path.Join(TrashDir, sub, escapeID(id)+".json"), nil
}

func (d *Directory) read(ctx context.Context, name string) ([]byte, error) {
	h, err := d.handles.Handle(ctx)
	if err != nil {
		return nil, err
	}
	data, err := h.ReadFile(ctx, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("read", name, err)
	}
	return data, nil
}

func (d *Directory) write(ctx context.Context, name string, data []byte) error {
	h, err := d.handles.Handle(ctx)
	if err != nil {
		return err
	}
	// The watcher may observe the event before WriteFile returns.
	if d.tracker != nil {
		d.tracker.Record(name, data)
	}
	if err := h.WriteFile(ctx, name, data); err != nil {
		if d.tracker != nil {
			d.tracker.Forget(name)
		}
		return classify("write", name, err)
	}
	d.logger.Debug("storage: wrote file", slog.String("name", name), slog.Int("bytes", len(data)))
	return nil
}

func (d *Directory) remove(ctx context.Context, name string) error {
	h, err := d.handles.Handle(ctx)
	if err != nil {
		return err
	}
	if d.tracker != nil {
		d.tracker.Record(name, nil)
	}
	err = h.RemoveEntry(ctx, name)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if d.tracker != nil {
		d.tracker.Forget(name)
	}
	return classify("remove", name, err)
}

// classify turns a permission failure on an otherwise valid handle into
// ErrAccessRevoked so write-through can attempt a restoration.
func classify(op, name string, err error) error {
	if errors.Is(err, fs.ErrPermission) && !apperr.IsRecoverable(err) {
		return fmt.Errorf("storage: %s %s: %w: %w", op, name, apperr.ErrAccessRevoked, err)
	}
	return fmt.Errorf("storage: %s %s: %w", op, name, err)
}
