package storage

import (
	"context"
	"strings"

	"github.com/starford/flownote/internal/kv"
	"github.com/starford/flownote/internal/models"
)

// KeyPrefix namespaces every fallback key.
const KeyPrefix = "flownote:"

const trashKeyPrefix = KeyPrefix + "trash:"

// Fallback stores each document as one JSON string in a key/value store.
type Fallback struct {
	store kv.Store
}

// NewFallback wraps store.
func NewFallback(store kv.Store) *Fallback {
	return &Fallback{store: store}
}

// Kind implements Backend.
func (f *Fallback) Kind() string { return KindFallback }

// Location implements Backend.
func (f *Fallback) Location(doc Document) string { return DocumentKey(doc) }

// DocumentKey returns the key doc is stored under, e.g. "flownote:notes".
func DocumentKey(doc Document) string {
	return KeyPrefix + strings.TrimSuffix(string(doc), ".json")
}

// ArtifactKey returns the key of a trash copy, e.g. "flownote:trash:note:<id>".
func ArtifactKey(t models.ItemType, id string) string {
	return trashKeyPrefix + string(t) + ":" + id
}

// ReadDocument implements Backend.
func (f *Fallback) ReadDocument(ctx context.Context, doc Document) ([]byte, error) {
	return f.get(ctx, DocumentKey(doc))
}

// WriteDocument implements Backend.
func (f *Fallback) WriteDocument(ctx context.Context, doc Document, data []byte) error {
	return f.store.Set(ctx, DocumentKey(doc), string(data))
}

// DeleteDocument implements Backend.
func (f *Fallback) DeleteDocument(ctx context.Context, doc Document) error {
	return f.store.Delete(ctx, DocumentKey(doc))
}

// WriteArtifact implements Backend.
func (f *Fallback) WriteArtifact(ctx context.Context, t models.ItemType, id string, data []byte) (string, error) {
	if err := checkArtifact(t, id); err != nil {
		return "", err
	}
	key := ArtifactKey(t, id)
	if err := f.store.Set(ctx, key, string(data)); err != nil {
		return "", err
	}
	return key, nil
}

// ReadArtifact implements Backend.
func (f *Fallback) ReadArtifact(ctx context.Context, t models.ItemType, id string) ([]byte, error) {
	if err := checkArtifact(t, id); err != nil {
		return nil, err
	}
	return f.get(ctx, ArtifactKey(t, id))
}

// DeleteArtifact implements Backend.
func (f *Fallback) DeleteArtifact(ctx context.Context, t models.ItemType, id string) error {
	if err := checkArtifact(t, id); err != nil {
		return err
	}
	return f.store.Delete(ctx, ArtifactKey(t, id))
}

// ListArtifacts implements Backend.
func (f *Fallback) ListArtifacts(ctx context.Context, t models.ItemType) ([]string, error) {
	if _, err := artifactDir(t); err != nil {
		return nil, err
	}
	prefix := trashKeyPrefix + string(t) + ":"
	keys, err := f.store.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if id := strings.TrimPrefix(k, prefix); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *Fallback) get(ctx context.Context, key string) ([]byte, error) {
	v, ok, err := f.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	return []byte(v), nil
}

func checkArtifact(t models.ItemType, id string) error {
	if _, err := artifactDir(t); err != nil {
		return err
	}
	return validID(id)
}
