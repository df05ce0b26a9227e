package capability

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/flownote/internal/dirhandle"
)

type gestureKey struct{}

// Gesture marks a context as originating from a direct user action. Path is
// the directory the user chose; empty means the picker was dismissed.
type Gesture struct {
	Path string
}

// WithGesture returns ctx carrying a user gesture.
func WithGesture(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, gestureKey{}, Gesture{Path: strings.TrimSpace(path)})
}

// GestureFrom returns the gesture carried by ctx, if any.
func GestureFrom(ctx context.Context) (Gesture, bool) {
	g, ok := ctx.Value(gestureKey{}).(Gesture)
	return g, ok
}

// Picker lets the user choose a directory. A nil handle with a nil error
// means the user cancelled.
type Picker interface {
	Pick(ctx context.Context, suggestedName string) (dirhandle.Handle, error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context, suggestedName string) (dirhandle.Handle, error)

// Pick implements Picker.
func (f PickerFunc) Pick(ctx context.Context, suggestedName string) (dirhandle.Handle, error) {
	return f(ctx, suggestedName)
}

// DirectoryPicker resolves the gesture path to an OS handle, creating the
// directory when needed. A bare name is resolved under Base.
type DirectoryPicker struct {
	Base string
}

// Pick implements Picker.
func (p DirectoryPicker) Pick(ctx context.Context, suggestedName string) (dirhandle.Handle, error) {
	g, ok := GestureFrom(ctx)
	if !ok || g.Path == "" {
		return nil, nil
	}
	dir := g.Path
	if !filepath.IsAbs(dir) && p.Base != "" {
		dir = filepath.Join(p.Base, dir)
	}
	h, err := dirhandle.NewOS(dir)
	if err != nil {
		return nil, err
	}
	if err := ensureDir(h.Root()); err != nil {
		return nil, fmt.Errorf("capability: prepare %s: %w", suggestedName, err)
	}
	return h, nil
}
