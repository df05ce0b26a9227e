package dirhandle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// OS is a Handle backed by a directory on the local file system.
type OS struct {
	root string // absolute path
}

// NewOS creates a handle rooted at dir. The directory does not have to exist
// yet: a vanished directory is a lost handle, reported by permission checks.
func NewOS(dir string) (*OS, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("dirhandle: empty directory path")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("dirhandle: resolve root: %w", err)
	}
	return &OS{root: abs}, nil
}

// Root returns the absolute directory path.
func (h *OS) Root() string { return h.root }

// Descriptor implements Handle.
func (h *OS) Descriptor() Descriptor {
	return Descriptor{Kind: KindOS, Location: h.root, Name: filepath.Base(h.root)}
}

// QueryPermission implements Handle.
func (h *OS) QueryPermission(_ context.Context) (Permission, error) {
	return checkAccess(h.root)
}

// RequestPermission implements Handle. The operating system cannot be asked
// to widen access, so this re-checks the directory.
func (h *OS) RequestPermission(_ context.Context) (Permission, error) {
	return checkAccess(h.root)
}

// safePath resolves a relative name against the root and rejects any result
// that escapes it.
func (h *OS) safePath(name string) (string, error) {
	if name == "" {
		return h.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("dirhandle: absolute paths not allowed: %s", name)
	}
	abs := filepath.Join(h.root, cleaned)
	if !strings.HasPrefix(abs, h.root+string(os.PathSeparator)) && abs != h.root {
		return "", fmt.Errorf("dirhandle: path escapes directory: %s", name)
	}
	return abs, nil
}

// ReadFile implements Handle.
func (h *OS) ReadFile(_ context.Context, name string) ([]byte, error) {
	abs, err := h.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("dirhandle: read %s: %w", name, err)
	}
	return data, nil
}

// WriteFile implements Handle: tmp file, fsync, rename.
func (h *OS) WriteFile(_ context.Context, name string, data []byte) error {
	abs, err := h.safePath(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(h.root); err != nil {
		return fmt.Errorf("dirhandle: root: %w", err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dirhandle: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".flownote-tmp-*")
	if err != nil {
		return fmt.Errorf("dirhandle: create temp: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("dirhandle: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("dirhandle: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("dirhandle: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("dirhandle: rename: %w", err)
	}
	committed = true
	return nil
}

// RemoveEntry implements Handle.
func (h *OS) RemoveEntry(_ context.Context, name string) error {
	abs, err := h.safePath(name)
	if err != nil {
		return err
	}
	if abs == h.root {
		return fmt.Errorf("dirhandle: refusing to remove root")
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("dirhandle: remove %s: %w", name, err)
	}
	return nil
}

// ListDir implements Handle.
func (h *OS) ListDir(_ context.Context, dir string) ([]string, error) {
	abs, err := h.safePath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("dirhandle: list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".flownote-tmp-") {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

func classifyStat(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("dirhandle: not a directory: %s", root)
	}
	return nil
}

// permissionFromStat maps a stat failure to a permission state when the
// failure itself says access is denied.
func permissionFromStat(err error) (Permission, error) {
	if errors.Is(err, fs.ErrPermission) {
		return PermissionDenied, nil
	}
	return "", fmt.Errorf("dirhandle: access check: %w", err)
}
