package dirhandle

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Handle with scriptable permission state and
// failure injection. File operations fail with fs.ErrPermission unless the
// permission is granted.
type Memory struct {
	name string

	mu            sync.Mutex
	files         map[string][]byte
	perm          Permission
	requestResult Permission
	queryErr      error
	writeErrAll   error
	writeErr      map[string]error
	removeErr     map[string]error
	readErr       map[string]error
}

// NewMemory returns a granted, empty handle.
func NewMemory(name string) *Memory {
	return &Memory{
		name:      name,
		files:     make(map[string][]byte),
		perm:      PermissionGranted,
		writeErr:  make(map[string]error),
		removeErr: make(map[string]error),
		readErr:   make(map[string]error),
	}
}

// SetPermission changes the state reported by QueryPermission.
func (m *Memory) SetPermission(p Permission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perm = p
}

// SetRequestResult sets the state RequestPermission moves to. Empty keeps
// the current state.
func (m *Memory) SetRequestResult(p Permission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestResult = p
}

// FailQuery makes permission checks return err.
func (m *Memory) FailQuery(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr = err
}

// FailWrites makes every write return err. Nil clears it.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErrAll = err
}

// FailWrite makes writes to name return err.
func (m *Memory) FailWrite(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr(m.writeErr, name, err)
}

// FailRemove makes removing name return err.
func (m *Memory) FailRemove(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr(m.removeErr, name, err)
}

// FailRead makes reading name return err.
func (m *Memory) FailRead(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr(m.readErr, name, err)
}

func (m *Memory) setErr(set map[string]error, name string, err error) {
	if err == nil {
		delete(set, name)
		return
	}
	set[name] = err
}

// Put stores data without permission checks.
func (m *Memory) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path.Clean(name)] = append([]byte(nil), data...)
}

// Data returns a copy of name's bytes.
func (m *Memory) Data(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path.Clean(name)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Files lists every stored name.
func (m *Memory) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for name := range m.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Descriptor implements Handle.
func (m *Memory) Descriptor() Descriptor {
	return Descriptor{Kind: KindMemory, Location: m.name, Name: m.name}
}

// QueryPermission implements Handle.
func (m *Memory) QueryPermission(_ context.Context) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return "", m.queryErr
	}
	return m.perm, nil
}

// RequestPermission implements Handle.
func (m *Memory) RequestPermission(_ context.Context) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return "", m.queryErr
	}
	if m.requestResult != "" {
		m.perm = m.requestResult
	}
	return m.perm, nil
}

func (m *Memory) checkLocked(op, name string) error {
	if m.perm != PermissionGranted {
		return fmt.Errorf("dirhandle: %s %s: %w", op, name, fs.ErrPermission)
	}
	return nil
}

// ReadFile implements Handle.
func (m *Memory) ReadFile(_ context.Context, name string) ([]byte, error) {
	name = path.Clean(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked("read", name); err != nil {
		return nil, err
	}
	if err := m.readErr[name]; err != nil {
		return nil, err
	}
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("dirhandle: read %s: %w", name, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// WriteFile implements Handle.
func (m *Memory) WriteFile(_ context.Context, name string, data []byte) error {
	name = path.Clean(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked("write", name); err != nil {
		return err
	}
	if m.writeErrAll != nil {
		return m.writeErrAll
	}
	if err := m.writeErr[name]; err != nil {
		return err
	}
	m.files[name] = append([]byte(nil), data...)
	return nil
}

// RemoveEntry implements Handle.
func (m *Memory) RemoveEntry(_ context.Context, name string) error {
	name = path.Clean(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked("remove", name); err != nil {
		return err
	}
	if err := m.removeErr[name]; err != nil {
		return err
	}
	if _, ok := m.files[name]; !ok {
		return fmt.Errorf("dirhandle: remove %s: %w", name, fs.ErrNotExist)
	}
	delete(m.files, name)
	return nil
}

// ListDir implements Handle.
func (m *Memory) ListDir(_ context.Context, dir string) ([]string, error) {
	dir = strings.Trim(path.Clean(dir), "/")
	if dir == "." {
		dir = ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked("list", dir); err != nil {
		return nil, err
	}
	var out []string
	for name := range m.files {
		parent, base := path.Split(name)
		if strings.TrimSuffix(parent, "/") == dir {
			out = append(out, base)
		}
	}
	sort.Strings(out)
	return out, nil
}
