package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store.
type Memory struct {
	quota int64

	mu     sync.Mutex
	values map[string]string
	used   int64
	setErr error
}

// NewMemory returns an empty store with the given quota.
func NewMemory(quota int64) *Memory {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &Memory{quota: quota, values: make(map[string]string)}
}

// FailSets makes every Set return err. Nil clears it.
func (m *Memory) FailSets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	used := m.used
	if old, ok := m.values[key]; ok {
		used -= entrySize(key, old)
	}
	if used+entrySize(key, value) > m.quota {
		return quotaError(key, used, entrySize(key, value), m.quota)
	}
	m.values[key] = value
	m.used = used + entrySize(key, value)
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.values[key]; ok {
		m.used -= entrySize(key, old)
		delete(m.values, key)
	}
	return nil
}

// Keys implements Store.
func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Usage implements Store.
func (m *Memory) Usage(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used, nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }
