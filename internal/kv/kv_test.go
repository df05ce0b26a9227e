package kv

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/flownote/internal/apperr"
)

func testSQLite(t *testing.T, quota int64) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "fallback.db"), quota)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// stores returns one of each locally runnable implementation.
func stores(t *testing.T, quota int64) map[string]Store {
	return map[string]Store{
		"memory": NewMemory(quota),
		"sqlite": testSQLite(t, quota),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t, 0) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get(ctx, "flownote:notes"); err != nil || ok {
				t.Fatalf("Get on empty store = ok %v, err %v", ok, err)
			}
			if err := s.Set(ctx, "flownote:notes", `[{"id":"1"}]`); err != nil {
				t.Fatalf("Set: %v", err)
			}
			v, ok, err := s.Get(ctx, "flownote:notes")
			if err != nil || !ok || v != `[{"id":"1"}]` {
				t.Fatalf("Get = %q, %v, %v", v, ok, err)
			}
			if err := s.Delete(ctx, "flownote:notes"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := s.Delete(ctx, "flownote:notes"); err != nil {
				t.Fatalf("deleting a missing key: %v", err)
			}
			if _, ok, _ := s.Get(ctx, "flownote:notes"); ok {
				t.Error("key still present after delete")
			}
		})
	}
}

func TestStoreKeysByPrefix(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t, 0) {
		t.Run(name, func(t *testing.T) {
			_ = s.Set(ctx, "flownote:trash:note:b", "{}")
			_ = s.Set(ctx, "flownote:trash:note:a", "{}")
			_ = s.Set(ctx, "flownote:trash:flow:c", "{}")
			_ = s.Set(ctx, "flownote:notes", "[]")
			keys, err := s.Keys(ctx, "flownote:trash:note:")
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if strings.Join(keys, ",") != "flownote:trash:note:a,flownote:trash:note:b" {
				t.Errorf("keys = %v", keys)
			}
		})
	}
}

func TestStoreQuota(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t, 32) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, "k", strings.Repeat("x", 20)); err != nil {
				t.Fatalf("Set under quota: %v", err)
			}
			err := s.Set(ctx, "other", strings.Repeat("y", 20))
			if !errors.Is(err, apperr.ErrQuotaExceeded) {
				t.Fatalf("err = %v, want ErrQuotaExceeded", err)
			}
			// Replacing an existing value only counts the new size.
			if err := s.Set(ctx, "k", strings.Repeat("z", 30)); err != nil {
				t.Fatalf("overwrite within quota: %v", err)
			}
			used, err := s.Usage(ctx)
			if err != nil {
				t.Fatalf("Usage: %v", err)
			}
			if used != 31 {
				t.Errorf("usage = %d, want 31", used)
			}
		})
	}
}

func TestBuildFromDSN(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		dsn  string
		want string
	}{
		{"memory://", "*kv.Memory"},
		{filepath.Join(dir, "a.db"), "*kv.SQLite"},
		{"sqlite://" + filepath.Join(dir, "b.db"), "*kv.SQLite"},
		{"redis://localhost:6379/0", "*kv.Redis"},
	}
	for _, c := range cases {
		s, err := BuildFromDSN(c.dsn, 0)
		if err != nil {
			t.Fatalf("BuildFromDSN(%q): %v", c.dsn, err)
		}
		got := typeName(s)
		_ = s.Close()
		if got != c.want {
			t.Errorf("BuildFromDSN(%q) = %s, want %s", c.dsn, got, c.want)
		}
	}

	if _, err := BuildFromDSN("  ", 0); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty dsn err = %v, want ErrInvalidInput", err)
	}
	if _, err := BuildFromDSN("postgres://localhost/db", 0); !errors.Is(err, apperr.ErrNotImplemented) {
		t.Errorf("postgres err = %v, want ErrNotImplemented", err)
	}
	if _, err := BuildFromDSN("ftp://x", 0); err == nil {
		t.Error("unknown scheme should fail")
	}
}

func typeName(s Store) string {
	switch s.(type) {
	case *Memory:
		return "*kv.Memory"
	case *SQLite:
		return "*kv.SQLite"
	case *Redis:
		return "*kv.Redis"
	default:
		return "unknown"
	}
}
