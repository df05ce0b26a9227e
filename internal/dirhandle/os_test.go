package dirhandle

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func tempHandle(t *testing.T) *OS {
	t.Helper()
	h, err := NewOS(t.TempDir())
	if err != nil {
		t.Fatalf("NewOS: %v", err)
	}
	return h
}

func TestOSWriteAndRead(t *testing.T) {
	ctx := context.Background()
	h := tempHandle(t)
	if err := h.WriteFile(ctx, "notes.json", []byte("[]")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := h.ReadFile(ctx, "notes.json")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "[]" {
		t.Errorf("content = %q", got)
	}
}

func TestOSWriteCreatesSubdirs(t *testing.T) {
	ctx := context.Background()
	h := tempHandle(t)
	if err := h.WriteFile(ctx, "trash/notes/a.json", []byte("{}")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	names, err := h.ListDir(ctx, "trash/notes")
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	if len(names) != 1 || names[0] != "a.json" {
		t.Errorf("names = %v", names)
	}
}

func TestOSReadMissingIsNotExist(t *testing.T) {
	h := tempHandle(t)
	_, err := h.ReadFile(context.Background(), "missing.json")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestOSRemoveEntry(t *testing.T) {
	ctx := context.Background()
	h := tempHandle(t)
	_ = h.WriteFile(ctx, "x.json", []byte("1"))
	if err := h.RemoveEntry(ctx, "x.json"); err != nil {
		t.Fatalf("RemoveEntry: %v", err)
	}
	if err := h.RemoveEntry(ctx, "x.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("second remove err = %v", err)
	}
}

func TestOSTraversalBlocked(t *testing.T) {
	ctx := context.Background()
	h := tempHandle(t)
	for _, p := range []string{"../outside.json", "../../etc/passwd", "/etc/shadow"} {
		if _, err := h.ReadFile(ctx, p); err == nil {
			t.Errorf("expected error reading %q", p)
		}
		if err := h.WriteFile(ctx, p, []byte("x")); err == nil {
			t.Errorf("expected error writing %q", p)
		}
	}
}

func TestOSNoLeftoverTempFiles(t *testing.T) {
	ctx := context.Background()
	h := tempHandle(t)
	_ = h.WriteFile(ctx, "a.json", []byte("one"))
	_ = h.WriteFile(ctx, "a.json", []byte("two"))
	matches, _ := filepath.Glob(filepath.Join(h.Root(), ".flownote-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestOSPermissionGranted(t *testing.T) {
	h := tempHandle(t)
	p, err := h.QueryPermission(context.Background())
	if err != nil {
		t.Fatalf("QueryPermission: %v", err)
	}
	if p != PermissionGranted {
		t.Errorf("permission = %q, want granted", p)
	}
}

func TestOSPermissionCheckFailsWhenDirectoryVanishes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vault")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	h, err := NewOS(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := h.QueryPermission(context.Background()); err == nil {
		t.Error("expected check error for a vanished directory")
	}
	if err := h.WriteFile(context.Background(), "notes.json", []byte("[]")); err == nil {
		t.Error("write into a vanished directory should fail")
	}
}

func TestOpenDescriptor(t *testing.T) {
	h := tempHandle(t)
	reopened, err := Open(h.Descriptor())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.Descriptor().Location != h.Root() {
		t.Errorf("location = %q", reopened.Descriptor().Location)
	}
	if _, err := Open(Descriptor{Kind: KindMemory, Location: "x"}); err == nil {
		t.Error("memory descriptors cannot be reopened")
	}
}
