package capability

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/starford/flownote/internal/dirhandle"
)

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handles.db")
	s, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	ctx := context.Background()

	if d, err := s.Load(ctx, DirectorySlot); err != nil || d != nil {
		t.Fatalf("Load empty = %v, %v", d, err)
	}
	want := dirhandle.Descriptor{Kind: dirhandle.KindOS, Location: "/tmp/vault", Name: "vault"}
	if err := s.Save(ctx, DirectorySlot, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	want.Location = "/tmp/other"
	if err := s.Save(ctx, DirectorySlot, want); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	s.Close()

	s, err = OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Load(ctx, DirectorySlot)
	if err != nil || got == nil || *got != want {
		t.Fatalf("Load = %+v, %v; want %+v", got, err, want)
	}
	if err := s.Delete(ctx, DirectorySlot); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if d, _ := s.Load(ctx, DirectorySlot); d != nil {
		t.Fatalf("slot survived delete: %+v", d)
	}
}
