package migrate

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/starford/flownote/internal/dirhandle"
	"github.com/starford/flownote/internal/kv"
	"github.com/starford/flownote/internal/models"
	"github.com/starford/flownote/internal/storage"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type static struct{ h dirhandle.Handle }

func (s static) Handle(context.Context) (dirhandle.Handle, error) { return s.h, nil }

func TestRunMergesIntoDirectory(t *testing.T) {
	ctx := context.Background()
	flags := kv.NewMemory(0)
	from := storage.NewFallback(kv.NewMemory(0))
	h := dirhandle.NewMemory("vault")
	to := storage.NewDirectory(static{h}, nil, quiet)
	ts := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(storage.WriteValue(ctx, from, storage.DocNotes, []models.Note{
		{ID: "shared", Title: "local copy", CreatedAt: ts, UpdatedAt: ts},
		{ID: "local", Title: "only local", CreatedAt: ts, UpdatedAt: ts},
	}))
	must(storage.WriteValue(ctx, to, storage.DocNotes, []models.Note{
		{ID: "shared", Title: "directory copy", CreatedAt: ts, UpdatedAt: ts},
	}))
	must(storage.WriteValue(ctx, from, storage.DocFolders, []string{"Work", "Home"}))
	must(storage.WriteValue(ctx, to, storage.DocFolders, []string{"Home"}))
	must(storage.WriteValue(ctx, from, storage.DocTheme, models.ThemeSetting{Theme: models.ThemeDarker}))

	trashed := models.Note{ID: "gone", Title: "trashed", CreatedAt: ts, UpdatedAt: ts}
	data, _ := storage.Encode(trashed)
	path, err := from.WriteArtifact(ctx, models.ItemNote, "gone", data)
	must(err)
	must(storage.WriteValue(ctx, from, storage.DocTrashIndex, models.TrashIndex{
		Version: 1,
		Items: []models.TrashedItem{
			{ID: "gone", Type: models.ItemNote, Title: "trashed", TrashPath: path, Metadata: models.TrashMetadata{Note: &trashed}},
			{ID: "lost", Type: models.ItemNote, Title: "no copy"},
		},
	}))

	rep, err := Run(ctx, from, to, flags, quiet)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Notes != 1 || rep.Folders != 1 || !rep.Theme || rep.Trash != 1 {
		t.Fatalf("report = %+v", rep)
	}

	notes, _ := storage.ReadList[models.Note](ctx, to, storage.DocNotes, quiet)
	if len(notes) != 2 || notes[0].Title != "directory copy" || notes[1].ID != "local" {
		t.Fatalf("notes = %+v", notes)
	}
	folders, _ := storage.ReadList[string](ctx, to, storage.DocFolders, quiet)
	if !slices.Equal(folders, []string{"Home", "Work"}) {
		t.Fatalf("folders = %v", folders)
	}
	theme, _ := storage.ReadObject[models.ThemeSetting](ctx, to, storage.DocTheme, quiet)
	if theme == nil || theme.Theme != models.ThemeDarker {
		t.Fatalf("theme = %+v", theme)
	}
	ix, _ := storage.ReadObject[models.TrashIndex](ctx, to, storage.DocTrashIndex, quiet)
	if ix == nil || len(ix.Items) != 1 || ix.Items[0].TrashPath != "trash/notes/gone.json" {
		t.Fatalf("trash index = %+v", ix)
	}
	if _, ok := h.Data("trash/notes/gone.json"); !ok {
		t.Fatal("trash copy not migrated")
	}
	if _, ok := MigratedAt(ctx, flags); !ok {
		t.Fatal("completion not recorded")
	}

	again, err := Run(ctx, from, to, flags, quiet)
	if err != nil || !again.Empty() {
		t.Fatalf("second run = %+v, %v", again, err)
	}
}

func TestRunKeepsDirectoryTheme(t *testing.T) {
	ctx := context.Background()
	from := storage.NewFallback(kv.NewMemory(0))
	to := storage.NewFallback(kv.NewMemory(0))
	_ = storage.WriteValue(ctx, from, storage.DocTheme, models.ThemeSetting{Theme: models.ThemeDarker})
	_ = storage.WriteValue(ctx, to, storage.DocTheme, models.ThemeSetting{Theme: models.ThemeDefault})
	rep, err := Run(ctx, from, to, nil, quiet)
	if err != nil || rep.Theme {
		t.Fatalf("Run = %+v, %v", rep, err)
	}
	theme, _ := storage.ReadObject[models.ThemeSetting](ctx, to, storage.DocTheme, quiet)
	if theme.Theme != models.ThemeDefault {
		t.Fatalf("theme overwritten: %+v", theme)
	}
}
