package trash

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/flownote/internal/apperr"
	"github.com/starford/flownote/internal/dirhandle"
	"github.com/starford/flownote/internal/kv"
	"github.com/starford/flownote/internal/models"
	"github.com/starford/flownote/internal/noteservice"
	"github.com/starford/flownote/internal/storage"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// granted is a configured, always-usable directory capability.
type granted struct{ h dirhandle.Handle }

func (g granted) IsConfigured(context.Context) bool                { return true }
func (g granted) HasValidAccess(context.Context) bool              { return true }
func (g granted) RestoreOnStartup(context.Context) error           { return nil }
func (g granted) Handle(context.Context) (dirhandle.Handle, error) { return g.h, nil }

type env struct {
	notes  *noteservice.Service
	trash  *Service
	handle *dirhandle.Memory
	local  *kv.Memory
	ids    atomic.Int32
}

func newEnv(t *testing.T, directory bool) *env {
	t.Helper()
	e := &env{handle: dirhandle.NewMemory("vault"), local: kv.NewMemory(0)}
	opts := noteservice.Options{
		Fallback: storage.NewFallback(e.local),
		Logger:   quiet,
		NewID:    func() string { return fmt.Sprintf("item-%d", e.ids.Add(1)) },
	}
	if directory {
		c := granted{h: e.handle}
		opts.Directory = storage.NewDirectory(c, nil, quiet)
		opts.Capability = c
	}
	e.notes = noteservice.New(opts)
	t.Cleanup(func() { e.notes.Close() })
	if err := e.notes.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	e.trash = New(e.notes, quiet, WithIDs(func() string { return fmt.Sprintf("box-%d", e.ids.Add(1)) }))
	return e
}

func (e *env) note(t *testing.T, title, folder string) models.Note {
	t.Helper()
	n, err := e.notes.CreateNote(noteservice.NoteInput{Title: title, Content: title + " body", Folder: folder})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func backendsUnderTest() []bool { return []bool{false, true} }

func name(directory bool) string {
	if directory {
		return "directory"
	}
	return "fallback"
}

func TestMoveIsIdempotent(t *testing.T) {
	for _, dir := range backendsUnderTest() {
		t.Run(name(dir), func(t *testing.T) {
			e := newEnv(t, dir)
			ctx := context.Background()
			n := e.note(t, "A", "")

			first, err := e.trash.MoveNoteToTrash(ctx, n.ID)
			if err != nil || first == nil {
				t.Fatalf("first move = %v, %v", first, err)
			}
			second, err := e.trash.MoveNoteToTrash(ctx, n.ID)
			if err != nil || second != nil {
				t.Fatalf("second move = %v, %v", second, err)
			}
			items, err := e.trash.List(ctx)
			if err != nil || len(items) != 1 {
				t.Fatalf("List = %+v, %v", items, err)
			}
			if _, ok := e.notes.GetNoteByID(n.ID); ok {
				t.Fatal("note still active")
			}
		})
	}
}

func TestRestoreReconstructsNote(t *testing.T) {
	for _, dir := range backendsUnderTest() {
		t.Run(name(dir), func(t *testing.T) {
			e := newEnv(t, dir)
			ctx := context.Background()
			n := e.note(t, "Keep me", "Work")

			item, err := e.trash.MoveNoteToTrash(ctx, n.ID)
			if err != nil {
				t.Fatal(err)
			}
			if item.OriginalFolder != "Work" || item.TrashPath == "" || item.Metadata.Note == nil {
				t.Fatalf("entry = %+v", item)
			}
			if _, err := e.trash.Restore(ctx, n.ID); err != nil {
				t.Fatalf("Restore: %v", err)
			}
			got, ok := e.notes.GetNoteByID(n.ID)
			if !ok || got.Title != n.Title || got.Content != n.Content || got.Folder != n.Folder {
				t.Fatalf("restored = %+v, %v", got, ok)
			}
			if items, _ := e.trash.List(ctx); len(items) != 0 {
				t.Fatalf("trash not empty: %+v", items)
			}
			if data, _ := e.notes.Backend().ReadArtifact(ctx, models.ItemNote, n.ID); data != nil {
				t.Fatal("trash copy left after restore")
			}
		})
	}
}

func TestFlowRoundTripThroughTrash(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	f, err := e.notes.CreateFlow(noteservice.FlowInput{Title: "F", Category: "Ideas",
		Nodes: []models.FlowNode{{ID: "a", NoteID: "n"}}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.trash.MoveFlowToTrash(ctx, f.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.handle.Data("trash/flows/" + f.ID + ".json"); !ok {
		t.Fatal("flow copy not in trash/flows")
	}
	if _, err := e.trash.Restore(ctx, f.ID); err != nil {
		t.Fatal(err)
	}
	got, ok := e.notes.GetFlowByID(f.ID)
	if !ok || got.Category != "Ideas" || len(got.Nodes) != 1 {
		t.Fatalf("restored flow = %+v", got)
	}
}

func TestListPrefersActiveItemAfterInterruptedMove(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	b := e.notes.Backend()
	n := e.note(t, "Still here", "")

	// Copy and index entry written, source never removed.
	path, err := b.WriteArtifact(ctx, models.ItemNote, n.ID, []byte(`{"id":"`+n.ID+`"}`))
	if err != nil {
		t.Fatal(err)
	}
	ix := &models.TrashIndex{Items: []models.TrashedItem{{ID: n.ID, Type: models.ItemNote, TrashPath: path}}}
	if err := storage.WriteValue(ctx, b, storage.DocTrashIndex, ix); err != nil {
		t.Fatal(err)
	}
	// A copy from a move whose index write never landed.
	if _, err := b.WriteArtifact(ctx, models.ItemNote, "orphan", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	items, err := e.trash.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("items = %+v, want none", items)
	}
	if _, ok := e.notes.GetNoteByID(n.ID); !ok {
		t.Fatal("active note lost")
	}
	ids, _ := b.ListArtifacts(ctx, models.ItemNote)
	if len(ids) != 0 {
		t.Fatalf("leftover copies = %v", ids)
	}
}

func TestIndexWriteFailureCleansUpCopy(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	n := e.note(t, "A", "")
	e.handle.FailWrite(string(storage.DocTrashIndex), errors.New("disk full"))

	if _, err := e.trash.MoveNoteToTrash(ctx, n.ID); err == nil {
		t.Fatal("expected move to fail")
	}
	if _, ok := e.notes.GetNoteByID(n.ID); !ok {
		t.Fatal("source removed despite failed move")
	}
	if _, ok := e.handle.Data("trash/notes/" + n.ID + ".json"); ok {
		t.Fatal("orphaned copy not cleaned up")
	}
}

func TestRestoreWithMissingCopySelfHeals(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()
	n := e.note(t, "A", "")
	if _, err := e.trash.MoveNoteToTrash(ctx, n.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.notes.Backend().DeleteArtifact(ctx, models.ItemNote, n.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.trash.Restore(ctx, n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Restore err = %v, want ErrNotFound", err)
	}
	if items, _ := e.trash.List(ctx); len(items) != 0 {
		t.Fatalf("entry not cleared: %+v", items)
	}
}

func TestFolderTrashAndRestore(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	a := e.note(t, "a", "Work")
	b := e.note(t, "b", "Work")
	e.note(t, "c", "Home")

	box, err := e.trash.MoveFolderToTrash(ctx, "Work")
	if err != nil {
		t.Fatal(err)
	}
	if box.Type != models.ItemFolder || !slices.Equal(box.Metadata.MemberIDs, []string{a.ID, b.ID}) {
		t.Fatalf("container = %+v", box)
	}
	if slices.Contains(e.notes.GetAllFolders(), "Work") {
		t.Fatal("folder still listed")
	}
	if items, _ := e.trash.List(ctx); len(items) != 3 {
		t.Fatalf("trash = %d entries, want 3", len(items))
	}

	if _, err := e.trash.Restore(ctx, box.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := len(e.notes.NotesInFolder("Work")); got != 2 {
		t.Fatalf("notes in Work = %d", got)
	}
	if !slices.Contains(e.notes.GetAllFolders(), "Work") {
		t.Fatal("folder not re-registered")
	}
	if items, _ := e.trash.List(ctx); len(items) != 0 {
		t.Fatalf("trash = %+v", items)
	}
}

func TestEmptyFolderTrash(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()
	if _, err := e.notes.CreateFolder("Empty"); err != nil {
		t.Fatal(err)
	}
	box, err := e.trash.MoveFolderToTrash(ctx, "Empty")
	if err != nil {
		t.Fatal(err)
	}
	if len(e.notes.GetAllFolders()) != 0 {
		t.Fatal("empty folder still listed")
	}
	if _, err := e.trash.Restore(ctx, box.ID); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(e.notes.GetAllFolders(), []string{"Empty"}) {
		t.Fatalf("folders = %v", e.notes.GetAllFolders())
	}
	if _, err := e.trash.MoveFolderToTrash(ctx, "Nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing folder err = %v", err)
	}
}

func TestCategoryTrashPermanentDelete(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := e.notes.CreateFlow(noteservice.FlowInput{Title: "f", Category: "Ideas"}); err != nil {
			t.Fatal(err)
		}
	}
	box, err := e.trash.MoveCategoryToTrash(ctx, "Ideas")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.trash.PermanentlyDelete(ctx, box.ID); err != nil {
		t.Fatalf("PermanentlyDelete: %v", err)
	}
	if items, _ := e.trash.List(ctx); len(items) != 0 {
		t.Fatalf("trash = %+v", items)
	}
	if ids, _ := e.notes.Backend().ListArtifacts(ctx, models.ItemFlow); len(ids) != 0 {
		t.Fatalf("copies left: %v", ids)
	}
	if err := e.trash.PermanentlyDelete(ctx, box.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestPermanentlyDeleteToleratesMissingCopy(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	n := e.note(t, "A", "")
	if _, err := e.trash.MoveNoteToTrash(ctx, n.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.notes.Backend().DeleteArtifact(ctx, models.ItemNote, n.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.trash.PermanentlyDelete(ctx, n.ID); err != nil {
		t.Fatalf("PermanentlyDelete: %v", err)
	}
}

func TestEmptyTrashContinuesPastFailure(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		n := e.note(t, fmt.Sprintf("n%d", i), "")
		if _, err := e.trash.MoveNoteToTrash(ctx, n.ID); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, n.ID)
	}
	e.handle.FailRemove("trash/notes/"+ids[1]+".json", errors.New("locked"))

	res, err := e.trash.EmptyTrash(ctx)
	if err != nil {
		t.Fatalf("EmptyTrash: %v", err)
	}
	if res.Removed != 2 || !slices.Equal(res.Failed, []string{ids[1]}) {
		t.Fatalf("result = %+v", res)
	}
	items, err := e.trash.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != ids[1] {
		t.Fatalf("remaining = %+v", items)
	}
}

func TestListNewestFirst(t *testing.T) {
	e := newEnv(t, false)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e.trash.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	ctx := context.Background()
	first := e.note(t, "first", "")
	second := e.note(t, "second", "")
	_, _ = e.trash.MoveNoteToTrash(ctx, first.ID)
	_, _ = e.trash.MoveNoteToTrash(ctx, second.ID)
	items, _ := e.trash.List(ctx)
	if len(items) != 2 || items[0].ID != second.ID {
		t.Fatalf("order = %+v", items)
	}
}

func TestRestoreKeepsEntryWhenNothingPersists(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	n := e.note(t, "Fragile", "")
	if _, err := e.trash.MoveNoteToTrash(ctx, n.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.notes.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	e.handle.FailWrite(string(storage.DocNotes), errors.New("disk full"))
	e.local.FailSets(errors.New("quota"))
	if _, err := e.trash.Restore(ctx, n.ID); err == nil {
		t.Fatal("Restore succeeded although neither backend saved the note")
	}
	if _, ok := e.notes.GetNoteByID(n.ID); ok {
		t.Fatal("unsaved note left active")
	}
	if data, _ := e.notes.Backend().ReadArtifact(ctx, models.ItemNote, n.ID); data == nil {
		t.Fatal("trash copy deleted before the note was saved")
	}
	if items, err := e.trash.List(ctx); err != nil || len(items) != 1 || items[0].ID != n.ID {
		t.Fatalf("List = %+v, %v", items, err)
	}

	e.handle.FailWrite(string(storage.DocNotes), nil)
	e.local.FailSets(nil)
	if _, err := e.trash.Restore(ctx, n.ID); err != nil {
		t.Fatalf("Restore after recovery: %v", err)
	}
	if err := e.notes.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	saved, err := storage.ReadList[models.Note](ctx, e.notes.Backend(), storage.DocNotes, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.ContainsFunc(saved, func(m models.Note) bool { return m.ID == n.ID }) {
		t.Fatalf("restored note not on disk: %+v", saved)
	}
	if items, _ := e.trash.List(ctx); len(items) != 0 {
		t.Fatalf("trash not empty: %+v", items)
	}
}

func TestTrashIDsWithPathCharacters(t *testing.T) {
	for _, dir := range backendsUnderTest() {
		t.Run(name(dir), func(t *testing.T) {
			e := newEnv(t, dir)
			ctx := context.Background()
			ids := []string{"urn:note:1", "a/b", `c\d`, "..", "%2F"}
			var in []models.Note
			for _, id := range ids {
				in = append(in, models.Note{ID: id, Title: id})
			}
			if _, err := e.notes.ImportNotes(ctx, in); err != nil {
				t.Fatal(err)
			}
			for _, id := range ids {
				if _, err := e.trash.MoveNoteToTrash(ctx, id); err != nil {
					t.Fatalf("move %q: %v", id, err)
				}
			}
			items, err := e.trash.List(ctx)
			if err != nil || len(items) != len(ids) {
				t.Fatalf("List = %+v, %v", items, err)
			}
			if dir {
				for _, f := range e.handle.Files() {
					if strings.Count(f, "/") > 0 && !strings.HasPrefix(f, "trash/") || strings.Count(f, "/") > 2 {
						t.Errorf("unexpected file %s", f)
					}
				}
			}
			for _, id := range ids {
				if _, err := e.trash.Restore(ctx, id); err != nil {
					t.Fatalf("restore %q: %v", id, err)
				}
				if got, ok := e.notes.GetNoteByID(id); !ok || got.Title != id {
					t.Fatalf("restored %q = %+v, %v", id, got, ok)
				}
			}
		})
	}
}

func TestConcurrentFolderTrashCreatesOneEntry(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()
	e.note(t, "a", "Work")
	e.note(t, "b", "Work")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.trash.MoveFolderToTrash(ctx, "Work")
		}()
	}
	wg.Wait()

	var notFound int
	for _, err := range errs {
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrNotFound):
			notFound++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if notFound != 1 {
		t.Fatalf("errors = %v, want exactly one not found", errs)
	}
	items, err := e.trash.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var folders int
	for _, it := range items {
		if it.Type == models.ItemFolder {
			folders++
		}
	}
	if folders != 1 || len(items) != 3 {
		t.Fatalf("trash = %+v", items)
	}
}

func TestTrashRejectsUnloadedCache(t *testing.T) {
	local := kv.NewMemory(0)
	seeded := noteservice.New(noteservice.Options{Fallback: storage.NewFallback(local), Logger: quiet})
	ctx := context.Background()
	if err := seeded.Init(ctx); err != nil {
		t.Fatal(err)
	}
	n, err := seeded.CreateNote(noteservice.NoteInput{Title: "kept"})
	if err != nil {
		t.Fatal(err)
	}
	seeded.Close()

	notes := noteservice.New(noteservice.Options{Fallback: storage.NewFallback(local), Logger: quiet})
	t.Cleanup(func() { notes.Close() })
	svc := New(notes, quiet)
	if _, err := svc.MoveNoteToTrash(ctx, n.ID); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Fatalf("MoveNoteToTrash err = %v", err)
	}
	if _, err := svc.MoveFolderToTrash(ctx, "x"); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Fatalf("MoveFolderToTrash err = %v", err)
	}
	if _, err := svc.Restore(ctx, n.ID); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Fatalf("Restore err = %v", err)
	}

	if err := notes.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if item, err := svc.MoveNoteToTrash(ctx, n.ID); err != nil || item == nil {
		t.Fatalf("move after Init = %v, %v", item, err)
	}
}
