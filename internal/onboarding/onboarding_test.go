package onboarding_test

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/flownote/internal/apperr"
	"github.com/starford/flownote/internal/capability"
	"github.com/starford/flownote/internal/dirhandle"
	"github.com/starford/flownote/internal/models"
	"github.com/starford/flownote/internal/noteservice"
	"github.com/starford/flownote/internal/storage"
	"github.com/starford/flownote/internal/testutil"
)

func TestConnectMigratesLocalData(t *testing.T) {
	e := testutil.NewEnv(t)
	if _, err := e.Notes.CreateNote(noteservice.NoteInput{Title: "written offline", Folder: "Inbox"}); err != nil {
		t.Fatal(err)
	}

	res := e.Connect(t)
	if res.Cancelled {
		t.Fatal("connect reported cancelled")
	}
	if res.Migrated.Notes != 1 {
		t.Fatalf("migrated = %+v", res.Migrated)
	}
	st := res.Status
	if !st.Configured || !st.Usable() || st.Unavailable {
		t.Fatalf("status = %+v", st)
	}
	if st.Backend != storage.KindDirectory || !st.Ready || st.MigratedAt == nil {
		t.Fatalf("status = %+v", st)
	}

	if _, ok := e.Dir.Data(string(storage.DocNotes)); !ok {
		t.Fatal("notes.json not written to the directory")
	}
	notes := e.Notes.GetNotes()
	if len(notes) != 1 || notes[0].Title != "written offline" {
		t.Fatalf("notes after connect = %+v", notes)
	}
	// Local data stays behind.
	if _, ok, _ := e.Local.Get(context.Background(), storage.DocumentKey(storage.DocNotes)); !ok {
		t.Fatal("fallback notes removed by migration")
	}
}

func TestConnectRequiresGesture(t *testing.T) {
	e := testutil.NewEnv(t)
	_, err := e.Onboarding.Connect(context.Background(), "")
	if !errors.Is(err, apperr.ErrNoGesture) {
		t.Fatalf("err = %v, want ErrNoGesture", err)
	}
	if e.Manager.IsConfigured(context.Background()) {
		t.Fatal("configured without a gesture")
	}
}

func TestRestoreAfterRevocation(t *testing.T) {
	e := testutil.NewEnv(t)
	e.Connect(t)
	if _, err := e.Notes.CreateNote(noteservice.NoteInput{Title: "kept"}); err != nil {
		t.Fatal(err)
	}
	e.Flush(t)

	e.Dir.SetPermission(dirhandle.PermissionDenied)
	ctx := context.Background()
	if err := e.Notes.Refresh(ctx); !apperr.IsRecoverable(err) {
		t.Fatalf("refresh err = %v, want recoverable", err)
	}
	st := e.Onboarding.Status(ctx)
	if !st.Unavailable || st.Backend != storage.KindDirectory || st.Ready {
		t.Fatalf("status while revoked = %+v", st)
	}

	_, _, err := e.Onboarding.Restore(ctx)
	if !errors.Is(err, apperr.ErrNoGesture) {
		t.Fatalf("restore without gesture err = %v", err)
	}

	e.Dir.SetRequestResult(dirhandle.PermissionGranted)
	ok, st, err := e.Onboarding.Restore(capability.WithGesture(ctx, ""))
	if err != nil || !ok {
		t.Fatalf("restore = %v, %v", ok, err)
	}
	if st.Unavailable || !st.Ready {
		t.Fatalf("status after restore = %+v", st)
	}
	if notes := e.Notes.GetNotes(); len(notes) != 1 || notes[0].Title != "kept" {
		t.Fatalf("notes after restore = %+v", notes)
	}
}

func TestDisconnectReturnsToFallback(t *testing.T) {
	e := testutil.NewEnv(t)
	e.Connect(t)
	if err := e.Notes.SetTheme(models.ThemeDarker); err != nil {
		t.Fatal(err)
	}

	st, err := e.Onboarding.Disconnect(context.Background())
	if err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if st.Configured || st.HasHandle || st.Backend != storage.KindFallback {
		t.Fatalf("status = %+v", st)
	}
	if _, ok := e.Dir.Data(string(storage.DocTheme)); !ok {
		t.Fatal("directory files removed on disconnect")
	}
	if e.Notes.GetTheme() != models.ThemeDefault {
		t.Fatalf("theme = %q, want the fallback default", e.Notes.GetTheme())
	}
}
