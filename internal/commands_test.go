package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/flownote/internal/onboarding"
	"github.com/starford/flownote/internal/storage"
)

func testOptions(t *testing.T, out io.Writer) []Option {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Storage.StateDir = t.TempDir()
	return []Option{
		WithConfig(cfg),
		WithOutput(out),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
}

func readStatus(t *testing.T, buf *bytes.Buffer) onboarding.Status {
	t.Helper()
	var st onboarding.Status
	if err := json.Unmarshal(buf.Bytes(), &st); err != nil {
		t.Fatalf("decode %s: %v", buf.String(), err)
	}
	buf.Reset()
	return st
}

func TestCommandLifecycle(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	opts := testOptions(t, &buf)
	dir := filepath.Join(t.TempDir(), "vault")

	if err := Status(ctx, opts...); err != nil {
		t.Fatalf("status: %v", err)
	}
	if st := readStatus(t, &buf); st.Configured || st.Backend != storage.KindFallback {
		t.Fatalf("initial status = %+v", st)
	}

	if err := Connect(ctx, dir, opts...); err != nil {
		t.Fatalf("connect: %v", err)
	}
	buf.Reset()
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("connect did not create the directory: %v", err)
	}

	// A fresh process restores the stored handle.
	if err := Status(ctx, opts...); err != nil {
		t.Fatalf("status: %v", err)
	}
	st := readStatus(t, &buf)
	if !st.Configured || !st.Usable() || st.Backend != storage.KindDirectory || st.MigratedAt == nil {
		t.Fatalf("status after connect = %+v", st)
	}

	if err := Disconnect(ctx, opts...); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if st := readStatus(t, &buf); st.Configured {
		t.Fatalf("status after disconnect = %+v", st)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("disconnect removed the directory: %v", err)
	}
}

func TestConnectRequiresDirectory(t *testing.T) {
	if err := Connect(context.Background(), "", testOptions(t, io.Discard)...); err == nil {
		t.Fatal("connect without a directory should fail")
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("Run without config should fail")
	}
}
