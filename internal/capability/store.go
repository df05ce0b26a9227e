package capability

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/flownote/internal/dirhandle"
)

// DirectorySlot is the single slot the live directory handle is kept under.
const DirectorySlot = "directory"

// HandleStore persists handle descriptors across restarts.
type HandleStore interface {
	// Load returns the descriptor in slot, or nil when the slot is empty.
	Load(ctx context.Context, slot string) (*dirhandle.Descriptor, error)
	Save(ctx context.Context, slot string, d dirhandle.Descriptor) error
	Delete(ctx context.Context, slot string) error
}

const slotSchemaSQL = `
CREATE TABLE IF NOT EXISTS capability_slots (
	slot     TEXT PRIMARY KEY,
	kind     TEXT NOT NULL,
	location TEXT NOT NULL,
	name     TEXT NOT NULL DEFAULT '',
	saved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore is a HandleStore kept in its own small SQLite database.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLiteStore opens (or creates) the handle database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("capability: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("capability: ping: %w", err)
	}
	if _, err := conn.Exec(slotSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("capability: apply schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

// Load implements HandleStore.
func (s *SQLiteStore) Load(ctx context.Context, slot string) (*dirhandle.Descriptor, error) {
	var d dirhandle.Descriptor
	err := s.conn.QueryRowContext(ctx,
		`SELECT kind, location, name FROM capability_slots WHERE slot = ?`, slot,
	).Scan(&d.Kind, &d.Location, &d.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("capability: load %s: %w", slot, err)
	}
	return &d, nil
}

// Save implements HandleStore.
func (s *SQLiteStore) Save(ctx context.Context, slot string, d dirhandle.Descriptor) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO capability_slots (slot, kind, location, name, saved_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(slot) DO UPDATE SET
			kind     = excluded.kind,
			location = excluded.location,
			name     = excluded.name,
			saved_at = excluded.saved_at
	`, slot, d.Kind, d.Location, d.Name)
	if err != nil {
		return fmt.Errorf("capability: save %s: %w", slot, err)
	}
	return nil
}

// Delete implements HandleStore.
func (s *SQLiteStore) Delete(ctx context.Context, slot string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM capability_slots WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("capability: delete %s: %w", slot, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// MemoryStore is an in-process HandleStore.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]dirhandle.Descriptor
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]dirhandle.Descriptor)}
}

// Load implements HandleStore.
func (s *MemoryStore) Load(_ context.Context, slot string) (*dirhandle.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.slots[slot]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// Save implements HandleStore.
func (s *MemoryStore) Save(_ context.Context, slot string, d dirhandle.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot] = d
	return nil
}

// Delete implements HandleStore.
func (s *MemoryStore) Delete(_ context.Context, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, slot)
	return nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
