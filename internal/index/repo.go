package index

import (
	"encoding/json"
	"fmt"
	"time"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	ID        string
	Title     string
	Folder    string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Folder  string `json:"folder,omitempty"`
	Snippet string `json:"snippet"`
}

// UpsertNote inserts or replaces a note, its FTS entry, and links within a transaction.
func (db *DB) UpsertNote(n NoteRow, body string, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO notes (id, title, folder, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			folder     = excluded.folder,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.ID, n.Title, n.Folder, n.Checksum, string(tagsJSON), body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if err := ftsUpsert(tx, n.ID, n.Title, body, tags); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, n.ID); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(n.ID, target); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note, its FTS entry, and outgoing links.
func (db *DB) DeleteNote(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, id); err != nil {
		return fmt.Errorf("index: delete links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// AllChecksums maps every indexed note id to its content checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// Backlinks returns the ids of notes whose content links to title.
func (db *DB) Backlinks(title string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM links WHERE target = ? ORDER BY source`, title)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
