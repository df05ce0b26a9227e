package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const kvSchemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite is a Store kept in a single SQLite table.
type SQLite struct {
	conn  *sql.DB
	quota int64
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string, quota int64) (*SQLite, error) {
	if quota <= 0 {
		quota = DefaultQuota
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("kv: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kv: ping: %w", err)
	}
	if _, err := conn.Exec(kvSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kv: apply schema: %w", err)
	}
	return &SQLite{conn: conn, quota: quota}, nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return v, true, nil
}

// Set implements Store.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("kv: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var used int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))), 0)
		FROM kv WHERE key <> ?`, key).Scan(&used)
	if err != nil {
		return fmt.Errorf("kv: usage: %w", err)
	}
	if want := entrySize(key, value); used+want > s.quota {
		return quotaError(key, used, want, s.quota)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}
	return tx.Commit()
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}
	return nil
}

// Keys implements Store.
func (s *SQLite) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("kv: keys: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Usage implements Store.
func (s *SQLite) Usage(ctx context.Context) (int64, error) {
	var used int64
	err := s.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))), 0) FROM kv`).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("kv: usage: %w", err)
	}
	return used, nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
