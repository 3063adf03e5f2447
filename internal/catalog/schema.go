// Package catalog provides the SQLite-backed record of every indexed file.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS files (
	id           TEXT PRIMARY KEY,
	path         TEXT NOT NULL UNIQUE,
	name         TEXT NOT NULL DEFAULT '',
	extension    TEXT NOT NULL DEFAULT '',
	size         INTEGER NOT NULL DEFAULT 0,
	created_utc  TEXT NOT NULL,
	modified_utc TEXT NOT NULL,
	sha256       TEXT NOT NULL,
	author       TEXT NOT NULL DEFAULT '',
	indexed_utc  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_contents (
	file_id TEXT PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
	data    BLOB
);

CREATE INDEX IF NOT EXISTS idx_files_sha256 ON files(sha256);
`

// Catalog wraps a sql.DB with catalog operations.
type Catalog struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite catalog at path and applies the schema.
func Open(ctx context.Context, path string) (*Catalog, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &Catalog{conn: conn}, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	return c.conn.Close()
}
