package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/models"
)

const entryColumns = `id, path, name, extension, size, created_utc, modified_utc, sha256, author, indexed_utc`

func validateDoc(doc models.IndexDocument) error {
	err := validation.ValidateStruct(&doc,
		validation.Field(&doc.ID, validation.Required),
		validation.Field(&doc.Path, validation.Required),
		validation.Field(&doc.SHA256, validation.Required, validation.Length(64, 64)),
		validation.Field(&doc.ModifiedUTC, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// UpsertFile inserts or updates the entry for doc.ID, together with its raw
// bytes, in one transaction. A stale row holding the same path under another
// identity is replaced and its identity returned as displaced.
func (c *Catalog) UpsertFile(ctx context.Context, doc models.IndexDocument) (displaced models.FileIdentity, err error) {
	if err := validateDoc(doc); err != nil {
		return "", err
	}
	wrap := func(err error) error {
		return &apperr.StorageError{Op: "upsert", Path: doc.Path, Err: err}
	}

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", wrap(err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var stale string
	err = tx.QueryRowContext(ctx, `DELETE FROM files WHERE path = ? AND id <> ? RETURNING id`,
		doc.Path, doc.ID.String()).Scan(&stale)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", wrap(err)
	}

	created := doc.CreatedUTC
	if created.IsZero() {
		created = doc.ModifiedUTC
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path         = excluded.path,
			name         = excluded.name,
			extension    = excluded.extension,
			size         = excluded.size,
			created_utc  = excluded.created_utc,
			modified_utc = excluded.modified_utc,
			sha256       = excluded.sha256,
			author       = excluded.author,
			indexed_utc  = excluded.indexed_utc
	`, doc.ID.String(), doc.Path, doc.Name, doc.Extension, doc.Size,
		formatTime(created), formatTime(doc.ModifiedUTC), doc.SHA256, doc.Author,
		formatTime(time.Now()))
	if err != nil {
		return "", wrap(err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO file_contents (file_id, data) VALUES (?, ?)
		ON CONFLICT(file_id) DO UPDATE SET data = excluded.data
	`, doc.ID.String(), doc.Raw)
	if err != nil {
		return "", wrap(err)
	}

	if err := tx.Commit(); err != nil {
		return "", wrap(err)
	}
	return models.FileIdentity(stale), nil
}

// GetLastModifiedUTC returns the stored modification time for path.
// ok is false when the path is not cataloged.
func (c *Catalog) GetLastModifiedUTC(ctx context.Context, path string) (t time.Time, ok bool, err error) {
	var raw string
	err = c.conn.QueryRowContext(ctx, `SELECT modified_utc FROM files WHERE path = ?`, path).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, &apperr.StorageError{Op: "get", Path: path, Err: err}
	}
	t, err = parseTime(raw)
	if err != nil {
		return time.Time{}, false, &apperr.StorageError{Op: "get", Path: path, Err: err}
	}
	return t, true, nil
}

// DeleteFile removes the entry for path and returns the identity it held.
// ok is false when nothing was cataloged under path.
func (c *Catalog) DeleteFile(ctx context.Context, path string) (models.FileIdentity, bool, error) {
	var id string
	err := c.conn.QueryRowContext(ctx, `DELETE FROM files WHERE path = ? RETURNING id`, path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &apperr.StorageError{Op: "delete", Path: path, Err: err}
	}
	return models.FileIdentity(id), true, nil
}

// Get returns the entry cataloged under path.
func (c *Catalog) Get(ctx context.Context, path string) (models.CatalogEntry, error) {
	row := c.conn.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM files WHERE path = ?`, path)
	e, err := scanEntry(row)
	if err != nil {
		return e, lookupErr("get", path, err)
	}
	return e, nil
}

// GetByID returns the entry with the given identity.
func (c *Catalog) GetByID(ctx context.Context, id models.FileIdentity) (models.CatalogEntry, error) {
	row := c.conn.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM files WHERE id = ?`, id.String())
	e, err := scanEntry(row)
	if err != nil {
		return e, lookupErr("get", id.String(), err)
	}
	return e, nil
}

// Content returns the raw bytes stored for id.
func (c *Catalog) Content(ctx context.Context, id models.FileIdentity) ([]byte, error) {
	var data []byte
	err := c.conn.QueryRowContext(ctx, `SELECT data FROM file_contents WHERE file_id = ?`, id.String()).Scan(&data)
	if err != nil {
		return nil, lookupErr("content", id.String(), err)
	}
	return data, nil
}

// FindByChecksum returns every entry whose content hash equals sum.
func (c *Catalog) FindByChecksum(ctx context.Context, sum string) ([]models.CatalogEntry, error) {
	rows, err := c.conn.QueryContext(ctx, `SELECT `+entryColumns+` FROM files WHERE sha256 = ? ORDER BY path`, sum)
	if err != nil {
		return nil, &apperr.StorageError{Op: "find", Path: sum, Err: err}
	}
	defer rows.Close()

	var out []models.CatalogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, &apperr.StorageError{Op: "find", Path: sum, Err: err}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Paths returns every cataloged path.
func (c *Catalog) Paths(ctx context.Context) ([]string, error) {
	return c.paths(ctx, `SELECT path FROM files ORDER BY path`)
}

// PathsUnder returns every cataloged path below the directory prefix.
func (c *Catalog) PathsUnder(ctx context.Context, dir string) ([]string, error) {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	return c.paths(ctx, `SELECT path FROM files WHERE substr(path, 1, ?) = ? ORDER BY path`, len(prefix), prefix)
}

// Count returns the number of cataloged files.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, &apperr.StorageError{Op: "count", Err: err}
	}
	return n, nil
}

func (c *Catalog) paths(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &apperr.StorageError{Op: "paths", Err: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, &apperr.StorageError{Op: "paths", Err: err}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (models.CatalogEntry, error) {
	var (
		e                           models.CatalogEntry
		id, created, modified, idxd string
	)
	err := s.Scan(&id, &e.Path, &e.Name, &e.Extension, &e.Size, &created, &modified, &e.SHA256, &e.Author, &idxd)
	if err != nil {
		return e, err
	}
	e.ID = models.FileIdentity(id)
	if e.CreatedUTC, err = parseTime(created); err != nil {
		return e, err
	}
	if e.ModifiedUTC, err = parseTime(modified); err != nil {
		return e, err
	}
	if e.IndexedUTC, err = parseTime(idxd); err != nil {
		return e, err
	}
	return e, nil
}

func lookupErr(op, key string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("catalog: %s %s: %w", op, key, apperr.ErrNotFound)
	}
	return &apperr.StorageError{Op: op, Path: key, Err: err}
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }
