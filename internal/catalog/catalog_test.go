package catalog

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/checksum"
	"github.com/starford/sowilo/internal/models"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	f, err := os.CreateTemp("", "sowilo-catalog-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	c, err := Open(context.Background(), f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testDoc(id, path, body string, modified time.Time) models.IndexDocument {
	return models.IndexDocument{
		ID:          models.FileIdentity(id),
		Path:        path,
		Name:        "report.pdf",
		Extension:   "pdf",
		Size:        int64(len(body)),
		CreatedUTC:  modified.Add(-time.Hour),
		ModifiedUTC: modified,
		SHA256:      checksum.Sum([]byte(body)),
		Content:     body,
		Raw:         []byte(body),
	}
}

func TestSchemaCreation(t *testing.T) {
	c := testCatalog(t)
	var n int
	for _, table := range []string{"files", "file_contents"} {
		if err := c.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetLastModified(t *testing.T) {
	c := testCatalog(t)
	ctx := context.Background()
	mod := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)

	if _, err := c.UpsertFile(ctx, testDoc("id-1", "/docs/report.pdf", "hello", mod)); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	got, ok, err := c.GetLastModifiedUTC(ctx, "/docs/report.pdf")
	if err != nil || !ok {
		t.Fatalf("GetLastModifiedUTC: %v, ok=%v", err, ok)
	}
	if !got.Equal(mod) {
		t.Errorf("modified = %v, want %v", got, mod)
	}

	_, ok, err = c.GetLastModifiedUTC(ctx, "/docs/missing.pdf")
	if err != nil || ok {
		t.Errorf("missing path: ok=%v err=%v", ok, err)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	c := testCatalog(t)
	ctx := context.Background()
	doc := testDoc("id-1", "/docs/report.pdf", "hello", time.Now())

	for range 2 {
		if _, err := c.UpsertFile(ctx, doc); err != nil {
			t.Fatalf("UpsertFile: %v", err)
		}
	}
	n, err := c.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	data, err := c.Content(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}
}

func TestUpsert_ReplacesStalePathOwner(t *testing.T) {
	c := testCatalog(t)
	ctx := context.Background()
	now := time.Now()

	if displaced, _ := c.UpsertFile(ctx, testDoc("old", "/docs/a.pdf", "one", now)); displaced != "" {
		t.Errorf("first upsert displaced %q", displaced)
	}
	displaced, err := c.UpsertFile(ctx, testDoc("new", "/docs/a.pdf", "two", now))
	if err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	if displaced != "old" {
		t.Errorf("displaced = %q, want old", displaced)
	}
	e, err := c.Get(ctx, "/docs/a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if e.ID != "new" {
		t.Errorf("id = %q, want new", e.ID)
	}
	if _, err := c.Content(ctx, "old"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stale content should cascade away, got %v", err)
	}
}

func TestUpsert_MoveKeepsIdentity(t *testing.T) {
	c := testCatalog(t)
	ctx := context.Background()
	doc := testDoc("id-1", "/docs/a.pdf", "body", time.Now())
	_, _ = c.UpsertFile(ctx, doc)

	doc.Path = "/docs/moved/a.pdf"
	if _, err := c.UpsertFile(ctx, doc); err != nil {
		t.Fatal(err)
	}
	paths, _ := c.Paths(ctx)
	if len(paths) != 1 || paths[0] != "/docs/moved/a.pdf" {
		t.Errorf("paths = %v", paths)
	}
}

func TestUpsert_InvalidInput(t *testing.T) {
	c := testCatalog(t)
	doc := testDoc("", "/docs/a.pdf", "x", time.Now())
	if _, err := c.UpsertFile(context.Background(), doc); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestDeleteFile(t *testing.T) {
	c := testCatalog(t)
	ctx := context.Background()
	_, _ = c.UpsertFile(ctx, testDoc("id-1", "/docs/a.pdf", "body", time.Now()))

	id, ok, err := c.DeleteFile(ctx, "/docs/a.pdf")
	if err != nil || !ok {
		t.Fatalf("DeleteFile: %v ok=%v", err, ok)
	}
	if id != "id-1" {
		t.Errorf("id = %q, want id-1", id)
	}
	_, ok, err = c.DeleteFile(ctx, "/docs/a.pdf")
	if err != nil || ok {
		t.Errorf("second delete: ok=%v err=%v", ok, err)
	}
	if _, err := c.Get(ctx, "/docs/a.pdf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
}

func TestFindByChecksumAndPathsUnder(t *testing.T) {
	c := testCatalog(t)
	ctx := context.Background()
	now := time.Now()
	_, _ = c.UpsertFile(ctx, testDoc("a", "/docs/x/a.pdf", "same", now))
	_, _ = c.UpsertFile(ctx, testDoc("b", "/docs/x/sub/b.pdf", "same", now))
	_, _ = c.UpsertFile(ctx, testDoc("c", "/docs/xy/c.pdf", "other", now))

	hits, err := c.FindByChecksum(ctx, checksum.Sum([]byte("same")))
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("FindByChecksum = %d entries, want 2", len(hits))
	}

	under, err := c.PathsUnder(ctx, "/docs/x")
	if err != nil {
		t.Fatal(err)
	}
	if len(under) != 2 {
		t.Errorf("PathsUnder = %v, want the two files below /docs/x", under)
	}
}
