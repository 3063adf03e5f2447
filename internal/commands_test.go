package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/sowilo/internal/docservice"
)

func testConfig(t *testing.T) (*Config, string) {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "docs")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	cfg.Watch.Roots = []string{root}
	cfg.Catalog.Path = filepath.Join(dir, "catalog.db")
	cfg.Search.Path = filepath.Join(dir, "index.bleve")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg, root
}

func TestReindexThenSearch(t *testing.T) {
	cfg, root := testConfig(t)
	if err := os.WriteFile(filepath.Join(root, "faktura.md"), []byte("Faktura za služby"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	opts := []Option{WithConfig(cfg), WithLogOutput(io.Discard)}

	var out bytes.Buffer
	if err := Reindex(ctx, &out, opts...); err != nil {
		t.Fatal(err)
	}
	var rep docservice.ReindexReport
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out.String())
	}
	if rep.Reindex.Indexed != 1 {
		t.Errorf("indexed = %d, want 1", rep.Reindex.Indexed)
	}

	out.Reset()
	if err := Search(ctx, &out, docservice.SearchRequest{Query: "sluzby"}, opts...); err != nil {
		t.Fatal(err)
	}
	var res docservice.SearchResponse
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out.String())
	}
	if res.Total != 1 || res.Hits[0].Name != "faktura.md" {
		t.Errorf("unexpected result: %s", out.String())
	}
}

func TestReindex_SkipsUnchangedOnSecondRun(t *testing.T) {
	cfg, root := testConfig(t)
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	opts := []Option{WithConfig(cfg), WithLogOutput(io.Discard)}

	if err := Reindex(ctx, io.Discard, opts...); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := Reindex(ctx, &out, opts...); err != nil {
		t.Fatal(err)
	}
	var rep docservice.ReindexReport
	_ = json.Unmarshal(out.Bytes(), &rep)
	if rep.Reindex.Skipped != 1 || rep.Reindex.Indexed != 0 {
		t.Errorf("second run = %+v, want one skipped", rep.Reindex)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestReindex_MissingRootIsSkipped(t *testing.T) {
	cfg, root := testConfig(t)
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644); err != nil {
		t.Fatal(err)
	}
	gone := filepath.Join(filepath.Dir(root), "absent")
	cfg.Watch.Roots = append(cfg.Watch.Roots, gone)

	if got := missingRoots(cfg.Watch.Roots); len(got) != 1 || got[0] != gone {
		t.Fatalf("missingRoots = %v, want [%s]", got, gone)
	}

	var out bytes.Buffer
	if err := Reindex(context.Background(), &out, WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatal(err)
	}
	var rep docservice.ReindexReport
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out.String())
	}
	if rep.Reindex.Indexed != 1 {
		t.Errorf("indexed = %d, want 1", rep.Reindex.Indexed)
	}
	if _, err := os.Stat(gone); !os.IsNotExist(err) {
		t.Errorf("missing root was created: %v", err)
	}
}
