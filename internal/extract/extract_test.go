package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/apperr"
)

// writeDocx builds a minimal Word document with one paragraph per entry.
func writeDocx(t *testing.T, path string, paragraphs []string, creator string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create(docxBody)
	if err != nil {
		t.Fatal(err)
	}
	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, p)
	}
	body.WriteString(`</w:body></w:document>`)
	if _, err := w.Write([]byte(body.String())); err != nil {
		t.Fatal(err)
	}

	if creator != "" {
		w, err = zw.Create(docxCore)
		if err != nil {
			t.Fatal(err)
		}
		core := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
			`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/">` +
			`<dc:creator>` + creator + `</dc:creator><cp:revision>3</cp:revision>` +
			`<dcterms:created>2023-01-15T10:00:00Z</dcterms:created>` +
			`<dcterms:modified>2023-02-01T08:30:00Z</dcterms:modified>` +
			`</cp:coreProperties>`
		if _, err := w.Write([]byte(core)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writePDF builds a single-page PDF with a correct cross-reference table.
func writePDF(t *testing.T, path, text, author string) {
	t.Helper()
	stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Author (%s) /CreationDate (D:20230115103000+01'00') >>", author),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 6 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRegistry_For(t *testing.T) {
	r := Default()
	for _, ext := range []string{"pdf", "PDF", ".docx", "md", "txt"} {
		if !r.Supports(ext) {
			t.Errorf("expected %q to be supported", ext)
		}
	}
	if r.Supports("xlsx") {
		t.Error("xlsx should not be supported")
	}
}

func TestCanHandle_IgnoresCaseAndDot(t *testing.T) {
	cases := []struct {
		e   Extractor
		ext string
	}{
		{NewPDF(), "PDF"},
		{NewPDF(), ".Pdf"},
		{NewDOCX(), ".Docx"},
		{NewDOCX(), "DOCX"},
		{NewText(), ".md"},
		{NewText(), "TXT"},
	}
	for _, c := range cases {
		if !c.e.CanHandle(c.ext) {
			t.Errorf("%T.CanHandle(%q) = false", c.e, c.ext)
		}
	}
	if NewText().CanHandle(".pdf") {
		t.Error("text extractor claims pdf")
	}
}

func TestDOCX_Extract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.docx")
	writeDocx(t, path, []string{"První odstavec", "Second paragraph"}, "Jan Novák")

	res, err := NewDOCX().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Content != "První odstavec\nSecond paragraph" {
		t.Errorf("content = %q", res.Content)
	}
	if res.Author != "Jan Novák" {
		t.Errorf("author = %q", res.Author)
	}
	if res.Version != "3" {
		t.Errorf("version = %q", res.Version)
	}
	want := time.Date(2023, 1, 15, 10, 0, 0, 0, time.UTC)
	if res.Created == nil || !res.Created.Equal(want) {
		t.Errorf("created = %v, want %v", res.Created, want)
	}
}

func TestDOCX_CorruptIsExtractionError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewDOCX().Extract(context.Background(), path)
	var ee *apperr.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
	if !errors.Is(err, apperr.ErrExtraction) {
		t.Error("expected errors.Is(err, ErrExtraction)")
	}
}

func TestDOCX_Cancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.docx")
	writeDocx(t, path, []string{"a", "b", "c"}, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDOCX().Extract(ctx, path)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, apperr.ErrExtraction) {
		t.Error("cancellation must not be reported as an extraction failure")
	}
}

func TestPDF_Extract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.pdf")
	writePDF(t, path, "Hello World", "Jane Roe")

	res, err := NewPDF().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(res.Content, "Hello World") {
		t.Errorf("content = %q, want it to contain Hello World", res.Content)
	}
	if res.Author != "Jane Roe" {
		t.Errorf("author = %q", res.Author)
	}
	if res.Version != "1.4" {
		t.Errorf("version = %q", res.Version)
	}
	want := time.Date(2023, 1, 15, 9, 30, 0, 0, time.UTC)
	if res.Created == nil || !res.Created.Equal(want) {
		t.Errorf("created = %v, want %v", res.Created, want)
	}
}

func TestPDF_CorruptIsExtractionError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\ngarbage without xref"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewPDF().Extract(context.Background(), path)
	if !errors.Is(err, apperr.ErrExtraction) {
		t.Fatalf("err = %v, want ErrExtraction", err)
	}
}

func TestParsePDFDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"D:20230115103000Z", time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC), true},
		{"D:20230115103000-05'00'", time.Date(2023, 1, 15, 15, 30, 0, 0, time.UTC), true},
		{"D:2023", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"garbage", time.Time{}, false},
	}
	for _, c := range cases {
		got, ok := parsePDFDate(c.in)
		if ok != c.ok || (ok && !got.Equal(c.want)) {
			t.Errorf("parsePDFDate(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestText_Frontmatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.md")
	src := "---\nauthor: Ada\nversion: 2\ncreated: 2024-03-01\nproject: apollo\n---\n# Title\nBody text.\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := NewText().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Author != "Ada" || res.Version != "2" {
		t.Errorf("author/version = %q/%q", res.Author, res.Version)
	}
	if res.Created == nil || res.Created.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("created = %v", res.Created)
	}
	if res.Metadata["project"] != "apollo" {
		t.Errorf("metadata = %v", res.Metadata)
	}
	if res.Content != "# Title\nBody text." {
		t.Errorf("content = %q", res.Content)
	}
}

func TestText_InvalidYAMLFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.md")
	src := "---\n: invalid: yaml: {{{\n---\nBody\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := NewText().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(res.Content, "Body") || res.Author != "" {
		t.Errorf("unexpected result %+v", res)
	}
}
