package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/starford/sowilo/internal/apperr"
)

var pdfVersionRe = regexp.MustCompile(`%PDF-(\d+\.\d+)`)

// PDF extracts page text and document info from PDF files.
type PDF struct{ extSet }

// NewPDF creates a PDF extractor.
func NewPDF() *PDF { return &PDF{extSet{"pdf"}} }

// Extract implements Extractor. The context is checked before every page.
func (p *PDF) Extract(ctx context.Context, path string) (res *Result, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, apperr.Extraction(path, fmt.Errorf("pdf: %v", r))
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, apperr.Extraction(path, err)
	}
	defer f.Close()

	res = &Result{Version: readPDFVersion(f)}
	readPDFInfo(r, res)

	var b strings.Builder
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, perr := page.GetPlainText(nil)
		if perr != nil {
			return nil, apperr.Extraction(path, fmt.Errorf("page %d: %w", i, perr))
		}
		if b.Len() > 0 && text != "" {
			b.WriteByte('\n')
		}
		b.WriteString(text)
	}
	res.Content = strings.TrimSpace(b.String())
	return res, nil
}

func readPDFInfo(r *pdf.Reader, res *Result) {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return
	}
	res.Author = strings.TrimSpace(info.Key("Author").Text())
	if t, ok := parsePDFDate(info.Key("CreationDate").Text()); ok {
		res.Created = timePtr(t)
	}
	if t, ok := parsePDFDate(info.Key("ModDate").Text()); ok {
		res.Modified = timePtr(t)
	}
}

func readPDFVersion(f *os.File) string {
	buf := make([]byte, 32)
	n, err := f.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return ""
	}
	m := pdfVersionRe.FindSubmatch(buf[:n])
	if m == nil {
		return ""
	}
	return string(m[1])
}

// parsePDFDate parses the PDF date form D:YYYYMMDDHHmmSSOHH'mm'.
// Every component after the year is optional.
func parsePDFDate(s string) (time.Time, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	if len(s) < 4 {
		return time.Time{}, false
	}
	digits := 0
	for digits < len(s) && digits < 14 && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	// Pad missing month/day with 01 and time with 0.
	stamp := s[:digits]
	const full = "00000101000000"
	if digits < len(full) {
		stamp += full[digits:]
	}
	t, err := time.Parse("20060102150405", stamp)
	if err != nil {
		return time.Time{}, false
	}

	tz := strings.ReplaceAll(s[digits:], "'", "")
	if tz == "" || tz[0] == 'Z' {
		return t, true
	}
	sign := 1
	switch tz[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return t, true
	}
	tz = tz[1:]
	var hh, mm int
	if len(tz) >= 2 {
		fmt.Sscanf(tz[:2], "%d", &hh)
	}
	if len(tz) >= 4 {
		fmt.Sscanf(tz[2:4], "%d", &mm)
	}
	offset := sign * (hh*3600 + mm*60)
	return t.Add(-time.Duration(offset) * time.Second), true
}
