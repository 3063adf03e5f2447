// Package extract turns supported document formats into plain text and metadata.
package extract

import (
	"context"
	"slices"
	"strings"
	"time"
)

// Result is the output of a successful extraction.
type Result struct {
	Content  string
	Author   string
	Version  string
	Created  *time.Time
	Modified *time.Time
	// Metadata holds extra scalar properties (e.g. front matter keys).
	Metadata map[string]string
}

// Extractor extracts text from one family of file formats.
type Extractor interface {
	// CanHandle reports whether the extractor supports ext, ignoring case and
	// a leading dot.
	CanHandle(ext string) bool
	// Extract reads path and returns its content. Failures are reported as
	// *apperr.ExtractionError; cancellation is returned unwrapped.
	Extract(ctx context.Context, path string) (*Result, error)
}

// Registry dispatches by extension to the first extractor that can handle it.
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a registry from the given extractors, in priority order.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// Default returns a registry with the PDF, DOCX and text extractors.
func Default() *Registry {
	return NewRegistry(NewPDF(), NewDOCX(), NewText())
}

// For returns the extractor for ext, if any.
func (r *Registry) For(ext string) (Extractor, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, e := range r.extractors {
		if e.CanHandle(ext) {
			return e, true
		}
	}
	return nil, false
}

// Supports reports whether any registered extractor handles ext.
func (r *Registry) Supports(ext string) bool {
	_, ok := r.For(ext)
	return ok
}

// extSet is a helper for fixed extension lists.
type extSet []string

func (s extSet) CanHandle(ext string) bool {
	return slices.Contains(s, strings.ToLower(strings.TrimPrefix(ext, ".")))
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
