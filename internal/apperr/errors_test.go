package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestExtractionError_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("bad zip")
	err := Extraction("a.docx", cause)
	if !errors.Is(err, ErrExtraction) {
		t.Error("expected ErrExtraction")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	var ee *ExtractionError
	if !errors.As(err, &ee) || ee.Path != "a.docx" {
		t.Errorf("errors.As failed: %v", err)
	}
}

func TestExtraction_PassesCancellationThrough(t *testing.T) {
	err := Extraction("a.pdf", fmt.Errorf("page 3: %w", context.Canceled))
	if errors.Is(err, ErrExtraction) {
		t.Error("cancellation must not be reported as extraction failure")
	}
	if !IsCanceled(err) {
		t.Error("expected IsCanceled")
	}
}

func TestExtraction_DoesNotDoubleWrap(t *testing.T) {
	inner := Extraction("/d/a.pdf", errors.New("bad xref"))
	err := Extraction("/d/a.pdf", inner)
	if err != inner {
		t.Fatalf("expected the original error back, got %v", err)
	}
	if got, want := err.Error(), "extract /d/a.pdf: bad xref"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestStorageAndSearchErrors(t *testing.T) {
	se := &StorageError{Op: "upsert", Path: "/x", Err: errors.New("disk full")}
	if !errors.Is(se, ErrStorage) || errors.Is(se, ErrSearchWrite) {
		t.Errorf("storage error classification wrong: %v", se)
	}
	we := &SearchWriteError{Op: "index", ID: "1", Err: errors.New("boom")}
	if !errors.Is(we, ErrSearchWrite) || errors.Is(we, ErrStorage) {
		t.Errorf("search error classification wrong: %v", we)
	}
}
