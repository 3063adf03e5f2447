// Package apperr defines the error taxonomy shared by the indexing pipeline.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrClosed       = errors.New("closed")

	// ErrExtraction marks a corrupt or unsupported document.
	ErrExtraction = errors.New("extraction failed")
	// ErrStorage marks a catalog I/O or transaction failure.
	ErrStorage = errors.New("storage failure")
	// ErrSearchWrite marks a failed index write or commit.
	ErrSearchWrite = errors.New("search write failed")
)

// ExtractionError reports that a document could not be turned into text.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() []error { return []error{ErrExtraction, e.Err} }

// StorageError reports a catalog failure for one path.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("catalog %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// SearchWriteError reports a failed index write for one document.
type SearchWriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *SearchWriteError) Error() string {
	return fmt.Sprintf("search %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *SearchWriteError) Unwrap() []error { return []error{ErrSearchWrite, e.Err} }

// Extraction wraps err as an ExtractionError unless it is a cancellation or
// already an extraction failure.
func Extraction(path string, err error) error {
	if err == nil || IsCanceled(err) || errors.Is(err, ErrExtraction) {
		return err
	}
	return &ExtractionError{Path: path, Err: err}
}

// IsCanceled reports whether err is a cancellation rather than a failure.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
