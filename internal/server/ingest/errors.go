package ingest

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnsupportedType    = errors.New("unsupported document type")
	ErrFileUnreadable     = errors.New("file unreadable")
	ErrContentTooLarge    = errors.New("content too large")
	ErrConversionFailed   = errors.New("conversion failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrAlreadyIngested    = errors.New("document already ingested")
)

// ConversionError reports the zero-based page at which conversion failed.
// It matches ErrConversionFailed with errors.Is.
type ConversionError struct {
	Page int
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion failed at page %d: %v", e.Page, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

func (e *ConversionError) Is(target error) bool { return target == ErrConversionFailed }

// ConversionFailed wraps err as a failure of the given page.
func ConversionFailed(page int, err error) error {
	return &ConversionError{Page: page, Err: err}
}

// IsTransient reports whether a retry of the same input may succeed:
// conversion timeouts and storage outages. Validation failures are never
// transient.
func IsTransient(err error) bool {
	if errors.Is(err, ErrStorageUnavailable) {
		return true
	}
	var ce *ConversionError
	return errors.As(err, &ce) && errors.Is(ce.Err, context.DeadlineExceeded)
}
