package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals a missing or malformed search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidFilter signals a malformed filter set.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrSegmentNotFound signals a missing segment.
	ErrSegmentNotFound = errors.New("segment not found")
	// ErrInvalidSegment signals a segment that violates catalog invariants.
	ErrInvalidSegment = errors.New("invalid segment")
	// ErrDuplicateSegment signals a repeated segment id within one catalog snapshot.
	ErrDuplicateSegment = errors.New("duplicate segment id")

	// ErrGeneratorFailure signals a text generator failure (transport, non-2xx, empty output).
	ErrGeneratorFailure = errors.New("generator failure")
	// ErrGeneratorTimeout signals a generator call that exceeded its time budget.
	ErrGeneratorTimeout = errors.New("generator timeout")
	// ErrGenerationQuotaExceeded signals an exhausted generator token budget.
	ErrGenerationQuotaExceeded = errors.New("generation quota exceeded")

	// ErrCacheUnavailable signals a response cache storage failure.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrDatasetUnavailable signals an auxiliary dataset failure.
	ErrDatasetUnavailable = errors.New("dataset unavailable")
)

// ValidationError wraps ErrInvalidQuery or ErrInvalidFilter with the offending field.
type ValidationError struct {
	Field  string
	Reason string
	kind   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.kind.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.kind }

// NewQueryError creates a query validation error.
func NewQueryError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, kind: ErrInvalidQuery}
}

// NewFilterError creates a filter validation error.
func NewFilterError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, kind: ErrInvalidFilter}
}
