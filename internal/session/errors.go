package session

import (
	"errors"
	"fmt"

	"github.com/sjawhar/ghost-scribe/internal/storage"
)

var (
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = storage.ErrNotFound

	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrSummarizationFailed = errors.New("summarization failed")
	ErrSummaryInProgress   = errors.New("summary already in progress")
)

// ValidationError reports a malformed request field. Nothing is mutated when
// it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
