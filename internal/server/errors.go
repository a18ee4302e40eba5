package server

import (
	"errors"
	"net/http"

	"github.com/sjawhar/ghost-scribe/internal/session"
)

// Error codes carried by session:error events and REST error bodies.
const (
	CodeValidation           = "validation"
	CodeInvalidTransition    = "invalid_transition"
	CodeNotFound             = "not_found"
	CodeTranscriptionFailed  = "transcription_failed"
	CodeTranscriptionTimeout = "transcription_timeout"
	CodeSummarizationFailed  = "summarization_failed"
	CodeSummaryInProgress    = "summary_in_progress"
	CodeInternal             = "internal"
)

// classify maps a session error to its wire code and HTTP status.
func classify(err error) (string, int) {
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		return CodeValidation, http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return CodeNotFound, http.StatusNotFound
	case errors.Is(err, session.ErrInvalidTransition):
		return CodeInvalidTransition, http.StatusConflict
	case errors.Is(err, session.ErrSummaryInProgress):
		return CodeSummaryInProgress, http.StatusConflict
	case errors.Is(err, session.ErrTranscriptionTimeout):
		return CodeTranscriptionTimeout, http.StatusGatewayTimeout
	case errors.Is(err, session.ErrTranscriptionFailed):
		return CodeTranscriptionFailed, http.StatusBadGateway
	case errors.Is(err, session.ErrSummarizationFailed):
		return CodeSummarizationFailed, http.StatusBadGateway
	default:
		return CodeInternal, http.StatusInternalServerError
	}
}

// publicMessage hides internal error details from clients.
func publicMessage(code string, err error) string {
	if code == CodeInternal {
		return "internal error"
	}
	return err.Error()
}
