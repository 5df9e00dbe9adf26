package domain

import (
	"errors"
	"strings"
)

var (
	ErrDeckNotFound   = errors.New("deck not found")
	ErrUpstreamLLM    = errors.New("upstream LLM failure")
	ErrInvalidLLMJSON = errors.New("LLM returned invalid JSON")

	ErrUnknownSpread = errors.New("unknown spread")
	ErrUnknownStyle  = errors.New("unknown interpretation style")

	ErrInvalidTransition   = errors.New("operation not allowed in current state")
	ErrShuffleInProgress   = errors.New("shuffle already in progress")
	ErrDeckTooSmall        = errors.New("deck has fewer cards than the revealed pool")
	ErrCardNotInPool       = errors.New("card is not in the revealed pool")
	ErrMaxCardsSelected    = errors.New("maximum number of cards already selected")
	ErrEmptyQuestion       = errors.New("question must not be empty")
	ErrIncompleteSelection = errors.New("selected cards do not match the spread")
	ErrStaleInterpretation = errors.New("interpretation belongs to a discarded session configuration")
	ErrSessionBusy         = errors.New("session is waiting for an interpretation")
	ErrSessionNotFound     = errors.New("reading session not found")

	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("permission denied")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when input fails schema validation. No side
// effect has been attempted when it is returned.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
