package app

import (
	"fmt"

	"github.com/hopetreehub/innerspell/internal/domain"
)

// FlowError is returned when an AI flow's single completion attempt fails.
// Message is the canned text shown to the user.
type FlowError struct {
	Flow    string
	Message string
	Err     error
}

func (e *FlowError) Error() string { return e.Flow + ": " + e.Err.Error() }

func (e *FlowError) Unwrap() error { return e.Err }

func flowError(flow, message string, err error) error {
	return &FlowError{Flow: flow, Message: message, Err: fmt.Errorf("%w: %w", domain.ErrUpstreamLLM, err)}
}

// requireViewer rejects guests.
func requireViewer(v domain.Viewer) error {
	if v.Guest() {
		return domain.ErrUnauthorized
	}
	return nil
}

// requireOwner enforces author ownership before update or delete.
func requireOwner(v domain.Viewer, ownerID string) error {
	if err := requireViewer(v); err != nil {
		return err
	}
	if ownerID != v.UserID {
		return domain.ErrForbidden
	}
	return nil
}
