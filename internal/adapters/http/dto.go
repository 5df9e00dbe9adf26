package http

import (
	"github.com/hopetreehub/innerspell/internal/domain"
)

// Envelope is the uniform JSON shape of every API response.
type Envelope struct {
	Success     bool                `json:"success"`
	Data        any                 `json:"data,omitempty"`
	ID          string              `json:"id,omitempty"`
	PostID      string              `json:"postId,omitempty"`
	Error       string              `json:"error,omitempty"`
	FieldErrors []domain.FieldError `json:"fieldErrors,omitempty"`
}

// CatalogResponse is returned by GET /v1/cards.
type CatalogResponse struct {
	Deck  string        `json:"deck"`
	Name  string        `json:"name"`
	Count int           `json:"count"`
	Cards []domain.Card `json:"cards"`
}

// SpreadsResponse is returned by GET /v1/spreads.
type SpreadsResponse struct {
	Spreads  []domain.SpreadConfiguration `json:"spreads"`
	Styles   []domain.InterpretationStyle `json:"styles"`
	PoolSize int                          `json:"poolSize"`
}

// InterpretationResponse wraps a dream interpretation.
type InterpretationResponse struct {
	Interpretation string `json:"interpretation"`
}

type RoleRequest struct {
	Role domain.Role `json:"role"`
}

func okEnvelope(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

func errEnvelope(msg string) Envelope {
	return Envelope{Success: false, Error: msg}
}
