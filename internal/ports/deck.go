package ports

import (
	"context"

	"github.com/hopetreehub/innerspell/internal/domain"
)

// DeckStore provides access to the tarot card reference table.
type DeckStore interface {
	GetDeck(ctx context.Context, deckID string) (domain.Deck, error)
}
