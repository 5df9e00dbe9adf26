package decks

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/hopetreehub/innerspell/internal/domain"
)

//go:embed data/*.toml
var deckFS embed.FS

// DefaultDeckID is the only deck shipped with the service.
const DefaultDeckID = "rider_waite"

// registry maps deck IDs to their TOML filenames inside data/.
var registry = map[string]string{
	DefaultDeckID: "data/cards.toml",
}

// expectedCards is the size of a full tarot deck.
const expectedCards = 78

type deckFile struct {
	Cards []domain.Card `toml:"cards"`
}

// EmbeddedStore loads decks from embedded TOML files.
type EmbeddedStore struct {
	once  sync.Once
	decks map[string]domain.Deck
	err   error
}

func NewEmbeddedStore() *EmbeddedStore {
	return &EmbeddedStore{}
}

func (s *EmbeddedStore) init() {
	s.decks = make(map[string]domain.Deck, len(registry))
	for id, filename := range registry {
		raw, err := deckFS.ReadFile(filename)
		if err != nil {
			s.err = fmt.Errorf("read embedded deck %s: %w", id, err)
			return
		}
		var f deckFile
		if _, err := toml.Decode(string(raw), &f); err != nil {
			s.err = fmt.Errorf("parse embedded deck %s: %w", id, err)
			return
		}
		if err := validate(f.Cards); err != nil {
			s.err = fmt.Errorf("validate embedded deck %s: %w", id, err)
			return
		}
		s.decks[id] = domain.Deck{
			ID:    id,
			Name:  "Rider-Waite-Smith",
			Cards: f.Cards,
		}
	}
}

func (s *EmbeddedStore) GetDeck(_ context.Context, deckID string) (domain.Deck, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return domain.Deck{}, s.err
	}
	if deckID == "" {
		deckID = DefaultDeckID
	}
	deck, ok := s.decks[deckID]
	if !ok {
		return domain.Deck{}, domain.ErrDeckNotFound
	}
	return deck, nil
}

func validate(cards []domain.Card) error {
	if len(cards) != expectedCards {
		return fmt.Errorf("expected %d cards, found %d", expectedCards, len(cards))
	}
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("card without id or name: %+v", c)
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate card id %s", c.ID)
		}
		seen[c.ID] = true
		if !c.Suit.Valid() {
			return fmt.Errorf("card %s: unknown suit %q", c.ID, c.Suit)
		}
		if (c.Arcana == domain.MajorArcana) != (c.Suit == domain.SuitMajor) {
			return fmt.Errorf("card %s: arcana %q does not match suit %q", c.ID, c.Arcana, c.Suit)
		}
		if c.MeaningUpright == "" || c.MeaningReversed == "" {
			return fmt.Errorf("card %s: missing meaning", c.ID)
		}
	}
	return nil
}
