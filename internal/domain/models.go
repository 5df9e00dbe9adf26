package domain

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
}

// Orientation represents the orientation of a drawn tarot card.
type Orientation string

const (
	Upright  Orientation = "upright"
	Reversed Orientation = "reversed"
)

// Label is the capitalised form used in prompts.
func (o Orientation) Label() string {
	if o == Reversed {
		return "Reversed"
	}
	return "Upright"
}

// Arcana groups the 78 cards into major and minor.
type Arcana string

const (
	MajorArcana Arcana = "major"
	MinorArcana Arcana = "minor"
)

// Suit is the fixed suit enumeration. Major arcana cards use SuitMajor.
type Suit string

const (
	SuitMajor     Suit = "major"
	SuitWands     Suit = "wands"
	SuitCups      Suit = "cups"
	SuitSwords    Suit = "swords"
	SuitPentacles Suit = "pentacles"
)

// Valid reports whether s is one of the known suits.
func (s Suit) Valid() bool {
	switch s {
	case SuitMajor, SuitWands, SuitCups, SuitSwords, SuitPentacles:
		return true
	}
	return false
}

// Card represents a single tarot card. Cards are reference data and never mutated.
type Card struct {
	ID               string   `json:"id" toml:"id"`
	Name             string   `json:"name" toml:"name"`
	Arcana           Arcana   `json:"arcana" toml:"arcana"`
	Suit             Suit     `json:"suit" toml:"suit"`
	Number           int      `json:"number" toml:"number"`
	KeywordsUpright  []string `json:"keywordsUpright" toml:"keywords_upright"`
	KeywordsReversed []string `json:"keywordsReversed" toml:"keywords_reversed"`
	MeaningUpright   string   `json:"meaningUpright" toml:"meaning_upright"`
	MeaningReversed  string   `json:"meaningReversed" toml:"meaning_reversed"`
	Description      string   `json:"description,omitempty" toml:"description"`
}

// Meaning returns the meaning text for the given orientation.
func (c Card) Meaning(o Orientation) string {
	if o == Reversed {
		return c.MeaningReversed
	}
	return c.MeaningUpright
}

// Keywords returns the keyword set for the given orientation.
func (c Card) Keywords(o Orientation) []string {
	if o == Reversed {
		return c.KeywordsReversed
	}
	return c.KeywordsUpright
}

// DrawnCard is a card bound to an orientation and a spread position.
type DrawnCard struct {
	Card
	Position    string      `json:"position"`
	Orientation Orientation `json:"orientation"`
}

// Deck is an ordered sequence of card references.
type Deck struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Cards []Card `json:"cards"`
}
