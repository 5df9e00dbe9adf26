package domain

import "strconv"

// PoolSize is the number of face-down cards offered for selection. It is
// larger than any supported spread.
const PoolSize = 15

// SpreadConfiguration is a named template for a reading.
type SpreadConfiguration struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	NumCards  int      `json:"numCards"`
	Positions []string `json:"positions,omitempty"`
}

// PositionLabel returns the label for the i-th (0-based) selected card.
// Spreads without labels fall back to "Card N".
func (s SpreadConfiguration) PositionLabel(i int) string {
	if i >= 0 && i < len(s.Positions) {
		return s.Positions[i]
	}
	return "Card " + strconv.Itoa(i+1)
}

var spreads = []SpreadConfiguration{
	{
		ID:        "single-card",
		Name:      "One Card",
		NumCards:  1,
		Positions: []string{"Today's message"},
	},
	{
		ID:        "3-card",
		Name:      "Three Card Spread",
		NumCards:  3,
		Positions: []string{"Past", "Present", "Future"},
	},
	{
		ID:        "relationship",
		Name:      "Relationship Spread",
		NumCards:  5,
		Positions: []string{"You", "The Other Person", "The Connection", "Challenge", "Outcome"},
	},
	{
		ID:       "celtic-cross",
		Name:     "Celtic Cross",
		NumCards: 10,
		Positions: []string{
			"Present", "Challenge", "Foundation", "Recent Past", "Crown",
			"Near Future", "Self", "Environment", "Hopes and Fears", "Outcome",
		},
	},
}

// DefaultSpreadID is used when a caller does not pick a spread.
const DefaultSpreadID = "3-card"

// Spreads returns the fixed spread enumeration in display order.
func Spreads() []SpreadConfiguration {
	out := make([]SpreadConfiguration, len(spreads))
	copy(out, spreads)
	return out
}

// LookupSpread resolves a spread by id.
func LookupSpread(id string) (SpreadConfiguration, error) {
	if id == "" {
		id = DefaultSpreadID
	}
	for _, s := range spreads {
		if s.ID == id {
			return s, nil
		}
	}
	return SpreadConfiguration{}, ErrUnknownSpread
}

// InterpretationStyle selects the voice of the AI reading.
type InterpretationStyle struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Annotation string `json:"annotation"`
}

var styles = []InterpretationStyle{
	{ID: "traditional", Label: "Traditional", Annotation: "Interpret with classic Rider-Waite symbolism and card meanings."},
	{ID: "psychological", Label: "Psychological", Annotation: "Interpret through inner states, patterns and emotions."},
	{ID: "spiritual", Label: "Spiritual", Annotation: "Interpret with attention to growth, intuition and purpose."},
	{ID: "practical", Label: "Practical", Annotation: "Interpret with concrete, everyday suggestions."},
}

const DefaultStyleID = "traditional"

// Styles returns the fixed style enumeration.
func Styles() []InterpretationStyle {
	out := make([]InterpretationStyle, len(styles))
	copy(out, styles)
	return out
}

// LookupStyle resolves an interpretation style by id.
func LookupStyle(id string) (InterpretationStyle, error) {
	if id == "" {
		id = DefaultStyleID
	}
	for _, s := range styles {
		if s.ID == id {
			return s, nil
		}
	}
	return InterpretationStyle{}, ErrUnknownStyle
}

// Shuffle returns a fresh random permutation of cards (Fisher-Yates). The
// input slice is not modified.
func Shuffle(cards []Card, rng RNG) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// RandomOrientation picks upright or reversed with equal probability.
func RandomOrientation(rng RNG) Orientation {
	if rng.Intn(2) == 1 {
		return Reversed
	}
	return Upright
}
