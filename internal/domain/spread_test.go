package domain_test

import (
	"testing"

	"github.com/hopetreehub/innerspell/internal/domain"
)

// deterministicRNG returns values from a pre-set sequence.
type deterministicRNG struct {
	values []int
	idx    int
}

func (r *deterministicRNG) Intn(n int) int {
	v := r.values[r.idx%len(r.values)] % n
	r.idx++
	return v
}

func testCards(n int) []domain.Card {
	cards := make([]domain.Card, n)
	for i := range n {
		cards[i] = domain.Card{
			ID:              "card_" + string(rune('a'+i)),
			Name:            "Card " + string(rune('A'+i)),
			KeywordsUpright: []string{"kw1", "kw2"},
			MeaningUpright:  "Short description.",
		}
	}
	return cards
}

func TestShuffle_IsPermutation(t *testing.T) {
	cards := testCards(22)
	rng := &deterministicRNG{values: []int{7, 3, 19, 0, 11, 5}}

	for round := range 2 {
		shuffled := domain.Shuffle(cards, rng)
		if len(shuffled) != len(cards) {
			t.Fatalf("round %d: expected %d cards, got %d", round, len(cards), len(shuffled))
		}
		seen := make(map[string]int)
		for _, c := range shuffled {
			seen[c.ID]++
		}
		for _, c := range cards {
			if seen[c.ID] != 1 {
				t.Errorf("round %d: card %s appears %d times", round, c.ID, seen[c.ID])
			}
		}
	}
}

func TestShuffle_DoesNotMutateInput(t *testing.T) {
	cards := testCards(5)
	rng := &deterministicRNG{values: []int{0}}

	_ = domain.Shuffle(cards, rng)

	for i, c := range cards {
		if c.ID != "card_"+string(rune('a'+i)) {
			t.Fatalf("input reordered at %d: %s", i, c.ID)
		}
	}
}

func TestShuffle_ZeroRNGRotates(t *testing.T) {
	cards := testCards(3)
	// Fisher-Yates with j=0 everywhere: swap(2,0) then swap(1,0).
	rng := &deterministicRNG{values: []int{0}}

	got := domain.Shuffle(cards, rng)

	want := []string{"card_b", "card_c", "card_a"}
	for i, c := range got {
		if c.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], c.ID)
		}
	}
}

func TestRandomOrientation(t *testing.T) {
	rng := &deterministicRNG{values: []int{0, 1}}
	if got := domain.RandomOrientation(rng); got != domain.Upright {
		t.Errorf("expected upright, got %s", got)
	}
	if got := domain.RandomOrientation(rng); got != domain.Reversed {
		t.Errorf("expected reversed, got %s", got)
	}
}

func TestLookupSpread(t *testing.T) {
	s, err := domain.LookupSpread("3-card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.NumCards != 3 || len(s.Positions) != 3 {
		t.Errorf("unexpected spread: %+v", s)
	}

	def, err := domain.LookupSpread("")
	if err != nil || def.ID != domain.DefaultSpreadID {
		t.Errorf("empty id should resolve to default, got %+v, %v", def, err)
	}

	if _, err := domain.LookupSpread("nope"); err != domain.ErrUnknownSpread {
		t.Errorf("expected ErrUnknownSpread, got %v", err)
	}
}

func TestSpreads_FitInPool(t *testing.T) {
	for _, s := range domain.Spreads() {
		if s.NumCards >= domain.PoolSize {
			t.Errorf("spread %s needs %d cards, pool is %d", s.ID, s.NumCards, domain.PoolSize)
		}
		if len(s.Positions) != 0 && len(s.Positions) != s.NumCards {
			t.Errorf("spread %s: %d positions for %d cards", s.ID, len(s.Positions), s.NumCards)
		}
	}
}

func TestPositionLabel_Fallback(t *testing.T) {
	s := domain.SpreadConfiguration{ID: "x", NumCards: 2}
	if got := s.PositionLabel(1); got != "Card 2" {
		t.Errorf("expected Card 2, got %q", got)
	}
}

func TestLookupStyle(t *testing.T) {
	if _, err := domain.LookupStyle("psychological"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := domain.LookupStyle("astrology"); err != domain.ErrUnknownStyle {
		t.Errorf("expected ErrUnknownStyle, got %v", err)
	}
}
