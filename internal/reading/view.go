package reading

import (
	"time"

	"github.com/hopetreehub/innerspell/internal/domain"
)

// Slot is a face-down card in the revealed pool.
type Slot struct {
	Index    int  `json:"index"`
	Selected bool `json:"selected"`
}

// View is the client-facing projection of a session. Pool cards stay face
// down; only selected cards are shown.
type View struct {
	ID             string                     `json:"id"`
	State          State                      `json:"state"`
	Spread         domain.SpreadConfiguration `json:"spread"`
	Style          domain.InterpretationStyle `json:"style"`
	Question       string                     `json:"question,omitempty"`
	DeckSize       int                        `json:"deckSize"`
	Pool           []Slot                     `json:"pool,omitempty"`
	Selected       []domain.DrawnCard         `json:"selected"`
	Remaining      int                        `json:"remaining"`
	Interpretation string                     `json:"interpretation,omitempty"`
	UpdatedAt      time.Time                  `json:"updatedAt"`
}

// View returns a copy of the client-visible state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:             s.id,
		State:          s.state,
		Spread:         s.spread,
		Style:          s.style,
		Question:       s.question,
		DeckSize:       len(s.deck),
		Selected:       make([]domain.DrawnCard, len(s.selected)),
		Remaining:      s.spread.NumCards - len(s.selected),
		Interpretation: s.result,
		UpdatedAt:      s.updatedAt,
	}
	copy(v.Selected, s.selected)
	for i, c := range s.pool {
		v.Pool = append(v.Pool, Slot{Index: i, Selected: s.selectedIndex(c.ID) >= 0})
	}
	return v
}

// Saved converts a finished session into a SavedReading for userID.
func (s *Session) Saved(userID string) (domain.SavedReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInterpretationReady {
		return domain.SavedReading{}, domain.ErrInvalidTransition
	}
	cards := make([]domain.SavedCard, len(s.selected))
	for i, dc := range s.selected {
		cards[i] = domain.SavedCard{ID: dc.ID, Name: dc.Name, Orientation: dc.Orientation, Position: dc.Position}
	}
	return domain.SavedReading{
		UserID:         userID,
		Question:       s.question,
		SpreadName:     s.spread.Name,
		SpreadNumCards: s.spread.NumCards,
		Cards:          cards,
		Interpretation: s.result,
	}, nil
}
