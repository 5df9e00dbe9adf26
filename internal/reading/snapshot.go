package reading

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hopetreehub/innerspell/internal/domain"
)

// Snapshot is the serialized form of a session. Cards are stored by id and
// resolved against the catalog on Restore.
type Snapshot struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"ownerId,omitempty"`
	State          State           `json:"state"`
	SpreadID       string          `json:"spreadId"`
	StyleID        string          `json:"styleId"`
	Question       string          `json:"question,omitempty"`
	Deck           []string        `json:"deck"`
	Pool           []string        `json:"pool,omitempty"`
	Selected       []snapshotDrawn `json:"selected,omitempty"`
	Interpretation string          `json:"interpretation,omitempty"`
	Generation     int             `json:"generation"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type snapshotDrawn struct {
	ID          string             `json:"id"`
	Position    string             `json:"position"`
	Orientation domain.Orientation `json:"orientation"`
}

// Snapshot captures the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:             s.id,
		OwnerID:        s.ownerID,
		State:          s.state,
		SpreadID:       s.spread.ID,
		StyleID:        s.style.ID,
		Question:       s.question,
		Deck:           cardIDs(s.deck),
		Pool:           cardIDs(s.pool),
		Interpretation: s.result,
		Generation:     s.gen,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.updatedAt,
	}
	for _, dc := range s.selected {
		snap.Selected = append(snap.Selected, snapshotDrawn{ID: dc.ID, Position: dc.Position, Orientation: dc.Orientation})
	}
	return snap
}

// MarshalSnapshot encodes the session for a session store.
func (s *Session) MarshalSnapshot() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// Restore rebuilds a session from a snapshot.
func Restore(snap Snapshot, catalog []domain.Card, rng domain.RNG) (*Session, error) {
	spread, err := domain.LookupSpread(snap.SpreadID)
	if err != nil {
		return nil, err
	}
	style, err := domain.LookupStyle(snap.StyleID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Card, len(catalog))
	for _, c := range catalog {
		byID[c.ID] = c
	}

	deck, err := resolve(snap.Deck, byID)
	if err != nil {
		return nil, err
	}
	pool, err := resolve(snap.Pool, byID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:        snap.ID,
		ownerID:   snap.OwnerID,
		state:     snap.State,
		spread:    spread,
		style:     style,
		question:  snap.Question,
		catalog:   catalog,
		deck:      deck,
		pool:      pool,
		result:    snap.Interpretation,
		gen:       snap.Generation,
		rng:       rng,
		createdAt: snap.CreatedAt,
		updatedAt: snap.UpdatedAt,
	}
	for _, sd := range snap.Selected {
		c, ok := byID[sd.ID]
		if !ok {
			return nil, fmt.Errorf("restore selected card %q: %w", sd.ID, domain.ErrNotFound)
		}
		s.selected = append(s.selected, domain.DrawnCard{Card: c, Position: sd.Position, Orientation: sd.Orientation})
	}
	// A shuffle never spans a store round trip.
	if s.state == StateShuffling {
		s.state = StateDeckReady
	}
	return s, nil
}

// UnmarshalSession decodes data produced by MarshalSnapshot.
func UnmarshalSession(data []byte, catalog []domain.Card, rng domain.RNG) (*Session, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return Restore(snap, catalog, rng)
}

func cardIDs(cards []domain.Card) []string {
	if len(cards) == 0 {
		return nil
	}
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func resolve(ids []string, byID map[string]domain.Card) ([]domain.Card, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]domain.Card, len(ids))
	for i, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("restore card %q: %w", id, domain.ErrNotFound)
		}
		out[i] = c
	}
	return out, nil
}
