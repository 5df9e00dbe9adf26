// Package reading implements the tarot reading session: shuffle, reveal,
// card selection and the single interpretation request.
package reading

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/ports"
)

// State is a reading session state.
type State string

const (
	StateSetup               State = "setup"
	StateDeckReady           State = "deck_ready"
	StateShuffling           State = "shuffling"
	StateShuffled            State = "shuffled"
	StateSpreadRevealed      State = "spread_revealed"
	StateCardsSelected       State = "cards_selected"
	StateInterpreting        State = "interpreting"
	StateInterpretationReady State = "interpretation_ready"
)

// meaningLimit caps the per-card meaning text sent to the interpreter.
const meaningLimit = 80

// Session is one reading, owned by a single client. All methods are safe for
// concurrent use; mutations are applied only after external calls resolve.
type Session struct {
	mu sync.Mutex

	id        string
	ownerID   string
	state     State
	spread    domain.SpreadConfiguration
	style     domain.InterpretationStyle
	question  string
	catalog   []domain.Card
	deck      []domain.Card
	pool      []domain.Card
	selected  []domain.DrawnCard
	result    string
	gen       int
	rng       domain.RNG
	createdAt time.Time
	updatedAt time.Time
}

// New creates a session with a freshly shuffled deck in StateDeckReady.
func New(id string, catalog []domain.Card, spread domain.SpreadConfiguration, style domain.InterpretationStyle, rng domain.RNG) *Session {
	now := time.Now().UTC()
	s := &Session{
		id:        id,
		state:     StateSetup,
		spread:    spread,
		style:     style,
		catalog:   catalog,
		rng:       rng,
		createdAt: now,
		updatedAt: now,
	}
	s.deck = domain.Shuffle(catalog, rng)
	s.state = StateDeckReady
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// SetOwner binds the session to a signed-in user.
func (s *Session) SetOwner(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownerID = userID
}

// Owner returns the bound user id, empty for guests.
func (s *Session) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerID
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Shuffle replaces the deck with a fresh permutation of the full catalog.
// Overlapping calls fail with domain.ErrShuffleInProgress.
func (s *Session) Shuffle() error {
	s.mu.Lock()
	switch s.state {
	case StateShuffling:
		s.mu.Unlock()
		return domain.ErrShuffleInProgress
	case StateDeckReady, StateShuffled:
	default:
		s.mu.Unlock()
		return fmt.Errorf("shuffle from %s: %w", s.state, domain.ErrInvalidTransition)
	}
	s.state = StateShuffling
	catalog, rng := s.catalog, s.rng
	s.mu.Unlock()

	deck := domain.Shuffle(catalog, rng)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deck = deck
	s.state = StateShuffled
	s.touch()
	return nil
}

// Reveal lays out the first PoolSize cards of the deck face down.
func (s *Session) Reveal() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateShuffled {
		return fmt.Errorf("reveal from %s: %w", s.state, domain.ErrInvalidTransition)
	}
	if len(s.deck) < domain.PoolSize {
		return domain.ErrDeckTooSmall
	}
	s.pool = make([]domain.Card, domain.PoolSize)
	copy(s.pool, s.deck[:domain.PoolSize])
	s.selected = nil
	s.state = StateSpreadRevealed
	s.touch()
	return nil
}

// Toggle selects or deselects the pool card with the given id.
func (s *Session) Toggle(cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggle(cardID)
}

// ToggleAt toggles the card at a face-down pool slot.
func (s *Session) ToggleAt(slot int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.canSelect(); err != nil {
		return err
	}
	if slot < 0 || slot >= len(s.pool) {
		return domain.ErrCardNotInPool
	}
	return s.toggle(s.pool[slot].ID)
}

// canSelect reports whether cards may be picked in the current state.
func (s *Session) canSelect() error {
	switch s.state {
	case StateSpreadRevealed, StateCardsSelected:
		return nil
	case StateInterpreting:
		return domain.ErrSessionBusy
	}
	return fmt.Errorf("select from %s: %w", s.state, domain.ErrInvalidTransition)
}

func (s *Session) toggle(cardID string) error {
	if err := s.canSelect(); err != nil {
		return err
	}

	card, ok := s.poolCard(cardID)
	if !ok {
		return domain.ErrCardNotInPool
	}

	if i := s.selectedIndex(cardID); i >= 0 {
		s.selected = append(s.selected[:i], s.selected[i+1:]...)
		s.relabel()
	} else {
		if len(s.selected) >= s.spread.NumCards {
			return domain.ErrMaxCardsSelected
		}
		s.selected = append(s.selected, domain.DrawnCard{
			Card:        card,
			Position:    s.spread.PositionLabel(len(s.selected)),
			Orientation: domain.RandomOrientation(s.rng),
		})
	}

	if len(s.selected) == s.spread.NumCards {
		s.state = StateCardsSelected
	} else {
		s.state = StateSpreadRevealed
	}
	s.touch()
	return nil
}

func (s *Session) poolCard(id string) (domain.Card, bool) {
	for _, c := range s.pool {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Card{}, false
}

func (s *Session) selectedIndex(id string) int {
	for i, dc := range s.selected {
		if dc.ID == id {
			return i
		}
	}
	return -1
}

// relabel keeps position labels in spread order after a removal.
// Orientation is left untouched.
func (s *Session) relabel() {
	for i := range s.selected {
		s.selected[i].Position = s.spread.PositionLabel(i)
	}
}

// SetQuestion stores the querent's question.
func (s *Session) SetQuestion(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.question = strings.TrimSpace(q)
	s.touch()
}

// BeginInterpret validates the session and moves it to StateInterpreting.
// It returns the request to send and the generation the answer belongs to.
func (s *Session) BeginInterpret(question string) (ports.TarotInterpretationRequest, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateInterpreting {
		return ports.TarotInterpretationRequest{}, 0, domain.ErrSessionBusy
	}
	q := strings.TrimSpace(question)
	if q == "" {
		q = s.question
	}
	if q == "" {
		return ports.TarotInterpretationRequest{}, 0, domain.ErrEmptyQuestion
	}
	if len(s.selected) != s.spread.NumCards {
		return ports.TarotInterpretationRequest{}, 0, domain.ErrIncompleteSelection
	}
	if s.state != StateCardsSelected {
		return ports.TarotInterpretationRequest{}, 0, fmt.Errorf("interpret from %s: %w", s.state, domain.ErrInvalidTransition)
	}

	s.question = q
	s.state = StateInterpreting
	s.touch()
	return s.request(), s.gen, nil
}

// CompleteInterpret stores the interpretation for generation gen.
func (s *Session) CompleteInterpret(gen int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != StateInterpreting {
		return domain.ErrStaleInterpretation
	}
	s.result = text
	s.state = StateInterpretationReady
	s.touch()
	return nil
}

// FailInterpret returns the session to StateCardsSelected with its
// selections intact.
func (s *Session) FailInterpret(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != StateInterpreting {
		return
	}
	s.state = StateCardsSelected
	s.touch()
}

// Interpret performs one interpretation round trip. There is no retry.
func (s *Session) Interpret(ctx context.Context, question string, interp ports.TarotInterpreter) (string, error) {
	req, gen, err := s.BeginInterpret(question)
	if err != nil {
		return "", err
	}
	resp, err := interp.InterpretReading(ctx, req)
	if err != nil {
		s.FailInterpret(gen)
		return "", err
	}
	if err := s.CompleteInterpret(gen, resp.Interpretation); err != nil {
		return "", err
	}
	return resp.Interpretation, nil
}

// Configure switches spread and style, discarding the deck, the revealed
// pool, any selection and any pending interpretation.
func (s *Session) Configure(spread domain.SpreadConfiguration, style domain.InterpretationStyle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateShuffling {
		return domain.ErrShuffleInProgress
	}
	s.spread = spread
	s.style = style
	s.reset()
	return nil
}

// Restart begins a fresh reading with the current spread and style.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateShuffling {
		return domain.ErrShuffleInProgress
	}
	s.reset()
	return nil
}

func (s *Session) reset() {
	s.deck = domain.Shuffle(s.catalog, s.rng)
	s.pool = nil
	s.selected = nil
	s.result = ""
	s.gen++
	s.state = StateDeckReady
	s.touch()
}

func (s *Session) request() ports.TarotInterpretationRequest {
	lines := make([]string, len(s.selected))
	for i, dc := range s.selected {
		lines[i] = fmt.Sprintf("%s: %s (%s) - %s",
			dc.Position, dc.Name, dc.Orientation.Label(), truncate(dc.Meaning(dc.Orientation), meaningLimit))
	}
	return ports.TarotInterpretationRequest{
		Question:            fmt.Sprintf("%s\n(Interpretation style: %s. %s)", s.question, s.style.Label, s.style.Annotation),
		CardSpread:          fmt.Sprintf("%s (%d cards)", s.spread.Name, s.spread.NumCards),
		CardInterpretations: strings.Join(lines, "\n"),
	}
}

func (s *Session) touch() { s.updatedAt = time.Now().UTC() }

func truncate(text string, limit int) string {
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return string(r[:limit]) + "..."
}
