package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/ports"
	"github.com/hopetreehub/innerspell/internal/reading"
)

// ConfigureInput selects a spread and an interpretation style. Empty values
// fall back to the defaults.
type ConfigureInput struct {
	Spread string `json:"spread"`
	Style  string `json:"style"`
}

// InterpretInput carries the querent's question. An empty question falls
// back to the one stored with SetQuestion.
type InterpretInput struct {
	Question string `json:"question" validate:"max=1000"`
}

// QuestionInput replaces the session's stored question.
type QuestionInput struct {
	Question string `json:"question" validate:"max=1000"`
}

// ReadingService drives reading sessions kept in a SessionStore. Operations
// on one session are serialised; the AI call runs without holding the lock.
type ReadingService struct {
	decks    ports.DeckStore
	sessions ports.SessionStore
	interp   ports.TarotInterpreter
	readings ports.ReadingStore
	rng      domain.RNG
	ttl      time.Duration
	locks    *keyedMutex
	logger   *slog.Logger
}

func NewReadingService(
	decks ports.DeckStore,
	sessions ports.SessionStore,
	interp ports.TarotInterpreter,
	readings ports.ReadingStore,
	rng domain.RNG,
	ttl time.Duration,
	logger *slog.Logger,
) *ReadingService {
	return &ReadingService{
		decks:    decks,
		sessions: sessions,
		interp:   interp,
		readings: readings,
		rng:      rng,
		ttl:      ttl,
		locks:    newKeyedMutex(),
		logger:   logger,
	}
}

// Create starts a session in deck_ready. Signed-in viewers own their
// sessions; guest sessions are reachable by id alone.
func (s *ReadingService) Create(ctx context.Context, viewer domain.Viewer, in ConfigureInput) (reading.View, error) {
	spread, style, err := lookup(in)
	if err != nil {
		return reading.View{}, err
	}
	catalog, err := s.catalog(ctx)
	if err != nil {
		return reading.View{}, err
	}

	sess := reading.New(uuid.NewString(), catalog, spread, style, s.rng)
	sess.SetOwner(viewer.UserID)
	if err := s.put(ctx, sess); err != nil {
		return reading.View{}, err
	}
	s.logger.InfoContext(ctx, "reading session created", "session_id", sess.ID(), "spread", spread.ID, "style", style.ID)
	return sess.View(), nil
}

// Get returns the session view.
func (s *ReadingService) Get(ctx context.Context, viewer domain.Viewer, id string) (reading.View, error) {
	return s.mutate(ctx, viewer, id, nil)
}

func (s *ReadingService) Configure(ctx context.Context, viewer domain.Viewer, id string, in ConfigureInput) (reading.View, error) {
	spread, style, err := lookup(in)
	if err != nil {
		return reading.View{}, err
	}
	return s.mutate(ctx, viewer, id, func(sess *reading.Session) error {
		return sess.Configure(spread, style)
	})
}

func (s *ReadingService) Shuffle(ctx context.Context, viewer domain.Viewer, id string) (reading.View, error) {
	return s.mutate(ctx, viewer, id, (*reading.Session).Shuffle)
}

func (s *ReadingService) Reveal(ctx context.Context, viewer domain.Viewer, id string) (reading.View, error) {
	return s.mutate(ctx, viewer, id, (*reading.Session).Reveal)
}

// Toggle selects or deselects the card at a face-down pool slot.
func (s *ReadingService) Toggle(ctx context.Context, viewer domain.Viewer, id string, slot int) (reading.View, error) {
	return s.mutate(ctx, viewer, id, func(sess *reading.Session) error {
		return sess.ToggleAt(slot)
	})
}

// ToggleCard deselects or selects a pool card by id.
func (s *ReadingService) ToggleCard(ctx context.Context, viewer domain.Viewer, id, cardID string) (reading.View, error) {
	return s.mutate(ctx, viewer, id, func(sess *reading.Session) error {
		return sess.Toggle(cardID)
	})
}

// SetQuestion stores the question ahead of interpretation.
func (s *ReadingService) SetQuestion(ctx context.Context, viewer domain.Viewer, id string, in QuestionInput) (reading.View, error) {
	if err := validateStruct(in); err != nil {
		return reading.View{}, err
	}
	return s.mutate(ctx, viewer, id, func(sess *reading.Session) error {
		sess.SetQuestion(in.Question)
		return nil
	})
}

func (s *ReadingService) Restart(ctx context.Context, viewer domain.Viewer, id string) (reading.View, error) {
	return s.mutate(ctx, viewer, id, (*reading.Session).Restart)
}

// Interpret requests the interpretation. Exactly one interpreter call is
// made; on failure the session returns to cards_selected.
func (s *ReadingService) Interpret(ctx context.Context, viewer domain.Viewer, id string, in InterpretInput) (reading.View, error) {
	if err := validateStruct(in); err != nil {
		return reading.View{}, err
	}

	var (
		req ports.TarotInterpretationRequest
		gen int
	)
	if _, err := s.mutate(ctx, viewer, id, func(sess *reading.Session) error {
		var err error
		req, gen, err = sess.BeginInterpret(in.Question)
		return err
	}); err != nil {
		return reading.View{}, err
	}

	resp, callErr := s.interp.InterpretReading(ctx, req)

	// The outcome is recorded even if the caller went away.
	storeCtx := context.WithoutCancel(ctx)
	view, err := s.mutate(storeCtx, viewer, id, func(sess *reading.Session) error {
		if callErr != nil {
			sess.FailInterpret(gen)
			return nil
		}
		return sess.CompleteInterpret(gen, resp.Interpretation)
	})
	if callErr != nil {
		return view, callErr
	}
	if err != nil {
		if errors.Is(err, domain.ErrStaleInterpretation) {
			s.logger.InfoContext(ctx, "discarded interpretation for reset session", "session_id", id, "generation", gen)
		}
		return reading.View{}, err
	}
	return view, nil
}

// Save stores a finished reading in the viewer's history.
func (s *ReadingService) Save(ctx context.Context, viewer domain.Viewer, id string) (domain.SavedReading, error) {
	if err := requireViewer(viewer); err != nil {
		return domain.SavedReading{}, err
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, viewer, id)
	if err != nil {
		return domain.SavedReading{}, err
	}
	r, err := sess.Saved(viewer.UserID)
	if err != nil {
		return domain.SavedReading{}, err
	}
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	saved, err := s.readings.CreateReading(ctx, r)
	if err != nil {
		return domain.SavedReading{}, fmt.Errorf("save reading: %w", err)
	}
	s.logger.InfoContext(ctx, "reading saved", "reading_id", saved.ID, "user_id", viewer.UserID)
	return saved, nil
}

// Discard ends a session and removes it from the store.
func (s *ReadingService) Discard(ctx context.Context, viewer domain.Viewer, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, viewer, id)
	if err != nil {
		return err
	}
	if sess.State() == reading.StateInterpreting {
		return domain.ErrSessionBusy
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.InfoContext(ctx, "reading session discarded", "session_id", id)
	return nil
}

// mutate loads the session under its lock, applies fn and stores the result.
// A nil fn only reads.
func (s *ReadingService) mutate(ctx context.Context, viewer domain.Viewer, id string, fn func(*reading.Session) error) (reading.View, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, viewer, id)
	if err != nil {
		return reading.View{}, err
	}
	if fn == nil {
		return sess.View(), nil
	}
	if err := fn(sess); err != nil {
		return sess.View(), err
	}
	if err := s.put(ctx, sess); err != nil {
		return reading.View{}, err
	}
	return sess.View(), nil
}

func (s *ReadingService) load(ctx context.Context, viewer domain.Viewer, id string) (*reading.Session, error) {
	data, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := reading.UnmarshalSession(data, catalog, s.rng)
	if err != nil {
		return nil, err
	}
	if owner := sess.Owner(); owner != "" && owner != viewer.UserID {
		return nil, domain.ErrForbidden
	}
	return sess, nil
}

func (s *ReadingService) put(ctx context.Context, sess *reading.Session) error {
	data, err := sess.MarshalSnapshot()
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.sessions.Put(ctx, sess.ID(), data, s.ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *ReadingService) catalog(ctx context.Context) ([]domain.Card, error) {
	deck, err := s.decks.GetDeck(ctx, "")
	if err != nil {
		return nil, err
	}
	return deck.Cards, nil
}

func lookup(in ConfigureInput) (domain.SpreadConfiguration, domain.InterpretationStyle, error) {
	spread, err := domain.LookupSpread(in.Spread)
	if err != nil {
		return domain.SpreadConfiguration{}, domain.InterpretationStyle{}, err
	}
	style, err := domain.LookupStyle(in.Style)
	if err != nil {
		return domain.SpreadConfiguration{}, domain.InterpretationStyle{}, err
	}
	return spread, style, nil
}

// HistoryService reads and deletes saved readings. Every record is visible
// to its owner only.
type HistoryService struct {
	store  ports.ReadingStore
	logger *slog.Logger
}

func NewHistoryService(store ports.ReadingStore, logger *slog.Logger) *HistoryService {
	return &HistoryService{store: store, logger: logger}
}

func (s *HistoryService) List(ctx context.Context, viewer domain.Viewer, page, pageSize int) (domain.Page[domain.SavedReading], error) {
	if err := requireViewer(viewer); err != nil {
		return domain.Page[domain.SavedReading]{}, err
	}
	page, pageSize = normalizePage(page, pageSize)
	return s.store.ListReadings(ctx, viewer.UserID, page, pageSize)
}

func (s *HistoryService) Get(ctx context.Context, viewer domain.Viewer, id string) (domain.SavedReading, error) {
	if err := requireViewer(viewer); err != nil {
		return domain.SavedReading{}, err
	}
	r, err := s.store.GetReading(ctx, id)
	if err != nil {
		return domain.SavedReading{}, err
	}
	if err := requireOwner(viewer, r.UserID); err != nil {
		return domain.SavedReading{}, err
	}
	return r, nil
}

// Delete removes a saved reading owned by the viewer.
func (s *HistoryService) Delete(ctx context.Context, viewer domain.Viewer, id string) error {
	if _, err := s.Get(ctx, viewer, id); err != nil {
		return err
	}
	if err := s.store.DeleteReading(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "reading deleted", "reading_id", id, "user_id", viewer.UserID)
	return nil
}
