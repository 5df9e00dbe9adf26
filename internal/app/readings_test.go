package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopetreehub/innerspell/internal/app"
	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/reading"
)

type readingFixture struct {
	svc       *app.ReadingService
	history   *app.HistoryService
	completer *mockCompleter
	db        *memDB
}

func newReadingFixture(t *testing.T) readingFixture {
	t.Helper()
	db := newMemDB()
	c := &mockCompleter{text: "Your week looks bright."}
	interp := newInterpretationService(t, c, db)
	svc := app.NewReadingService(&mockDeckStore{deck: testDeck(22)}, newMemSessions(), interp, db, fixedRNG{val: 0}, time.Hour, discardLogger())
	return readingFixture{svc: svc, history: app.NewHistoryService(db, discardLogger()), completer: c, db: db}
}

// readyToInterpret walks a fresh session to cards_selected.
func readyToInterpret(t *testing.T, svc *app.ReadingService, viewer domain.Viewer, spread string) reading.View {
	t.Helper()
	ctx := context.Background()
	v, err := svc.Create(ctx, viewer, app.ConfigureInput{Spread: spread})
	require.NoError(t, err)
	_, err = svc.Shuffle(ctx, viewer, v.ID)
	require.NoError(t, err)
	v, err = svc.Reveal(ctx, viewer, v.ID)
	require.NoError(t, err)
	require.Len(t, v.Pool, domain.PoolSize)
	for i := 0; i < v.Spread.NumCards; i++ {
		v, err = svc.Toggle(ctx, viewer, v.ID, i)
		require.NoError(t, err)
	}
	require.Equal(t, reading.StateCardsSelected, v.State)
	return v
}

func TestReadingService_ThreeCardWeekReading(t *testing.T) {
	f := newReadingFixture(t)
	v := readyToInterpret(t, f.svc, domain.Viewer{}, "3-card")

	v, err := f.svc.Interpret(context.Background(), domain.Viewer{}, v.ID, app.InterpretInput{Question: "What does my week look like?"})
	require.NoError(t, err)

	assert.Equal(t, reading.StateInterpretationReady, v.State)
	assert.Equal(t, "Your week looks bright.", v.Interpretation)
	require.Equal(t, 1, f.completer.calls())

	prompt := f.completer.last().Prompt
	assert.Contains(t, prompt, "What does my week look like?")
	past := strings.Index(prompt, "Past: ")
	present := strings.Index(prompt, "Present: ")
	future := strings.Index(prompt, "Future: ")
	require.True(t, past >= 0 && present > past && future > present, "positions out of order in %q", prompt)
}

func TestReadingService_EmptyQuestionNoCall(t *testing.T) {
	f := newReadingFixture(t)
	v := readyToInterpret(t, f.svc, domain.Viewer{}, "single-card")

	_, err := f.svc.Interpret(context.Background(), domain.Viewer{}, v.ID, app.InterpretInput{Question: "  "})
	require.ErrorIs(t, err, domain.ErrEmptyQuestion)
	assert.Zero(t, f.completer.calls())

	v, err = f.svc.Get(context.Background(), domain.Viewer{}, v.ID)
	require.NoError(t, err)
	assert.Equal(t, reading.StateCardsSelected, v.State)
}

func TestReadingService_FailureKeepsSelection(t *testing.T) {
	f := newReadingFixture(t)
	f.completer.err = errors.New("quota exceeded")
	v := readyToInterpret(t, f.svc, domain.Viewer{}, "3-card")
	before := v.Selected

	_, err := f.svc.Interpret(context.Background(), domain.Viewer{}, v.ID, app.InterpretInput{Question: "Will it work?"})
	require.ErrorIs(t, err, domain.ErrUpstreamLLM)
	assert.Equal(t, 1, f.completer.calls())

	v, err = f.svc.Get(context.Background(), domain.Viewer{}, v.ID)
	require.NoError(t, err)
	assert.Equal(t, reading.StateCardsSelected, v.State)
	assert.Equal(t, before, v.Selected)
}

func TestReadingService_RestartDiscardsLateResult(t *testing.T) {
	f := newReadingFixture(t)
	f.completer.block = make(chan struct{})
	v := readyToInterpret(t, f.svc, domain.Viewer{}, "single-card")

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Interpret(context.Background(), domain.Viewer{}, v.ID, app.InterpretInput{Question: "Now?"})
		done <- err
	}()
	require.Eventually(t, func() bool { return f.completer.calls() == 1 }, time.Second, time.Millisecond)

	_, err := f.svc.Toggle(context.Background(), domain.Viewer{}, v.ID, 0)
	require.ErrorIs(t, err, domain.ErrSessionBusy)

	restarted, err := f.svc.Restart(context.Background(), domain.Viewer{}, v.ID)
	require.NoError(t, err)
	assert.Equal(t, reading.StateDeckReady, restarted.State)

	close(f.completer.block)
	require.ErrorIs(t, <-done, domain.ErrStaleInterpretation)

	v, err = f.svc.Get(context.Background(), domain.Viewer{}, v.ID)
	require.NoError(t, err)
	assert.Equal(t, reading.StateDeckReady, v.State)
	assert.Empty(t, v.Interpretation)
}

func TestReadingService_UnknownSpread(t *testing.T) {
	f := newReadingFixture(t)
	_, err := f.svc.Create(context.Background(), domain.Viewer{}, app.ConfigureInput{Spread: "pyramid"})
	require.ErrorIs(t, err, domain.ErrUnknownSpread)
}

func TestReadingService_MissingSession(t *testing.T) {
	f := newReadingFixture(t)
	_, err := f.svc.Get(context.Background(), domain.Viewer{}, "nope")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestReadingService_OwnedSessionIsPrivate(t *testing.T) {
	f := newReadingFixture(t)
	alice := domain.Viewer{UserID: "alice"}
	v, err := f.svc.Create(context.Background(), alice, app.ConfigureInput{})
	require.NoError(t, err)

	_, err = f.svc.Shuffle(context.Background(), domain.Viewer{UserID: "bob"}, v.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Get(context.Background(), domain.Viewer{}, v.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestReadingService_ConfigureResets(t *testing.T) {
	f := newReadingFixture(t)
	v := readyToInterpret(t, f.svc, domain.Viewer{}, "3-card")

	v, err := f.svc.Configure(context.Background(), domain.Viewer{}, v.ID, app.ConfigureInput{Spread: "celtic-cross", Style: "practical"})
	require.NoError(t, err)
	assert.Equal(t, reading.StateDeckReady, v.State)
	assert.Equal(t, "celtic-cross", v.Spread.ID)
	assert.Equal(t, "practical", v.Style.ID)
	assert.Empty(t, v.Selected)
	assert.Empty(t, v.Pool)
}

func TestReadingService_SaveAndHistory(t *testing.T) {
	f := newReadingFixture(t)
	ctx := context.Background()
	alice := domain.Viewer{UserID: "alice"}
	bob := domain.Viewer{UserID: "bob"}

	v := readyToInterpret(t, f.svc, alice, "3-card")

	_, err := f.svc.Save(ctx, alice, v.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Interpret(ctx, alice, v.ID, app.InterpretInput{Question: "Career?"})
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, domain.Viewer{}, v.ID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	saved, err := f.svc.Save(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "alice", saved.UserID)
	assert.Equal(t, "Career?", saved.Question)
	assert.Equal(t, "Three Card Spread", saved.SpreadName)
	require.Len(t, saved.Cards, 3)
	assert.Equal(t, "Past", saved.Cards[0].Position)

	page, err := f.history.List(ctx, alice, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 10, page.PageSize)

	_, err = f.history.Get(ctx, bob, saved.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	require.ErrorIs(t, f.history.Delete(ctx, bob, saved.ID), domain.ErrForbidden)
	_, err = f.history.Get(ctx, alice, saved.ID)
	require.NoError(t, err, "non-owner delete must leave the row")

	require.NoError(t, f.history.Delete(ctx, alice, saved.ID))
	_, err = f.history.Get(ctx, alice, saved.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReadingService_StoredQuestionUsedWhenBodyEmpty(t *testing.T) {
	f := newReadingFixture(t)
	ctx := context.Background()
	v := readyToInterpret(t, f.svc, domain.Viewer{}, "3-card")

	_, err := f.svc.SetQuestion(ctx, domain.Viewer{}, v.ID, app.QuestionInput{Question: strings.Repeat("q", 1001)})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	v, err = f.svc.SetQuestion(ctx, domain.Viewer{}, v.ID, app.QuestionInput{Question: "Is the new job right?"})
	require.NoError(t, err)
	assert.Equal(t, "Is the new job right?", v.Question)

	v, err = f.svc.Interpret(ctx, domain.Viewer{}, v.ID, app.InterpretInput{})
	require.NoError(t, err)
	assert.Equal(t, reading.StateInterpretationReady, v.State)
	assert.Equal(t, 1, f.completer.calls())
	assert.Contains(t, f.completer.last().Prompt, "Is the new job right?")
}

func TestReadingService_Discard(t *testing.T) {
	f := newReadingFixture(t)
	ctx := context.Background()
	alice := domain.Viewer{UserID: "alice"}
	v := readyToInterpret(t, f.svc, alice, "single-card")

	require.ErrorIs(t, f.svc.Discard(ctx, domain.Viewer{UserID: "bob"}, v.ID), domain.ErrForbidden)
	require.NoError(t, f.svc.Discard(ctx, alice, v.ID))

	_, err := f.svc.Get(ctx, alice, v.ID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	require.ErrorIs(t, f.svc.Discard(ctx, alice, v.ID), domain.ErrSessionNotFound)
}
