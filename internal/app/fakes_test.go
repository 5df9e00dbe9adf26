package app_test

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/ports"
	"github.com/hopetreehub/innerspell/internal/prompt"
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func loadDefaults(t *testing.T) prompt.Defaults {
	t.Helper()
	d, err := prompt.LoadDefaults()
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	return d
}

// mockCompleter records every request and replays a fixed answer.
type mockCompleter struct {
	mu    sync.Mutex
	reqs  []ports.CompletionRequest
	text  string
	err   error
	block chan struct{}
}

func (m *mockCompleter) Complete(_ context.Context, req ports.CompletionRequest) (ports.CompletionResponse, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	if m.err != nil {
		return ports.CompletionResponse{}, m.err
	}
	return ports.CompletionResponse{Text: m.text, Model: "test-model"}, nil
}

func (m *mockCompleter) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reqs)
}

func (m *mockCompleter) last() ports.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reqs[len(m.reqs)-1]
}

type fixedRNG struct{ val int }

func (r fixedRNG) Intn(n int) int { return r.val % n }

type mockDeckStore struct {
	deck domain.Deck
	err  error
}

func (m *mockDeckStore) GetDeck(_ context.Context, _ string) (domain.Deck, error) {
	return m.deck, m.err
}

func testDeck(n int) domain.Deck {
	cards := make([]domain.Card, n)
	for i := range n {
		cards[i] = domain.Card{
			ID:              fmt.Sprintf("card_%02d", i),
			Name:            fmt.Sprintf("Card %02d", i),
			Arcana:          domain.MajorArcana,
			Suit:            domain.SuitMajor,
			Number:          i,
			MeaningUpright:  "Upright.",
			MeaningReversed: "Reversed.",
		}
	}
	return domain.Deck{ID: "rider_waite", Name: "Test", Cards: cards}
}

type memSessions struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemSessions() *memSessions { return &memSessions{data: map[string][]byte{}} }

func (m *memSessions) Get(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return d, nil
}

func (m *memSessions) Put(_ context.Context, id string, data []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = data
	return nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

// memDB implements every store port on maps.
type memDB struct {
	mu       sync.Mutex
	posts    map[string]domain.Post
	comments map[string]domain.Comment
	readings map[string]domain.SavedReading
	profiles map[string]domain.Profile
	subs     map[string]domain.Subscription
	settings map[string]domain.PromptSettings
	seq      int
}

func newMemDB() *memDB {
	return &memDB{
		posts:    map[string]domain.Post{},
		comments: map[string]domain.Comment{},
		readings: map[string]domain.SavedReading{},
		profiles: map[string]domain.Profile{},
		subs:     map[string]domain.Subscription{},
		settings: map[string]domain.PromptSettings{},
	}
}

func (m *memDB) CreatePost(_ context.Context, p domain.Post) (domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p.CreatedAt = p.CreatedAt.Add(time.Duration(m.seq) * time.Millisecond)
	m.posts[p.ID] = p
	return p, nil
}

func (m *memDB) GetPost(_ context.Context, id string) (domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memDB) ListPosts(_ context.Context, f domain.PostFilter) (domain.Page[domain.Post], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Post
	for _, p := range m.posts {
		if f.Category == "" || p.Category == f.Category {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	page := domain.Page[domain.Post]{Total: len(all), Page: f.Page, PageSize: f.PageSize, Items: []domain.Post{}}
	start := min(f.Offset(), len(all))
	end := min(start+f.PageSize, len(all))
	page.Items = append(page.Items, all[start:end]...)
	return page, nil
}

func (m *memDB) UpdatePost(_ context.Context, p domain.Post) (domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[p.ID]; !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	m.posts[p.ID] = p
	return p, nil
}

func (m *memDB) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memDB) SetViewCount(_ context.Context, id string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ViewCount = n
	m.posts[id] = p
	return nil
}

func (m *memDB) SetCommentCount(_ context.Context, id string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.CommentCount = n
	m.posts[id] = p
	return nil
}

func (m *memDB) CreateComment(_ context.Context, c domain.Comment) (domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[c.ID] = c
	return c, nil
}

func (m *memDB) GetComment(_ context.Context, id string) (domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *memDB) ListComments(_ context.Context, postID string) ([]domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Comment{}
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memDB) UpdateComment(_ context.Context, c domain.Comment) (domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[c.ID] = c
	return c, nil
}

func (m *memDB) DeleteComment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

func (m *memDB) DeleteCommentsByPost(_ context.Context, postID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, c := range m.comments {
		if c.PostID == postID {
			delete(m.comments, id)
			n++
		}
	}
	return n, nil
}

func (m *memDB) CreateReading(_ context.Context, r domain.SavedReading) (domain.SavedReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings[r.ID] = r
	return r, nil
}

func (m *memDB) GetReading(_ context.Context, id string) (domain.SavedReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.readings[id]
	if !ok {
		return domain.SavedReading{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *memDB) ListReadings(_ context.Context, userID string, page, pageSize int) (domain.Page[domain.SavedReading], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := domain.Page[domain.SavedReading]{Page: page, PageSize: pageSize, Items: []domain.SavedReading{}}
	for _, r := range m.readings {
		if r.UserID == userID {
			out.Items = append(out.Items, r)
		}
	}
	out.Total = len(out.Items)
	return out, nil
}

func (m *memDB) DeleteReading(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.readings, id)
	return nil
}

func (m *memDB) GetProfile(_ context.Context, id string) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memDB) UpsertProfile(_ context.Context, p domain.Profile) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
	return p, nil
}

func (m *memDB) SetRole(_ context.Context, id string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Role = role
	m.profiles[id] = p
	return nil
}

func (m *memDB) ListProfiles(_ context.Context, page, pageSize int) (domain.Page[domain.Profile], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := domain.Page[domain.Profile]{Page: page, PageSize: pageSize, Items: []domain.Profile{}}
	for _, p := range m.profiles {
		out.Items = append(out.Items, p)
	}
	out.Total = len(out.Items)
	return out, nil
}

func (m *memDB) UpsertSubscription(_ context.Context, s domain.Subscription) (domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.subs[s.Email]; ok {
		s.CreatedAt = prev.CreatedAt
	}
	m.subs[s.Email] = s
	return s, nil
}

func (m *memDB) GetSubscription(_ context.Context, email string) (domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[email]
	if !ok {
		return domain.Subscription{}, domain.ErrNotFound
	}
	return s, nil
}

func (m *memDB) GetSettings(_ context.Context, id string) (domain.PromptSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[id]
	if !ok {
		return domain.PromptSettings{}, domain.ErrNotFound
	}
	return s, nil
}

func (m *memDB) SaveSettings(_ context.Context, s domain.PromptSettings) (domain.PromptSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.ID] = s
	return s, nil
}

var (
	_ ports.PostStore       = (*memDB)(nil)
	_ ports.CommentStore    = (*memDB)(nil)
	_ ports.ReadingStore    = (*memDB)(nil)
	_ ports.ProfileStore    = (*memDB)(nil)
	_ ports.NewsletterStore = (*memDB)(nil)
	_ ports.SettingsStore   = (*memDB)(nil)
	_ ports.SessionStore    = (*memSessions)(nil)
)

func (m *memDB) addProfile(id string, role domain.Role) {
	m.profiles[id] = domain.Profile{ID: id, Email: id + "@example.com", DisplayName: id, Role: role}
}
