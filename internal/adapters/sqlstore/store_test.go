package sqlstore_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopetreehub/innerspell/internal/adapters/sqlstore"
	"github.com/hopetreehub/innerspell/internal/domain"
)

func openSQLite(t *testing.T) *sqlstore.Store {
	t.Helper()
	db, err := sqlstore.Open(sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "innerspell.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlstore.Migrate(db))
	return sqlstore.New(db)
}

// stores returns every backend available to the test run. Postgres joins
// when TEST_POSTGRES_DSN is set.
func stores(t *testing.T) map[string]*sqlstore.Store {
	t.Helper()
	out := map[string]*sqlstore.Store{"sqlite": openSQLite(t)}
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		db, err := sqlstore.Open(sqlstore.DriverPostgres, dsn)
		require.NoError(t, err)
		require.NoError(t, sqlstore.MigrateDown(db))
		require.NoError(t, sqlstore.Migrate(db))
		t.Cleanup(func() { db.Close() })
		out["postgres"] = sqlstore.New(db)
	}
	return out
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func post(id string, cat domain.PostCategory, at time.Time) domain.Post {
	return domain.Post{
		ID:         id,
		Category:   cat,
		Title:      "Title " + id,
		Content:    "Content for " + id,
		AuthorID:   "alice",
		AuthorName: "Alice",
		Tags:       []string{"tarot"},
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := sqlstore.Open(sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, sqlstore.Migrate(db))
	require.NoError(t, sqlstore.Migrate(db))
	v, dirty, err := sqlstore.Version(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := sqlstore.Open("mysql", "whatever")
	require.Error(t, err)
}

func TestPosts(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			share := post("p-share", domain.CategoryReadingShare, base)
			share.ReadingShare = &domain.ReadingShare{SpreadName: "Three Card Spread", Cards: []string{"The Fool", "The Sun"}}
			_, err := s.CreatePost(ctx, share)
			require.NoError(t, err)
			for i := 1; i <= 4; i++ {
				_, err := s.CreatePost(ctx, post(fmt.Sprintf("p-%d", i), domain.CategoryFreeDiscussion, base.Add(time.Duration(i)*time.Minute)))
				require.NoError(t, err)
			}

			got, err := s.GetPost(ctx, "p-share")
			require.NoError(t, err)
			require.NotNil(t, got.ReadingShare)
			assert.Equal(t, []string{"The Fool", "The Sun"}, got.ReadingShare.Cards)
			assert.Equal(t, []string{"tarot"}, got.Tags)
			assert.True(t, got.CreatedAt.Equal(base))

			page, err := s.ListPosts(ctx, domain.PostFilter{Page: 1, PageSize: 2})
			require.NoError(t, err)
			assert.Equal(t, 5, page.Total)
			require.Len(t, page.Items, 2)
			assert.Equal(t, "p-4", page.Items[0].ID)
			assert.Equal(t, "p-3", page.Items[1].ID)

			page, err = s.ListPosts(ctx, domain.PostFilter{Page: 3, PageSize: 2})
			require.NoError(t, err)
			require.Len(t, page.Items, 1)
			assert.Equal(t, "p-share", page.Items[0].ID)

			page, err = s.ListPosts(ctx, domain.PostFilter{Category: domain.CategoryReadingShare, Page: 1, PageSize: 10})
			require.NoError(t, err)
			assert.Equal(t, 1, page.Total)

			require.NoError(t, s.SetViewCount(ctx, "p-1", 7))
			require.NoError(t, s.SetCommentCount(ctx, "p-1", 2))
			p1, err := s.GetPost(ctx, "p-1")
			require.NoError(t, err)
			assert.Equal(t, 7, p1.ViewCount)
			assert.Equal(t, 2, p1.CommentCount)

			p1.Title = "Renamed"
			p1.ViewCount = 0
			p1.UpdatedAt = base.Add(time.Hour)
			updated, err := s.UpdatePost(ctx, p1)
			require.NoError(t, err)
			assert.Equal(t, "Renamed", updated.Title)
			assert.Equal(t, 7, updated.ViewCount, "update leaves counters alone")

			require.ErrorIs(t, s.SetViewCount(ctx, "missing", 1), domain.ErrNotFound)
			_, err = s.GetPost(ctx, "missing")
			require.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestDeleteRemovesExactlyOneRow(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"a", "b"} {
				_, err := s.CreatePost(ctx, post(id, domain.CategoryQuestion, base))
				require.NoError(t, err)
			}
			for i, postID := range []string{"a", "a", "b"} {
				_, err := s.CreateComment(ctx, domain.Comment{
					ID: fmt.Sprintf("c-%d", i), PostID: postID, AuthorID: "bob", Content: "hi",
					CreatedAt: base.Add(time.Duration(i) * time.Second), UpdatedAt: base,
				})
				require.NoError(t, err)
			}

			n, err := s.DeleteCommentsByPost(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			require.NoError(t, s.DeletePost(ctx, "a"))

			_, err = s.GetPost(ctx, "a")
			require.ErrorIs(t, err, domain.ErrNotFound)
			_, err = s.GetPost(ctx, "b")
			require.NoError(t, err)
			remaining, err := s.ListComments(ctx, "b")
			require.NoError(t, err)
			require.Len(t, remaining, 1)
			assert.Equal(t, "c-2", remaining[0].ID)

			require.ErrorIs(t, s.DeletePost(ctx, "a"), domain.ErrNotFound)
		})
	}
}

func TestComments(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.CreatePost(ctx, post("p", domain.CategoryStudyGroup, base))
			require.NoError(t, err)

			for i, id := range []string{"late", "early"} {
				_, err := s.CreateComment(ctx, domain.Comment{
					ID: id, PostID: "p", AuthorID: "bob", AuthorName: "Bob", Content: id,
					CreatedAt: base.Add(time.Duration(10-i) * time.Minute), UpdatedAt: base,
				})
				require.NoError(t, err)
			}
			list, err := s.ListComments(ctx, "p")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "early", list[0].ID)

			c, err := s.GetComment(ctx, "late")
			require.NoError(t, err)
			c.Content = "edited"
			c.UpdatedAt = base.Add(time.Hour)
			c, err = s.UpdateComment(ctx, c)
			require.NoError(t, err)
			assert.Equal(t, "edited", c.Content)

			require.NoError(t, s.DeleteComment(ctx, "late"))
			require.ErrorIs(t, s.DeleteComment(ctx, "late"), domain.ErrNotFound)
		})
	}
}

func TestReadings(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 3; i++ {
				_, err := s.CreateReading(ctx, domain.SavedReading{
					ID: fmt.Sprintf("r-%d", i), UserID: "alice", Question: "Q", SpreadName: "One Card", SpreadNumCards: 1,
					Cards:          []domain.SavedCard{{ID: "major_00", Name: "The Fool", Orientation: domain.Reversed, Position: "Today's message"}},
					Interpretation: "text",
					CreatedAt:      base.Add(time.Duration(i) * time.Hour),
				})
				require.NoError(t, err)
			}
			_, err := s.CreateReading(ctx, domain.SavedReading{ID: "r-bob", UserID: "bob", Cards: []domain.SavedCard{}, CreatedAt: base})
			require.NoError(t, err)

			page, err := s.ListReadings(ctx, "alice", 1, 2)
			require.NoError(t, err)
			assert.Equal(t, 3, page.Total)
			require.Len(t, page.Items, 2)
			assert.Equal(t, "r-2", page.Items[0].ID)

			r, err := s.GetReading(ctx, "r-0")
			require.NoError(t, err)
			require.Len(t, r.Cards, 1)
			assert.Equal(t, domain.Reversed, r.Cards[0].Orientation)

			require.NoError(t, s.DeleteReading(ctx, "r-0"))
			_, err = s.GetReading(ctx, "r-0")
			require.ErrorIs(t, err, domain.ErrNotFound)
			_, err = s.GetReading(ctx, "r-bob")
			require.NoError(t, err)
		})
	}
}

func TestProfiles(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p, err := s.UpsertProfile(ctx, domain.Profile{ID: "u1", Email: "u1@example.com", DisplayName: "U1", CreatedAt: base, UpdatedAt: base})
			require.NoError(t, err)
			assert.Equal(t, domain.RoleUser, p.Role)

			require.NoError(t, s.SetRole(ctx, "u1", domain.RoleAdmin))
			p.DisplayName = "Renamed"
			p.BirthDate = "1990-01-02"
			p.Role = domain.RoleUser
			p, err = s.UpsertProfile(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, "Renamed", p.DisplayName)
			assert.Equal(t, domain.RoleAdmin, p.Role, "upsert keeps the stored role")

			require.ErrorIs(t, s.SetRole(ctx, "nobody", domain.RoleAdmin), domain.ErrNotFound)

			_, err = s.UpsertProfile(ctx, domain.Profile{ID: "u2", DisplayName: "U2", CreatedAt: base.Add(time.Minute), UpdatedAt: base})
			require.NoError(t, err)
			page, err := s.ListProfiles(ctx, 1, 10)
			require.NoError(t, err)
			assert.Equal(t, 2, page.Total)
			assert.Equal(t, "u2", page.Items[0].ID)
		})
	}
}

func TestNewsletterAndSettings(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sub, err := s.UpsertSubscription(ctx, domain.Subscription{Email: "a@example.com", Status: domain.NewsletterSubscribed, CreatedAt: base, UpdatedAt: base})
			require.NoError(t, err)
			assert.Equal(t, domain.NewsletterSubscribed, sub.Status)

			sub, err = s.UpsertSubscription(ctx, domain.Subscription{Email: "a@example.com", Status: domain.NewsletterUnsubscribed, CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)})
			require.NoError(t, err)
			assert.Equal(t, domain.NewsletterUnsubscribed, sub.Status)
			assert.True(t, sub.CreatedAt.Equal(base), "created_at survives the upsert")

			_, err = s.GetSettings(ctx, domain.SettingsTarotPrompt)
			require.ErrorIs(t, err, domain.ErrNotFound)

			_, err = s.SaveSettings(ctx, domain.PromptSettings{ID: domain.SettingsTarotPrompt, PromptTemplate: "v1", UpdatedAt: base})
			require.NoError(t, err)
			saved, err := s.SaveSettings(ctx, domain.PromptSettings{
				ID: domain.SettingsTarotPrompt, PromptTemplate: "v2", UpdatedAt: base, UpdatedBy: "admin",
				SafetySettings: []domain.SafetySetting{{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"}},
			})
			require.NoError(t, err)
			assert.Equal(t, "v2", saved.PromptTemplate)
			assert.Equal(t, "admin", saved.UpdatedBy)
			require.Len(t, saved.SafetySettings, 1)
		})
	}
}
