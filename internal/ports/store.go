package ports

import (
	"context"

	"github.com/hopetreehub/innerspell/internal/domain"
)

// PostStore persists community posts. Get returns domain.ErrNotFound for a
// missing row.
type PostStore interface {
	CreatePost(ctx context.Context, p domain.Post) (domain.Post, error)
	GetPost(ctx context.Context, id string) (domain.Post, error)
	ListPosts(ctx context.Context, f domain.PostFilter) (domain.Page[domain.Post], error)
	UpdatePost(ctx context.Context, p domain.Post) (domain.Post, error)
	DeletePost(ctx context.Context, id string) error
	// SetViewCount and SetCommentCount overwrite a counter with a value the
	// caller computed from an earlier read.
	SetViewCount(ctx context.Context, id string, n int) error
	SetCommentCount(ctx context.Context, id string, n int) error
}

// CommentStore persists comments.
type CommentStore interface {
	CreateComment(ctx context.Context, c domain.Comment) (domain.Comment, error)
	GetComment(ctx context.Context, id string) (domain.Comment, error)
	ListComments(ctx context.Context, postID string) ([]domain.Comment, error)
	UpdateComment(ctx context.Context, c domain.Comment) (domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	DeleteCommentsByPost(ctx context.Context, postID string) (int, error)
}

// ReadingStore persists saved readings.
type ReadingStore interface {
	CreateReading(ctx context.Context, r domain.SavedReading) (domain.SavedReading, error)
	GetReading(ctx context.Context, id string) (domain.SavedReading, error)
	ListReadings(ctx context.Context, userID string, page, pageSize int) (domain.Page[domain.SavedReading], error)
	DeleteReading(ctx context.Context, id string) error
}

// ProfileStore persists user profiles and roles.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (domain.Profile, error)
	UpsertProfile(ctx context.Context, p domain.Profile) (domain.Profile, error)
	SetRole(ctx context.Context, id string, role domain.Role) error
	ListProfiles(ctx context.Context, page, pageSize int) (domain.Page[domain.Profile], error)
}

// NewsletterStore persists newsletter subscriptions.
type NewsletterStore interface {
	UpsertSubscription(ctx context.Context, s domain.Subscription) (domain.Subscription, error)
	GetSubscription(ctx context.Context, email string) (domain.Subscription, error)
}

// SettingsStore persists admin settings documents keyed by fixed ids.
type SettingsStore interface {
	GetSettings(ctx context.Context, id string) (domain.PromptSettings, error)
	SaveSettings(ctx context.Context, s domain.PromptSettings) (domain.PromptSettings, error)
}
