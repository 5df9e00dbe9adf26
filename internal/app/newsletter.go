package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/ports"
)

// NewsletterInput is the subscribe/unsubscribe form.
type NewsletterInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// NewsletterService manages subscriptions keyed by normalised email.
type NewsletterService struct {
	store  ports.NewsletterStore
	logger *slog.Logger
}

func NewNewsletterService(store ports.NewsletterStore, logger *slog.Logger) *NewsletterService {
	return &NewsletterService{store: store, logger: logger}
}

// Subscribe is idempotent: subscribing twice leaves one subscribed row.
func (s *NewsletterService) Subscribe(ctx context.Context, in NewsletterInput) (domain.Subscription, error) {
	return s.setStatus(ctx, in, domain.NewsletterSubscribed)
}

// Unsubscribe marks the address unsubscribed, creating the row if needed.
func (s *NewsletterService) Unsubscribe(ctx context.Context, in NewsletterInput) (domain.Subscription, error) {
	return s.setStatus(ctx, in, domain.NewsletterUnsubscribed)
}

func (s *NewsletterService) setStatus(ctx context.Context, in NewsletterInput, status domain.NewsletterStatus) (domain.Subscription, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return domain.Subscription{}, err
	}
	now := time.Now().UTC()
	sub, err := s.store.UpsertSubscription(ctx, domain.Subscription{
		Email:     in.Email,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.Subscription{}, err
	}
	s.logger.InfoContext(ctx, "newsletter status changed", "status", status)
	return sub, nil
}
