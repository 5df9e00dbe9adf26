package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// UpdateProfileInput is the editable part of a profile.
type UpdateProfileInput struct {
	DisplayName string `json:"displayName" validate:"required,min=1,max=50"`
	BirthDate   string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	BirthTime   string `json:"birthTime" validate:"omitempty,datetime=15:04"`
	BirthPlace  string `json:"birthPlace" validate:"max=100"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
}

// ProfileService manages user profiles and roles.
type ProfileService struct {
	store  ports.ProfileStore
	logger *slog.Logger
}

func NewProfileService(store ports.ProfileStore, logger *slog.Logger) *ProfileService {
	return &ProfileService{store: store, logger: logger}
}

// Get returns the viewer's profile, creating a default user profile on first
// access.
func (s *ProfileService) Get(ctx context.Context, viewer domain.Viewer) (domain.Profile, error) {
	if err := requireViewer(viewer); err != nil {
		return domain.Profile{}, err
	}
	p, err := s.store.GetProfile(ctx, viewer.UserID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Profile{}, err
	}

	now := time.Now().UTC()
	p, err = s.store.UpsertProfile(ctx, domain.Profile{
		ID:          viewer.UserID,
		Email:       viewer.Email,
		DisplayName: defaultDisplayName(viewer.Email),
		Role:        domain.RoleUser,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return domain.Profile{}, err
	}
	s.logger.InfoContext(ctx, "profile created", "user_id", viewer.UserID)
	return p, nil
}

// Update writes the viewer's editable profile fields. Role is never changed
// here.
func (s *ProfileService) Update(ctx context.Context, viewer domain.Viewer, in UpdateProfileInput) (domain.Profile, error) {
	if err := validateStruct(in); err != nil {
		return domain.Profile{}, err
	}
	p, err := s.Get(ctx, viewer)
	if err != nil {
		return domain.Profile{}, err
	}
	p.DisplayName = strings.TrimSpace(in.DisplayName)
	p.BirthDate = in.BirthDate
	p.BirthTime = in.BirthTime
	p.BirthPlace = strings.TrimSpace(in.BirthPlace)
	p.Gender = in.Gender
	p.UpdatedAt = time.Now().UTC()
	return s.store.UpsertProfile(ctx, p)
}

// RequireAdmin fails unless the viewer's stored role is admin.
func (s *ProfileService) RequireAdmin(ctx context.Context, viewer domain.Viewer) error {
	if err := requireViewer(viewer); err != nil {
		return err
	}
	p, err := s.store.GetProfile(ctx, viewer.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if p.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}

// SetRole changes another user's role. Admins cannot demote themselves.
func (s *ProfileService) SetRole(ctx context.Context, viewer domain.Viewer, userID string, role domain.Role) error {
	if err := s.RequireAdmin(ctx, viewer); err != nil {
		return err
	}
	if !role.Valid() {
		return domain.NewValidationError("role", "must be one of user admin")
	}
	if userID == viewer.UserID && role != domain.RoleAdmin {
		return domain.NewValidationError("role", "admins cannot demote themselves")
	}
	if err := s.store.SetRole(ctx, userID, role); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "role changed", "user_id", userID, "role", role, "by", viewer.UserID)
	return nil
}

// ListUsers pages through profiles for the admin user list.
func (s *ProfileService) ListUsers(ctx context.Context, viewer domain.Viewer, page, pageSize int) (domain.Page[domain.Profile], error) {
	if err := s.RequireAdmin(ctx, viewer); err != nil {
		return domain.Page[domain.Profile]{}, err
	}
	page, pageSize = normalizePage(page, pageSize)
	return s.store.ListProfiles(ctx, page, pageSize)
}

func defaultDisplayName(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return "user"
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
