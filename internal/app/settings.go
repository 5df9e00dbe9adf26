package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/ports"
	"github.com/hopetreehub/innerspell/internal/prompt"
)

// SaveSettingsInput is the admin form for a prompt settings document.
type SaveSettingsInput struct {
	PromptTemplate string                 `json:"promptTemplate" validate:"required,max=20000"`
	SafetySettings []domain.SafetySetting `json:"safetySettings" validate:"max=4,dive"`
}

// SettingsService reads and writes the admin prompt configuration.
type SettingsService struct {
	store    ports.SettingsStore
	profiles *ProfileService
	defaults prompt.Defaults
	logger   *slog.Logger
}

func NewSettingsService(store ports.SettingsStore, profiles *ProfileService, defaults prompt.Defaults, logger *slog.Logger) *SettingsService {
	return &SettingsService{store: store, profiles: profiles, defaults: defaults, logger: logger}
}

// Get returns the stored document, or the built-in default when none is stored.
func (s *SettingsService) Get(ctx context.Context, viewer domain.Viewer, id string) (domain.PromptSettings, error) {
	if err := s.profiles.RequireAdmin(ctx, viewer); err != nil {
		return domain.PromptSettings{}, err
	}
	return s.Effective(ctx, id), nil
}

// Save validates and stores a settings document.
func (s *SettingsService) Save(ctx context.Context, viewer domain.Viewer, id string, in SaveSettingsInput) (domain.PromptSettings, error) {
	if err := s.profiles.RequireAdmin(ctx, viewer); err != nil {
		return domain.PromptSettings{}, err
	}
	if err := validateStruct(in); err != nil {
		return domain.PromptSettings{}, err
	}
	if id == domain.SettingsDreamPrompt && len(in.SafetySettings) > 0 {
		return domain.PromptSettings{}, domain.NewValidationError("safetySettings", "are only supported for the tarot prompt")
	}
	if _, err := prompt.Render(id, in.PromptTemplate, sampleData(id)); err != nil {
		return domain.PromptSettings{}, domain.NewValidationError("promptTemplate", err.Error())
	}

	saved, err := s.store.SaveSettings(ctx, domain.PromptSettings{
		ID:             id,
		PromptTemplate: in.PromptTemplate,
		SafetySettings: in.SafetySettings,
		UpdatedAt:      time.Now().UTC(),
		UpdatedBy:      viewer.UserID,
	})
	if err != nil {
		return domain.PromptSettings{}, err
	}
	s.logger.InfoContext(ctx, "prompt settings updated", "settings_id", id, "user_id", viewer.UserID)
	return saved, nil
}

// Effective returns the settings an AI flow should use. The default template
// applies whenever the stored one is absent, empty or unreadable.
func (s *SettingsService) Effective(ctx context.Context, id string) domain.PromptSettings {
	def := domain.PromptSettings{ID: id, PromptTemplate: s.defaultTemplate(id)}

	stored, err := s.store.GetSettings(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "load prompt settings failed, using default", "settings_id", id, "error", err)
		}
		return def
	}
	if strings.TrimSpace(stored.PromptTemplate) == "" {
		stored.PromptTemplate = def.PromptTemplate
	}
	return stored
}

func (s *SettingsService) defaultTemplate(id string) string {
	switch id {
	case domain.SettingsDreamPrompt:
		return s.defaults.DreamInterpretation.Template
	default:
		return s.defaults.TarotReading.Template
	}
}

func sampleData(id string) any {
	if id == domain.SettingsDreamPrompt {
		return dreamTemplateData{DreamDescription: "sample"}
	}
	return ports.TarotInterpretationRequest{Question: "sample", CardSpread: "sample", CardInterpretations: "sample"}
}
