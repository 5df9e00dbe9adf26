package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/ports"
	"github.com/hopetreehub/innerspell/internal/prompt"
)

const flowTarotReading = "tarot_reading"

// InterpretationService is the tarot reading AI flow: template substitution
// and one completion call.
type InterpretationService struct {
	completer ports.Completer
	settings  *SettingsService
	defaults  prompt.Defaults
	logger    *slog.Logger
}

func NewInterpretationService(c ports.Completer, settings *SettingsService, defaults prompt.Defaults, logger *slog.Logger) *InterpretationService {
	return &InterpretationService{
		completer: c,
		settings:  settings,
		defaults:  defaults,
		logger:    logger,
	}
}

var _ ports.TarotInterpreter = (*InterpretationService)(nil)

func (s *InterpretationService) InterpretReading(ctx context.Context, req ports.TarotInterpretationRequest) (ports.TarotInterpretationResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return ports.TarotInterpretationResponse{}, domain.ErrEmptyQuestion
	}

	cfg := s.settings.Effective(ctx, domain.SettingsTarotPrompt)
	text, err := prompt.Render(flowTarotReading, cfg.PromptTemplate, req)
	if err != nil {
		s.logger.WarnContext(ctx, "stored tarot template unusable, using default", "error", err)
		text, err = prompt.Render(flowTarotReading, s.defaults.TarotReading.Template, req)
		if err != nil {
			return ports.TarotInterpretationResponse{}, err
		}
	}

	out, err := s.completer.Complete(ctx, ports.CompletionRequest{
		Flow:           flowTarotReading,
		System:         s.defaults.TarotReading.System,
		Prompt:         text,
		SafetySettings: cfg.SafetySettings,
	})
	if err == nil && strings.TrimSpace(out.Text) == "" {
		err = errors.New("empty interpretation")
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "tarot interpretation failed", "error", err)
		return ports.TarotInterpretationResponse{}, flowError(flowTarotReading, s.defaults.Messages.TarotFailure, err)
	}

	return ports.TarotInterpretationResponse{Interpretation: out.Text}, nil
}
