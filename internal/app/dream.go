package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/ports"
	"github.com/hopetreehub/innerspell/internal/prompt"
)

const (
	flowDreamQuestions      = "dream_questions"
	flowDreamInterpretation = "dream_interpretation"

	minQuestions = 2
	maxQuestions = 4
	numOptions   = 4
)

// DreamQuestionsInput is the first step of the dream flow.
type DreamQuestionsInput struct {
	DreamDescription string `json:"dreamDescription" validate:"required,min=10,max=2000"`
}

// DreamQuestions is the clarification step's result. Fallback is set when no
// usable questions were produced and the client should interpret directly.
type DreamQuestions struct {
	Questions []domain.ClarificationQuestion `json:"questions"`
	Fallback  bool                           `json:"fallback"`
}

// DreamInterpretInput is the interpretation request.
type DreamInterpretInput struct {
	DreamDescription string              `json:"dreamDescription" validate:"required,min=10,max=2000"`
	Clarifications   []ClarificationInput `json:"clarifications" validate:"max=4,dive"`
	AdditionalInfo   string              `json:"additionalInfo" validate:"max=1000"`
	SajuInfo         string              `json:"sajuInfo" validate:"max=500"`
	IsGuestUser      bool                `json:"isGuestUser"`
}

// ClarificationInput is one answered question; Answer may be free text.
type ClarificationInput struct {
	Question string `json:"question" validate:"required,max=300"`
	Answer   string `json:"answer" validate:"required,max=300"`
}

type dreamTemplateData struct {
	DreamDescription string
}

// DreamService runs the two-step dream interpretation flow.
type DreamService struct {
	completer ports.Completer
	settings  *SettingsService
	profiles  ports.ProfileStore
	defaults  prompt.Defaults
	logger    *slog.Logger
}

func NewDreamService(c ports.Completer, settings *SettingsService, profiles ports.ProfileStore, defaults prompt.Defaults, logger *slog.Logger) *DreamService {
	return &DreamService{completer: c, settings: settings, profiles: profiles, defaults: defaults, logger: logger}
}

// GenerateQuestions asks for 2-4 multiple choice clarification questions.
// Only validation errors are returned; any upstream problem yields a
// fallback result so the user can continue without clarification.
func (s *DreamService) GenerateQuestions(ctx context.Context, in DreamQuestionsInput) (DreamQuestions, error) {
	if err := validateStruct(in); err != nil {
		return DreamQuestions{}, err
	}

	text, err := prompt.Render(flowDreamQuestions, s.defaults.DreamQuestions.Template, dreamTemplateData{DreamDescription: in.DreamDescription})
	if err != nil {
		return DreamQuestions{}, err
	}

	out, err := s.completer.Complete(ctx, ports.CompletionRequest{
		Flow:   flowDreamQuestions,
		System: s.defaults.DreamQuestions.System,
		Prompt: text,
		JSON:   true,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "dream questions failed, falling back", "error", err)
		return DreamQuestions{Questions: []domain.ClarificationQuestion{}, Fallback: true}, nil
	}

	questions, err := parseQuestions(out.Text)
	if err != nil {
		s.logger.WarnContext(ctx, "dream questions unusable, falling back", "error", err)
		return DreamQuestions{Questions: []domain.ClarificationQuestion{}, Fallback: true}, nil
	}
	return DreamQuestions{Questions: questions}, nil
}

// Interpret produces the dream interpretation with one completion call.
func (s *DreamService) Interpret(ctx context.Context, viewer domain.Viewer, in DreamInterpretInput) (string, error) {
	if err := validateStruct(in); err != nil {
		return "", err
	}

	req := domain.DreamRequest{
		DreamDescription: strings.TrimSpace(in.DreamDescription),
		AdditionalInfo:   strings.TrimSpace(in.AdditionalInfo),
		SajuInfo:         strings.TrimSpace(in.SajuInfo),
		IsGuestUser:      in.IsGuestUser || viewer.Guest(),
	}
	for _, c := range in.Clarifications {
		req.Clarifications = append(req.Clarifications, domain.Clarification{Question: c.Question, Answer: c.Answer})
	}
	if req.SajuInfo == "" && !viewer.Guest() {
		req.SajuInfo = s.profileSaju(ctx, viewer.UserID)
	}

	text, err := s.buildPrompt(ctx, req)
	if err != nil {
		return "", err
	}

	out, err := s.completer.Complete(ctx, ports.CompletionRequest{
		Flow:   flowDreamInterpretation,
		System: s.defaults.DreamInterpretation.System,
		Prompt: text,
	})
	if err == nil && strings.TrimSpace(out.Text) == "" {
		err = errors.New("empty interpretation")
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "dream interpretation failed", "error", err)
		return "", flowError(flowDreamInterpretation, s.defaults.Messages.DreamFailure, err)
	}
	return out.Text, nil
}

// buildPrompt renders the admin template followed by the optional sections,
// each present only when its input is.
func (s *DreamService) buildPrompt(ctx context.Context, req domain.DreamRequest) (string, error) {
	cfg := s.settings.Effective(ctx, domain.SettingsDreamPrompt)
	data := dreamTemplateData{DreamDescription: req.DreamDescription}

	preamble, err := prompt.Render(flowDreamInterpretation, cfg.PromptTemplate, data)
	if err != nil {
		s.logger.WarnContext(ctx, "stored dream template unusable, using default", "error", err)
		preamble, err = prompt.Render(flowDreamInterpretation, s.defaults.DreamInterpretation.Template, data)
		if err != nil {
			return "", err
		}
	}

	doc := prompt.Document{Preamble: preamble}
	doc.Add("Dream", req.DreamDescription).
		AddIf(len(req.Clarifications) > 0, "Clarifications", formatClarifications(req.Clarifications)).
		Add("Additional information", req.AdditionalInfo).
		Add("Dreamer profile (saju)", req.SajuInfo).
		AddIf(req.IsGuestUser, "Output limits", s.defaults.DreamInterpretation.GuestInstruction)
	return doc.String(), nil
}

func (s *DreamService) profileSaju(ctx context.Context, userID string) string {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "load profile for saju failed", "user_id", userID, "error", err)
		}
		return ""
	}
	if !p.HasBirthData() {
		return ""
	}
	parts := []string{"Birth date: " + p.BirthDate}
	if p.BirthTime != "" {
		parts = append(parts, "Birth time: "+p.BirthTime)
	}
	if p.BirthPlace != "" {
		parts = append(parts, "Birth place: "+p.BirthPlace)
	}
	if p.Gender != "" {
		parts = append(parts, "Gender: "+p.Gender)
	}
	return strings.Join(parts, "\n")
}

func formatClarifications(cs []domain.Clarification) string {
	var b strings.Builder
	for i, c := range cs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s", c.Question, c.Answer)
	}
	return b.String()
}

type questionsPayload struct {
	Questions []domain.ClarificationQuestion `json:"questions"`
}

func parseQuestions(raw string) ([]domain.ClarificationQuestion, error) {
	raw = stripFences(raw)
	var p questionsPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidLLMJSON, err)
	}
	if n := len(p.Questions); n < minQuestions || n > maxQuestions {
		return nil, fmt.Errorf("%w: got %d questions", domain.ErrInvalidLLMJSON, n)
	}
	for i, q := range p.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("%w: question %d is empty", domain.ErrInvalidLLMJSON, i)
		}
		if len(q.Options) != numOptions {
			return nil, fmt.Errorf("%w: question %d has %d options", domain.ErrInvalidLLMJSON, i, len(q.Options))
		}
		for _, o := range q.Options {
			if strings.TrimSpace(o) == "" {
				return nil, fmt.Errorf("%w: question %d has an empty option", domain.ErrInvalidLLMJSON, i)
			}
		}
	}
	return p.Questions, nil
}

// stripFences removes a surrounding markdown code fence some models add
// despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
