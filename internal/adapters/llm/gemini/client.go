// Package gemini implements ports.Completer with Google's Gemini API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/ports"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Client sends single-attempt GenerateContent calls.
type Client struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// Options configures NewClient. HTTPClient and BaseURL are optional.
type Options struct {
	APIKey     string
	Model      string
	HTTPClient *http.Client
	BaseURL    string
}

// NewClient creates a Gemini completion client.
func NewClient(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, model: opts.Model, logger: logger}, nil
}

func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (ports.CompletionResponse, error) {
	cfg := &genai.GenerateContentConfig{
		SafetySettings: safetySettings(req.SafetySettings),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return ports.CompletionResponse{}, fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		reason := "empty response"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		c.logger.WarnContext(ctx, "gemini returned no text", "flow", req.Flow, "reason", reason)
		return ports.CompletionResponse{}, fmt.Errorf("generate content: %s", reason)
	}

	return ports.CompletionResponse{Text: text, Model: c.model}, nil
}

func safetySettings(in []domain.SafetySetting) []*genai.SafetySetting {
	if len(in) == 0 {
		return nil
	}
	out := make([]*genai.SafetySetting, 0, len(in))
	for _, s := range in {
		out = append(out, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return out
}
