package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hopetreehub/innerspell/internal/ports"
)

// Client implements ports.Completer via the OpenRouter API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	logger     *slog.Logger
}

func NewClient(httpClient *http.Client, apiKey, baseURL, model string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		logger:     logger,
	}
}

// chatRequest mirrors the OpenAI-compatible API shape.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// Complete sends one chat completion. OpenRouter has no equivalent of
// per-category safety thresholds, so req.SafetySettings is ignored.
func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (ports.CompletionResponse, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{Model: c.model, Messages: messages}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if len(req.SafetySettings) > 0 {
		c.logger.DebugContext(ctx, "safety settings not supported by provider", "flow", req.Flow)
	}

	content, err := c.callLLM(ctx, body)
	if err != nil {
		return ports.CompletionResponse{}, err
	}
	return ports.CompletionResponse{Text: content, Model: c.model}, nil
}

func (c *Client) callLLM(ctx context.Context, reqBody chatRequest) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = string(respBody)
		}
		return "", fmt.Errorf("upstream status %d: %s", resp.StatusCode, msg)
	}

	if !gjson.ValidBytes(respBody) {
		return "", fmt.Errorf("decode response: invalid JSON")
	}
	content := gjson.GetBytes(respBody, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(content.String()), nil
}
