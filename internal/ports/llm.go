package ports

import (
	"context"

	"github.com/hopetreehub/innerspell/internal/domain"
)

// CompletionRequest is a single prompt sent to a text-completion provider.
type CompletionRequest struct {
	// Flow names the calling AI flow for logging and metrics.
	Flow   string
	System string
	Prompt string
	// JSON asks the provider for a bare JSON object.
	JSON           bool
	SafetySettings []domain.SafetySetting
}

// CompletionResponse is the provider's answer.
type CompletionResponse struct {
	Text  string
	Model string
}

// Completer is an opaque text-completion service. Implementations make
// exactly one upstream attempt per call.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// TarotInterpretationRequest is the logical contract of a reading
// interpretation.
type TarotInterpretationRequest struct {
	Question            string `json:"question"`
	CardSpread          string `json:"cardSpread"`
	CardInterpretations string `json:"cardInterpretations"`
}

// TarotInterpretationResponse carries the generated reading.
type TarotInterpretationResponse struct {
	Interpretation string `json:"interpretation"`
}

// TarotInterpreter turns an assembled reading into interpretation text.
type TarotInterpreter interface {
	InterpretReading(ctx context.Context, req TarotInterpretationRequest) (TarotInterpretationResponse, error)
}
