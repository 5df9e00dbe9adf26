package domain

import "time"

// Fixed settings document ids.
const (
	SettingsTarotPrompt = "tarot_prompt"
	SettingsDreamPrompt = "dream_prompt"
)

// SafetySetting is one harm category / block threshold pair forwarded to the
// completion provider.
type SafetySetting struct {
	Category  string `json:"category" validate:"required,oneof=HARM_CATEGORY_HARASSMENT HARM_CATEGORY_HATE_SPEECH HARM_CATEGORY_SEXUALLY_EXPLICIT HARM_CATEGORY_DANGEROUS_CONTENT"`
	Threshold string `json:"threshold" validate:"required,oneof=BLOCK_LOW_AND_ABOVE BLOCK_MEDIUM_AND_ABOVE BLOCK_ONLY_HIGH BLOCK_NONE OFF"`
}

// PromptSettings is an admin-managed prompt configuration document.
type PromptSettings struct {
	ID             string          `json:"id"`
	PromptTemplate string          `json:"promptTemplate"`
	SafetySettings []SafetySetting `json:"safetySettings,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	UpdatedBy      string          `json:"updatedBy,omitempty"`
}
