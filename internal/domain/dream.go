package domain

// ClarificationQuestion is an AI-generated multiple choice question.
type ClarificationQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Clarification is an answered clarification question. Answer may be one of
// the offered options or a free-text override.
type Clarification struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// DreamRequest is the input of a dream interpretation.
type DreamRequest struct {
	DreamDescription string          `json:"dreamDescription"`
	Clarifications   []Clarification `json:"clarifications,omitempty"`
	AdditionalInfo   string          `json:"additionalInfo,omitempty"`
	SajuInfo         string          `json:"sajuInfo,omitempty"`
	IsGuestUser      bool            `json:"isGuestUser,omitempty"`
}
