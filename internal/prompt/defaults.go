package prompt

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Flow is the default prompt pair of one AI flow.
type Flow struct {
	System           string `yaml:"system"`
	Template         string `yaml:"template"`
	GuestInstruction string `yaml:"guest_instruction"`
}

// Defaults holds the built-in prompts used whenever no admin template is stored.
type Defaults struct {
	TarotReading        Flow `yaml:"tarot_reading"`
	DreamQuestions      Flow `yaml:"dream_questions"`
	DreamInterpretation Flow `yaml:"dream_interpretation"`
	Messages            struct {
		TarotFailure string `yaml:"tarot_failure"`
		DreamFailure string `yaml:"dream_failure"`
	} `yaml:"messages"`
}

var (
	defaultsOnce sync.Once
	defaults     Defaults
	defaultsErr  error
)

// LoadDefaults parses the embedded defaults once.
func LoadDefaults() (Defaults, error) {
	defaultsOnce.Do(func() {
		if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
			defaultsErr = fmt.Errorf("parse embedded prompt defaults: %w", err)
		}
	})
	return defaults, defaultsErr
}
