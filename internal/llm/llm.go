// Package llm provides the text generators used to draft expansion approaches.
package llm

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/prompt-general/cscx/internal/config"
	"github.com/prompt-general/cscx/internal/expansion"
)

const systemPrompt = "You are a customer success strategist. You write short, concrete, numbered action plans " +
	"for account expansion and do not invent facts beyond the context you are given."

var (
	// ErrEmptyCompletion is returned when the provider answered without any text
	ErrEmptyCompletion = eris.New("completion contained no text")

	// ErrNoAPIKey is returned when the selected provider has no key configured
	ErrNoAPIKey = eris.New("llm api key not configured")
)

// New builds the generator selected by cfg.Provider. It returns nil for the
// "none" provider, in which case the engine always uses its fallback templates.
func New(cfg config.LLMConfig) (expansion.TextGenerator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", config.ProviderNone:
		return nil, nil
	case config.ProviderOpenAI:
		g, err := NewOpenAIGenerator(cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.ProviderAnthropic:
		g, err := NewAnthropicGenerator(cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, eris.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
