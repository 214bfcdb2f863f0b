package llm

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/prompt-general/cscx/internal/config"
)

const (
	defaultAnthropicModel     = "claude-sonnet-4-5"
	defaultAnthropicMaxTokens = 300
)

// AnthropicMessager is the part of the Anthropic client the generator uses
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicGenerator drafts text with the Anthropic messages API
type AnthropicGenerator struct {
	messages  AnthropicMessager
	model     string
	maxTokens int64
}

func NewAnthropicGenerator(cfg config.LLMConfig) (*AnthropicGenerator, error) {
	key := strings.TrimSpace(cfg.AnthropicAPIKey)
	if key == "" {
		return nil, eris.Wrap(ErrNoAPIKey, "anthropic")
	}
	c := anthropic.NewClient(option.WithAPIKey(key))
	return NewAnthropicGeneratorWithClient(&c.Messages, cfg.Model, cfg.MaxTokens), nil
}

// NewAnthropicGeneratorWithClient uses an existing messages client
func NewAnthropicGeneratorWithClient(messages AnthropicMessager, model string, maxTokens int) *AnthropicGenerator {
	if model == "" {
		model = defaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicGenerator{messages: messages, model: model, maxTokens: int64(maxTokens)}
}

func (g *AnthropicGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   g.maxTokens,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0.3),
	})
	if err != nil {
		return "", eris.Wrap(err, "anthropic messages")
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
