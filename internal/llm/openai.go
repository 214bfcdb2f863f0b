package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"

	"github.com/prompt-general/cscx/internal/config"
)

const defaultOpenAIModel = openai.GPT4

// ChatCompleter is the part of the OpenAI client the generator uses
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIGenerator drafts text with the OpenAI chat completions API
type OpenAIGenerator struct {
	client    ChatCompleter
	model     string
	maxTokens int
}

func NewOpenAIGenerator(cfg config.LLMConfig) (*OpenAIGenerator, error) {
	key := strings.TrimSpace(cfg.OpenAIAPIKey)
	if key == "" {
		return nil, eris.Wrap(ErrNoAPIKey, "openai")
	}
	return NewOpenAIGeneratorWithClient(openai.NewClient(key), cfg.Model, cfg.MaxTokens), nil
}

// NewOpenAIGeneratorWithClient uses an existing client. Empty model uses GPT-4.
func NewOpenAIGeneratorWithClient(client ChatCompleter, model string, maxTokens int) *OpenAIGenerator {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIGenerator{client: client, model: model, maxTokens: maxTokens}
}

func (g *OpenAIGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   g.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", eris.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
