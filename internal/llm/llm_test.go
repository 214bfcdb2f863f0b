package llm

import (
	"context"
	"errors"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompt-general/cscx/internal/config"
)

type fakeChat struct {
	resp openai.ChatCompletionResponse
	err  error
	req  openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

type fakeMessages struct {
	resp   *anthropic.Message
	err    error
	params anthropic.MessageNewParams
}

func (f *fakeMessages) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = params
	return f.resp, f.err
}

func TestOpenAIGenerator_GenerateText(t *testing.T) {
	chat := &fakeChat{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: " 1. Call Dana. "}}},
	}}
	g := NewOpenAIGeneratorWithClient(chat, "", 200)

	text, err := g.GenerateText(context.Background(), "plan it")
	require.NoError(t, err)
	assert.Equal(t, "1. Call Dana.", text)

	assert.Equal(t, openai.GPT4, chat.req.Model)
	assert.Equal(t, 200, chat.req.MaxTokens)
	require.Len(t, chat.req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, chat.req.Messages[0].Role)
	assert.Equal(t, "plan it", chat.req.Messages[1].Content)
}

func TestOpenAIGenerator_Errors(t *testing.T) {
	_, err := NewOpenAIGeneratorWithClient(&fakeChat{}, "gpt-4o", 0).GenerateText(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyCompletion)

	_, err = NewOpenAIGeneratorWithClient(&fakeChat{err: errors.New("429")}, "gpt-4o", 0).GenerateText(context.Background(), "p")
	assert.Error(t, err)
}

func TestAnthropicGenerator_GenerateText(t *testing.T) {
	messages := &fakeMessages{resp: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "1. Review usage. "},
			{Type: "text", Text: "2. Propose seats."},
		},
	}}
	g := NewAnthropicGeneratorWithClient(messages, "", 0)

	text, err := g.GenerateText(context.Background(), "plan it")
	require.NoError(t, err)
	assert.Equal(t, "1. Review usage. 2. Propose seats.", text)

	assert.Equal(t, anthropic.Model(defaultAnthropicModel), messages.params.Model)
	assert.Equal(t, int64(defaultAnthropicMaxTokens), messages.params.MaxTokens)
	require.Len(t, messages.params.System, 1)
	assert.Equal(t, systemPrompt, messages.params.System[0].Text)
}

func TestAnthropicGenerator_EmptyContent(t *testing.T) {
	g := NewAnthropicGeneratorWithClient(&fakeMessages{resp: &anthropic.Message{}}, "m", 10)
	_, err := g.GenerateText(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestNew(t *testing.T) {
	g, err := New(config.LLMConfig{Provider: config.ProviderNone})
	require.NoError(t, err)
	assert.Nil(t, g)

	_, err = New(config.LLMConfig{Provider: config.ProviderOpenAI})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = New(config.LLMConfig{Provider: config.ProviderAnthropic})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	g, err = New(config.LLMConfig{Provider: config.ProviderOpenAI, OpenAIAPIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIGenerator{}, g)

	g, err = New(config.LLMConfig{Provider: config.ProviderAnthropic, AnthropicAPIKey: "sk-ant-test"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicGenerator{}, g)

	_, err = New(config.LLMConfig{Provider: "bard"})
	assert.Error(t, err)
}
