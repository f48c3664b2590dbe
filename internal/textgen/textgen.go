// Package textgen requests outreach copy from a hosted language model.
package textgen

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	EmailSystemPrompt    = "You are an expert SDR writing concise, personalized outreach emails."
	LinkedInSystemPrompt = "You are a helpful SDR assistant. Keep LinkedIn note length <= 250 characters."
)

var ErrEmptyCompletion = errors.New("text generation returned no content")

type Request struct {
	APIKey string
	System string
	Prompt string
}

// Generator is the request/response text generation collaborator.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type OpenAIGenerator struct {
	Model   string
	BaseURL string
}

func NewOpenAIGenerator(model string) *OpenAIGenerator {
	return &OpenAIGenerator{Model: model}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(req.APIKey)}
	if g.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(g.BaseURL))
	}
	client := openai.NewClient(opts...)

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

var _ Generator = (*OpenAIGenerator)(nil)
