package translate

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// implements Service using OpenAI Chat Completions
type OpenAIService struct {
	client  openai.Client
	model   string
	options Options
}

func NewOpenAIService(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	model := opts.Model
	if model == "" {
		model = "gpt-5-mini"
	}

	return &OpenAIService{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (s *OpenAIService) Translate(ctx context.Context, text, src, dest string) (string, error) {
	completion, err := s.client.Chat.Completions.New(
		ctx,
		openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(singleTextPrompt(text, src, dest, s.options.Prompt)),
			},
			Model: s.model,
		},
	)
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	return parseSingleResult("OpenAI", completion.Choices[0].Message.Content)
}
