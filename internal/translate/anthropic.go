package translate

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// implements Service using Anthropic Claude
type AnthropicService struct {
	client  anthropic.Client
	model   anthropic.Model
	options Options
}

func NewAnthropicService(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*AnthropicService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	model := anthropic.Model(opts.Model)
	if opts.Model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}

	return &AnthropicService{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (s *AnthropicService) Translate(ctx context.Context, text, src, dest string) (string, error) {
	message, err := s.client.Messages.New(
		ctx,
		anthropic.MessageNewParams{
			Model:     s.model,
			MaxTokens: 1024,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewTextBlock(singleTextPrompt(text, src, dest, s.options.Prompt)),
				),
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}
	if message == nil || len(message.Content) == 0 {
		return "", fmt.Errorf("empty response from Anthropic")
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}
	return parseSingleResult("Anthropic", responseText)
}
