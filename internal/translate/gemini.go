package translate

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// implements Service using Google Gemini
type GeminiService struct {
	client  *genai.Client
	model   string
	options Options
}

func NewGeminiService(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiService{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (s *GeminiService) Translate(ctx context.Context, text, src, dest string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(singleTextPrompt(text, src, dest, s.options.Prompt)),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var responseText string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				responseText += part.Text
			}
		}
		if responseText != "" {
			break
		}
	}
	return parseSingleResult("Gemini", responseText)
}
