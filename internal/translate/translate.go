package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Service translates a single text between explicit language codes.
type Service interface {
	Translate(ctx context.Context, text, src, dest string) (string, error)
}

// ClientFactory builds a fresh Service. The stage calls it once per run and
// again before every retry so a broken connection is never reused.
type ClientFactory func(ctx context.Context) (Service, error)

// translation service provider
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderLibre     Provider = "libre"
)

type Options struct {
	Model   string
	Prompt  string        // extra instructions for LLM providers
	BaseURL string        // LibreTranslate endpoint
	Timeout time.Duration // per request, LibreTranslate only
}

// creates Service based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Service, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiService(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAIService(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewAnthropicService(ctx, apiKey, opts)
	case ProviderLibre:
		return NewLibreService(apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", provider)
	}
}

// NewClientFactory returns a ClientFactory that rebuilds the provider's
// client on every call.
func NewClientFactory(provider Provider, apiKey string, opts Options) ClientFactory {
	return func(ctx context.Context) (Service, error) {
		return Factory(ctx, provider, apiKey, opts)
	}
}

// single text item sent to an LLM provider
type TranslationItem struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// translated text item
type TranslationResult struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// languages and extra instructions for BuildPrompt
type PromptOptions struct {
	InputLanguage  string
	TargetLanguage string
	Prompt         string
}

// BuildPrompt creates the translation prompt for LLM providers
func BuildPrompt(opts PromptOptions, items []TranslationItem) string {
	var sb strings.Builder

	if opts.InputLanguage != "" {
		sb.WriteString(fmt.Sprintf(
			"Translate the following %s subtitle texts to %s.\n\n",
			opts.InputLanguage,
			opts.TargetLanguage,
		))
	} else {
		sb.WriteString(fmt.Sprintf(
			"Translate the following subtitle texts to %s.\n\n",
			opts.TargetLanguage,
		))
	}

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString(
		"1. Translate ONLY the text content, preserving the meaning.\n",
	)
	sb.WriteString(
		"2. Keep the tone natural for spoken dialogue; do not summarize.\n",
	)
	sb.WriteString("3. Return ONLY a JSON array with the same structure.\n")
	sb.WriteString("4. Each object must have 'index' and 'text' fields.\n")
	sb.WriteString(
		"5. The 'index' values must match the input indices exactly.\n",
	)
	sb.WriteString("6. Do not add any explanation or markdown formatting.\n\n")

	if opts.Prompt != "" {
		sb.WriteString(
			fmt.Sprintf("Additional instructions: %s\n\n", opts.Prompt),
		)
	}

	sb.WriteString("Input JSON:\n")

	inputJSON, _ := json.MarshalIndent(items, "", "  ")
	sb.Write(inputJSON)

	sb.WriteString("\n\nOutput the translated JSON array only:")

	return sb.String()
}

// prompt for one text between two language codes
func singleTextPrompt(text, src, dest, extra string) string {
	return BuildPrompt(PromptOptions{
		InputLanguage:  DisplayName(src),
		TargetLanguage: DisplayName(dest),
		Prompt:         extra,
	}, []TranslationItem{{Index: 0, Text: text}})
}

// pulls the single translated text out of an LLM reply
func parseSingleResult(provider, responseText string) (string, error) {
	if responseText == "" {
		return "", fmt.Errorf("no text in %s response", provider)
	}

	responseText = cleanJSONResponse(responseText)
	results, err := extractTranslationResults(responseText)
	if err != nil {
		return "", fmt.Errorf(
			"failed to parse JSON response: %w (response: %s)",
			err,
			truncateString(responseText, 200),
		)
	}
	for _, r := range results {
		if r.Index == 0 {
			return strings.TrimSpace(r.Text), nil
		}
	}
	return strings.TrimSpace(results[0].Text), nil
}
