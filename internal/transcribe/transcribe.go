package transcribe

import (
	"context"
	"fmt"
)

// segment as returned by a recognizer, seconds from the start of the audio
type RawSegment struct {
	Start float64
	End   float64
	Text  string
}

// transcription result
type Result struct {
	Segments []RawSegment
	Language string
	Duration float64 // seconds, 0 when unknown
}

// Recognizer turns an audio file into timed text. language may be empty to
// let the service detect it.
type Recognizer interface {
	Transcribe(ctx context.Context, audioPath, language string, wordTimestamps bool) (*Result, error)
}

// transcription service provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// recognizer options
type Options struct {
	Model  string
	Prompt string
}

// TranscriptionError wraps any failure of the recognition service. It is
// never retried.
type TranscriptionError struct {
	AudioPath string
	Err       error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription of %s failed: %v", e.AudioPath, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// creates recognizer based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Recognizer, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiRecognizer(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAIRecognizer(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
