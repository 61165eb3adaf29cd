package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// implements Recognizer using the OpenAI Audio API
type OpenAIRecognizer struct {
	client  openai.Client
	model   string
	options Options
}

// segment from OpenAI Whisper verbose_json response
type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// verbose_json response structure from Whisper
type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

func NewOpenAIRecognizer(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAIRecognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	model := opts.Model
	if model == "" {
		model = "whisper-1"
	}

	return &OpenAIRecognizer{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

// transcribes the whole audio file in one request
func (r *OpenAIRecognizer) Transcribe(
	ctx context.Context,
	audioPath, language string,
	wordTimestamps bool,
) (*Result, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	granularities := []string{"segment"}
	if wordTimestamps {
		granularities = append(granularities, "word")
	}

	params := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModel(r.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: granularities,
	}
	if language != "" {
		params.Language = openai.String(language)
	}
	if r.options.Prompt != "" {
		params.Prompt = openai.String(r.options.Prompt)
	}

	resp, err := r.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	parsed, err := parseVerboseJSONResponse(resp.RawJSON())
	if err != nil {
		return nil, err
	}
	if language != "" {
		parsed.Language = language
	}
	return parsed, nil
}

func parseVerboseJSONResponse(rawJSON string) (*Result, error) {
	if rawJSON == "" {
		return nil, fmt.Errorf("empty response")
	}

	var verboseResp whisperVerboseResponse
	if err := json.Unmarshal([]byte(rawJSON), &verboseResp); err != nil {
		return nil, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	result := &Result{
		Language: verboseResp.Language,
		Duration: verboseResp.Duration,
	}

	if len(verboseResp.Segments) == 0 {
		text := strings.TrimSpace(verboseResp.Text)
		if text == "" {
			return nil, fmt.Errorf("no segments or text in response")
		}
		if verboseResp.Duration <= 0 {
			return nil, fmt.Errorf("response has text but no segments or duration")
		}
		result.Segments = []RawSegment{{
			Start: 0,
			End:   verboseResp.Duration,
			Text:  text,
		}}
		return result, nil
	}

	result.Segments = make([]RawSegment, 0, len(verboseResp.Segments))
	for _, seg := range verboseResp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		result.Segments = append(result.Segments, RawSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}
	return result, nil
}
