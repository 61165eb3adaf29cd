package transcribe

import (
	"context"
	"strings"
	"sync"

	"github.com/abadojack/whatlanggo"

	"github.com/mgpai22/shadow/internal/logging"
	"github.com/mgpai22/shadow/internal/progress"
	"github.com/mgpai22/shadow/internal/subtitle"
)

// language value that asks for detection
const LanguageAuto = "auto"

// builds a recognizer; may be slow (model load, client setup)
type Loader func(ctx context.Context) (Recognizer, error)

// Stage maps recognizer output onto a subtitle list. The recognizer is built
// on first use and reused for the lifetime of the stage.
type Stage struct {
	load           Loader
	logger         *logging.Logger
	wordTimestamps bool

	mu  sync.Mutex
	rec Recognizer
}

func NewStage(load Loader, logger *logging.Logger) *Stage {
	return &Stage{
		load:           load,
		logger:         logging.OrNop(logger),
		wordTimestamps: true,
	}
}

func (s *Stage) recognizer(ctx context.Context) (Recognizer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec != nil {
		return s.rec, nil
	}
	rec, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.rec = rec
	return rec, nil
}

// Transcribe runs the recognizer once over audioPath. Segment ids are 1-based
// in output order; timestamps are copied as is and text is trimmed. Segments
// are never split or merged.
func (s *Stage) Transcribe(
	ctx context.Context,
	audioPath, language string,
	report progress.Reporter,
) (*subtitle.List, error) {
	report = progress.OrNop(report)
	emit := func(v float64, label string) {
		report.Report(progress.Event{Stage: progress.StageTranscribe, Value: v, Label: label})
	}

	emit(0, "Loading speech model")
	rec, err := s.recognizer(ctx)
	if err != nil {
		return nil, &TranscriptionError{AudioPath: audioPath, Err: err}
	}

	requested := strings.TrimSpace(language)
	if strings.EqualFold(requested, LanguageAuto) {
		requested = ""
	}

	emit(0.1, "Transcribing audio")
	result, err := rec.Transcribe(ctx, audioPath, requested, s.wordTimestamps)
	if err != nil {
		return nil, &TranscriptionError{AudioPath: audioPath, Err: err}
	}

	emit(0.9, "Building subtitles")
	subs := subtitle.NewList(requested)
	for i, seg := range result.Segments {
		subs.Append(&subtitle.Segment{
			ID:         i + 1,
			Start:      seg.Start,
			End:        seg.End,
			SourceText: strings.TrimSpace(seg.Text),
		})
	}
	if subs.Language == "" {
		subs.Language = detectLanguage(subs)
	}

	s.logger.Infow("transcription complete",
		"audio", audioPath,
		"segments", subs.Len(),
		"language", subs.Language,
	)
	emit(1, "Transcription complete")
	return subs, nil
}

// most common per-segment guess, "en" when nothing is recognizable
func detectLanguage(subs *subtitle.List) string {
	counts := make(map[string]int)
	for _, seg := range subs.Segments {
		if seg.SourceText == "" {
			continue
		}
		if code := whatlanggo.DetectLang(seg.SourceText).Iso6391(); code != "" {
			counts[code]++
		}
	}

	top, topCount := "en", 0
	for code, n := range counts {
		if n > topCount || (n == topCount && code < top) {
			top, topCount = code, n
		}
	}
	return top
}
