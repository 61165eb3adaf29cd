package translate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/mgpai22/shadow/internal/logging"
	"github.com/mgpai22/shadow/internal/progress"
	"github.com/mgpai22/shadow/internal/subtitle"
)

const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

type Config struct {
	SourceLanguage string // empty or "auto" uses the list's language
	TargetLanguage string
	BatchSize      int
	BatchDelay     time.Duration
	MaxRetries     int
	RetryDelay     time.Duration // backoff base
	CallTimeout    time.Duration // per attempt, 0 for none
}

func (c Config) withDefaults() Config {
	if c.BatchSize < 1 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	return c
}

// DefaultConfig returns the stock batching and retry settings.
func DefaultConfig(target string) Config {
	return Config{
		TargetLanguage: target,
		BatchSize:      DefaultBatchSize,
		BatchDelay:     DefaultBatchDelay,
		MaxRetries:     DefaultMaxRetries,
		RetryDelay:     DefaultRetryDelay,
	}
}

type sleepFunc func(ctx context.Context, d time.Duration) error

type StageOption func(*Stage)

// replaces the context-aware sleep used between batches and retries
func WithSleep(fn func(ctx context.Context, d time.Duration) error) StageOption {
	return func(s *Stage) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// replaces the uniform [0,1) jitter source
func WithJitter(fn func() float64) StageOption {
	return func(s *Stage) {
		if fn != nil {
			s.jitter = fn
		}
	}
}

// Stage fills in TargetText segment by segment. Failures never abort the
// run; a segment that cannot be translated keeps its source text.
type Stage struct {
	factory ClientFactory
	cfg     Config
	logger  *logging.Logger
	sleep   sleepFunc
	jitter  func() float64
}

func NewStage(factory ClientFactory, cfg Config, logger *logging.Logger, opts ...StageOption) *Stage {
	s := &Stage{
		factory: factory,
		cfg:     cfg.withDefaults(),
		logger:  logging.OrNop(logger),
		sleep:   sleepContext,
		jitter:  rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Translate mutates subs in place and returns it. batchSize and delay
// override the configured values when positive / non-negative. Only context
// cancellation is returned as an error.
func (s *Stage) Translate(
	ctx context.Context,
	subs *subtitle.List,
	batchSize int,
	delay time.Duration,
	report progress.Reporter,
) (*subtitle.List, error) {
	report = progress.OrNop(report)
	if batchSize < 1 {
		batchSize = s.cfg.BatchSize
	}
	if delay < 0 {
		delay = s.cfg.BatchDelay
	}

	total := subs.Len()
	emit := func(done int) {
		v := 1.0
		if total > 0 {
			v = float64(done) / float64(total)
		}
		report.Report(progress.Event{
			Stage: progress.StageTranslate,
			Value: v,
			Label: fmt.Sprintf("Translating %d/%d", done, total),
		})
	}

	if total == 0 {
		emit(0)
		return subs, nil
	}

	src := strings.TrimSpace(s.cfg.SourceLanguage)
	if src == "" || strings.EqualFold(src, "auto") {
		src = subs.Language
	}
	dest := s.cfg.TargetLanguage

	s.logger.Infow("translating subtitles",
		"segments", total,
		"batch_size", batchSize,
		"source", src,
		"target", dest,
	)

	emit(0)
	tr := &translator{stage: s, src: src, dest: dest}
	failed := 0
	for start := 0; start < total; start += batchSize {
		end := min(start+batchSize, total)
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("translation cancelled: %w", err)
			}

			seg := subs.Segments[i]
			seg.Translating = true
			text, err := tr.segment(ctx, seg)
			seg.Translating = false

			if err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("translation cancelled: %w", ctx.Err())
				}
				failed++
				s.logFailure(err)
				text = seg.SourceText
			}
			seg.TargetText = text
			emit(i + 1)
		}

		if end < total && delay > 0 {
			if err := s.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("translation cancelled: %w", err)
			}
		}
	}

	s.logger.Infow("translation complete",
		"segments", total,
		"failed", failed,
	)
	return subs, nil
}

func (s *Stage) logFailure(err error) {
	var transient *TransientError
	var permanent *PermanentError
	switch {
	case errors.As(err, &transient):
		s.logger.Warnw("translation retries exhausted, keeping source text",
			"segment", transient.SegmentID,
			"attempts", transient.Attempts,
			"error", transient.Err,
		)
	case errors.As(err, &permanent):
		s.logger.Warnw("translation failed, keeping source text",
			"segment", permanent.SegmentID,
			"error", permanent.Err,
		)
	default:
		s.logger.Warnw("translation failed, keeping source text", "error", err)
	}
}

// Backoff returns the wait before the retry that follows failed attempt n
// (0-based): base * 2^n plus the jitter in seconds.
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	return time.Duration(float64(base)*math.Pow(2, float64(attempt))) +
		time.Duration(jitter*float64(time.Second))
}

// per-run client handle; dropped and rebuilt before every retry
type translator struct {
	stage  *Stage
	client Service
	src    string
	dest   string
}

func (t *translator) segment(ctx context.Context, seg *subtitle.Segment) (string, error) {
	if strings.TrimSpace(seg.SourceText) == "" {
		return "", nil
	}

	s := t.stage
	attempts := s.cfg.MaxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := Backoff(s.cfg.RetryDelay, attempt-1, s.jitter())
			s.logger.Debugw("retrying translation",
				"segment", seg.ID,
				"attempt", attempt+1,
				"wait", wait,
			)
			if err := s.sleep(ctx, wait); err != nil {
				return "", err
			}
			t.client = nil
		}

		text, err := t.call(ctx, seg.SourceText)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		if !IsTimeout(err) {
			return "", &PermanentError{SegmentID: seg.ID, Err: err}
		}
	}
	return "", &TransientError{SegmentID: seg.ID, Attempts: attempts, Err: lastErr}
}

func (t *translator) call(ctx context.Context, text string) (string, error) {
	if t.client == nil {
		client, err := t.stage.factory(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to create translation client: %w", err)
		}
		t.client = client
	}

	callCtx := ctx
	if d := t.stage.cfg.CallTimeout; d > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return t.client.Translate(callCtx, text, t.src, t.dest)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
