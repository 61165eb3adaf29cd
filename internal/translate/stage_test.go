package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/shadow/internal/progress"
	"github.com/mgpai22/shadow/internal/subtitle"
)

// scripted Service; fn decides each reply
type fakeService struct {
	mu    sync.Mutex
	calls []string
	fn    func(call int, text string) (string, error)
}

func (f *fakeService) Translate(ctx context.Context, text, src, dest string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	n := len(f.calls)
	f.mu.Unlock()
	if f.fn == nil {
		return "[" + dest + "] " + text, nil
	}
	return f.fn(n, text)
}

func (f *fakeService) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newList(texts ...string) *subtitle.List {
	subs := subtitle.NewList("en")
	for i, text := range texts {
		subs.Append(&subtitle.Segment{
			ID:         i + 1,
			Start:      float64(i * 2),
			End:        float64(i*2 + 2),
			SourceText: text,
		})
	}
	return subs
}

func newTestStage(svc *fakeService, factoryCalls *int, cfg Config, rec *sleepRecorder) *Stage {
	factory := func(ctx context.Context) (Service, error) {
		if factoryCalls != nil {
			*factoryCalls++
		}
		return svc, nil
	}
	return NewStage(factory, cfg, nil,
		WithSleep(rec.sleep),
		WithJitter(func() float64 { return 0.5 }),
	)
}

func TestStageTranslatesEverySegment(t *testing.T) {
	svc := &fakeService{}
	rec := &sleepRecorder{}
	stage := newTestStage(svc, nil, DefaultConfig("zh-CN"), rec)

	subs := newList("Hello", "Goodbye")
	out, err := stage.Translate(t.Context(), subs, 10, time.Second, nil)
	require.NoError(t, err)

	assert.Same(t, subs, out, "list is mutated in place")
	assert.Equal(t, "[zh-CN] Hello", subs.Segments[0].TargetText)
	assert.Equal(t, "[zh-CN] Goodbye", subs.Segments[1].TargetText)
	assert.False(t, subs.Segments[0].Translating)
	assert.Empty(t, rec.sleeps, "single batch never sleeps")
}

func TestStageSkipsBlankText(t *testing.T) {
	svc := &fakeService{}
	stage := newTestStage(svc, nil, DefaultConfig("zh"), &sleepRecorder{})

	subs := newList("", "   ", "Hi")
	_, err := stage.Translate(t.Context(), subs, 10, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.count())
	assert.Equal(t, "", subs.Segments[0].TargetText)
	assert.Equal(t, "", subs.Segments[1].TargetText)
	assert.Equal(t, "[zh] Hi", subs.Segments[2].TargetText)
}

func TestStageRetryExhaustionFallsBackToSource(t *testing.T) {
	svc := &fakeService{fn: func(int, string) (string, error) {
		return "", errors.New("read tcp: i/o timeout")
	}}
	factoryCalls := 0
	rec := &sleepRecorder{}
	cfg := DefaultConfig("zh")
	cfg.MaxRetries = 3
	cfg.RetryDelay = 2 * time.Second
	stage := newTestStage(svc, &factoryCalls, cfg, rec)

	subs := newList("Hello")
	out, err := stage.Translate(t.Context(), subs, 10, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, cfg.MaxRetries+1, svc.count())
	assert.Equal(t, cfg.MaxRetries+1, factoryCalls, "client rebuilt before every retry")
	assert.Equal(t, "Hello", out.Segments[0].TargetText)
	assert.Equal(t, []time.Duration{
		2500 * time.Millisecond,
		4500 * time.Millisecond,
		8500 * time.Millisecond,
	}, rec.sleeps)
}

func TestStageRecoversAfterTransientFailure(t *testing.T) {
	svc := &fakeService{fn: func(call int, text string) (string, error) {
		if call == 1 {
			return "", context.DeadlineExceeded
		}
		return "你好", nil
	}}
	factoryCalls := 0
	stage := newTestStage(svc, &factoryCalls, DefaultConfig("zh"), &sleepRecorder{})

	subs := newList("Hello")
	_, err := stage.Translate(t.Context(), subs, 10, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, svc.count())
	assert.Equal(t, 2, factoryCalls)
	assert.Equal(t, "你好", subs.Segments[0].TargetText)
}

func TestStagePermanentErrorIsNotRetried(t *testing.T) {
	svc := &fakeService{fn: func(call int, text string) (string, error) {
		if text == "bad" {
			return "", errors.New("401 unauthorized")
		}
		return "ok", nil
	}}
	factoryCalls := 0
	rec := &sleepRecorder{}
	stage := newTestStage(svc, &factoryCalls, DefaultConfig("zh"), rec)

	subs := newList("bad", "good")
	_, err := stage.Translate(t.Context(), subs, 10, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, svc.count(), "one attempt per segment")
	assert.Equal(t, 1, factoryCalls, "client reused across segments")
	assert.Equal(t, "bad", subs.Segments[0].TargetText)
	assert.Equal(t, "ok", subs.Segments[1].TargetText)
	assert.Empty(t, rec.sleeps)
}

func TestStageFactoryFailureDegrades(t *testing.T) {
	factory := func(ctx context.Context) (Service, error) {
		return nil, errors.New("API key is required")
	}
	stage := NewStage(factory, DefaultConfig("zh"), nil, WithSleep((&sleepRecorder{}).sleep))

	subs := newList("Hello")
	_, err := stage.Translate(t.Context(), subs, 10, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello", subs.Segments[0].TargetText)
}

func TestStageSleepsBetweenBatchesOnly(t *testing.T) {
	tests := []struct {
		segments   int
		batchSize  int
		wantSleeps int
	}{
		{segments: 1, batchSize: 10, wantSleeps: 0},
		{segments: 10, batchSize: 10, wantSleeps: 0},
		{segments: 11, batchSize: 10, wantSleeps: 1},
		{segments: 25, batchSize: 10, wantSleeps: 2},
		{segments: 6, batchSize: 2, wantSleeps: 2},
		{segments: 5, batchSize: 1, wantSleeps: 4},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.segments, tt.batchSize), func(t *testing.T) {
			rec := &sleepRecorder{}
			stage := newTestStage(&fakeService{}, nil, DefaultConfig("zh"), rec)

			texts := make([]string, tt.segments)
			for i := range texts {
				texts[i] = fmt.Sprintf("line %d", i)
			}
			_, err := stage.Translate(t.Context(), newList(texts...), tt.batchSize, 750*time.Millisecond, nil)
			require.NoError(t, err)

			require.Len(t, rec.sleeps, tt.wantSleeps)
			for _, d := range rec.sleeps {
				assert.Equal(t, 750*time.Millisecond, d)
			}
		})
	}
}

func TestStageProgressIsMonotonic(t *testing.T) {
	for _, n := range []int{0, 1, 7, 23} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			var events []progress.Event
			report := progress.ReporterFunc(func(e progress.Event) { events = append(events, e) })
			stage := newTestStage(&fakeService{}, nil, DefaultConfig("zh"), &sleepRecorder{})

			texts := make([]string, n)
			for i := range texts {
				texts[i] = strings.Repeat("a", i+1)
			}
			_, err := stage.Translate(t.Context(), newList(texts...), 3, 0, report)
			require.NoError(t, err)

			require.NotEmpty(t, events)
			for i := 1; i < len(events); i++ {
				assert.GreaterOrEqual(t, events[i].Value, events[i-1].Value)
			}
			last := events[len(events)-1]
			assert.Equal(t, 1.0, last.Value)
			assert.Equal(t, progress.StageTranslate, last.Stage)
		})
	}
}

func TestStageCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	svc := &fakeService{fn: func(call int, text string) (string, error) {
		if call == 2 {
			cancel()
		}
		return "x", nil
	}}
	stage := newTestStage(svc, nil, DefaultConfig("zh"), &sleepRecorder{})

	subs := newList("a", "b", "c", "d")
	_, err := stage.Translate(ctx, subs, 10, 0, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, svc.count(), "no segment starts after cancellation")
	assert.Empty(t, subs.Segments[3].TargetText)
}

func TestStageUsesListLanguageWhenSourceIsAuto(t *testing.T) {
	var gotSrc string
	factory := func(ctx context.Context) (Service, error) {
		return serviceFunc(func(ctx context.Context, text, src, dest string) (string, error) {
			gotSrc = src
			return text, nil
		}), nil
	}
	cfg := DefaultConfig("zh")
	cfg.SourceLanguage = "auto"
	stage := NewStage(factory, cfg, nil)

	subs := newList("Bonjour")
	subs.Language = "fr"
	_, err := stage.Translate(t.Context(), subs, 10, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "fr", gotSrc)
}

type serviceFunc func(ctx context.Context, text, src, dest string) (string, error)

func (f serviceFunc) Translate(ctx context.Context, text, src, dest string) (string, error) {
	return f(ctx, text, src, dest)
}

func TestBackoff(t *testing.T) {
	base := 2 * time.Second
	assert.Equal(t, 2*time.Second, Backoff(base, 0, 0))
	assert.Equal(t, 4*time.Second, Backoff(base, 1, 0))
	assert.Equal(t, 8*time.Second+250*time.Millisecond, Backoff(base, 2, 0.25))
}

func TestIsTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"message timeout", errors.New("Request Timeout"), true},
		{"message timed out", errors.New("operation timed out"), true},
		{"auth", errors.New("invalid api key"), false},
		{"cancel", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTimeout(tt.err))
		})
	}
}

func TestStageErrorTypes(t *testing.T) {
	inner := errors.New("boom")
	var err error = &TransientError{SegmentID: 4, Attempts: 4, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "segment 4")

	err = &PermanentError{SegmentID: 2, Err: inner}
	var perm *PermanentError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, 2, perm.SegmentID)
}
