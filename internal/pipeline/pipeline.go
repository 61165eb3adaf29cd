// Package pipeline runs a video through analysis, transcription, translation
// and persistence as one sequential unit of work.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mgpai22/shadow/internal/cache"
	"github.com/mgpai22/shadow/internal/logging"
	"github.com/mgpai22/shadow/internal/media"
	"github.com/mgpai22/shadow/internal/progress"
	"github.com/mgpai22/shadow/internal/subtitle"
)

// overall progress at the start of each stage
const (
	progressAnalyze    = 0.1
	progressTranscribe = 0.2
	progressTranslate  = 0.7
	progressSave       = 0.95
	progressDone       = 1.0
)

// Analyzer is the subset of media.Analyzer the pipeline needs.
type Analyzer interface {
	Probe(ctx context.Context, path string) (*media.Info, error)
	ExtractAudio(ctx context.Context, videoPath, outPath string) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string, report progress.Reporter) (*subtitle.List, error)
}

type Translator interface {
	Translate(
		ctx context.Context,
		subs *subtitle.List,
		batchSize int,
		delay time.Duration,
		report progress.Reporter,
	) (*subtitle.List, error)
}

// where a run's subtitles came from
type Source string

const (
	SourceCompanion Source = "companion"
	SourceCache     Source = "cache"
	SourcePipeline  Source = "pipeline"
)

type Config struct {
	Language   string // recognition language, "auto" to detect
	BatchSize  int
	BatchDelay time.Duration
	Force      bool // ignore companion exports and cached subtitles
	NoExport   bool // skip the _bilingual files next to the video
}

type Result struct {
	RunID     string
	Info      *media.Info
	Subtitles *subtitle.List
	Source    Source
	Exports   []string
}

// Runner wires the stages together. It holds no per-run state and may be
// reused for several videos, one at a time.
type Runner struct {
	analyzer    Analyzer
	transcriber Transcriber
	translator  Translator
	cache       *cache.Cache
	store       *subtitle.Store
	cfg         Config
	logger      *logging.Logger
}

func NewRunner(
	analyzer Analyzer,
	transcriber Transcriber,
	translator Translator,
	c *cache.Cache,
	cfg Config,
	logger *logging.Logger,
) *Runner {
	return &Runner{
		analyzer:    analyzer,
		transcriber: transcriber,
		translator:  translator,
		cache:       c,
		store:       subtitle.NewStore(c),
		cfg:         cfg,
		logger:      logging.OrNop(logger),
	}
}

// Run produces bilingual subtitles for videoPath. Mandatory stage failures
// abort the run; translation failures only degrade the output. A cancelled
// run returns the context error and writes nothing to the cache.
func (r *Runner) Run(ctx context.Context, videoPath string, report progress.Reporter) (*Result, error) {
	report = progress.OrNop(report)
	res := &Result{RunID: uuid.NewString()}
	log := r.logger.With("run_id", res.RunID, "video", videoPath)
	emit := func(stage string, v float64, label string) {
		report.Report(progress.Event{Stage: stage, Value: v, Label: label})
	}

	if !r.cfg.Force {
		subs, path, found, err := subtitle.LoadCompanion(videoPath)
		if err != nil {
			log.Warnw("ignoring unreadable companion subtitles", "path", path, "error", err)
		}
		if found {
			info, err := r.analyzer.Probe(ctx, videoPath)
			if err != nil {
				return nil, err
			}
			info.SubtitlePath = path
			log.Infow("loaded existing subtitles", "path", path, "segments", subs.Len())
			emit(progress.StageDone, progressDone, "Loaded existing subtitles")
			res.Info, res.Subtitles, res.Source = info, subs, SourceCompanion
			return res, nil
		}
	}

	emit(progress.StageAnalyze, progressAnalyze, "Analyzing video")
	key, err := cache.Hash(videoPath)
	if err != nil {
		return nil, err
	}
	log = log.With("key", key)

	info, err := r.analyzer.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	res.Info = info
	log.Infow("video analyzed",
		"duration", info.DurationString(),
		"resolution", info.Resolution(),
		"size", info.SizeString(),
	)

	if !r.cfg.Force {
		subs, found, err := r.store.LoadFromCacheKey(key, subtitle.FormatJSON)
		if err != nil {
			log.Warnw("ignoring unreadable cached subtitles", "error", err)
		}
		if found {
			info.SubtitlePath = r.store.PathForKey(key, subtitle.FormatJSON)
			log.Infow("loaded cached subtitles", "path", info.SubtitlePath, "segments", subs.Len())
			res.Subtitles, res.Source = subs, SourceCache
			if err := r.export(ctx, res, videoPath, log); err != nil {
				return nil, err
			}
			emit(progress.StageDone, progressDone, "Loaded cached subtitles")
			return res, nil
		}
	}

	if err := stageErr(ctx, "audio extraction"); err != nil {
		return nil, err
	}
	audioPath, err := r.analyzer.ExtractAudio(ctx, videoPath,
		cache.PathForHash(key, r.cache.AudioDir(), media.AudioExtension))
	if err != nil {
		return nil, err
	}
	info.AudioPath = audioPath

	if err := stageErr(ctx, "transcription"); err != nil {
		return nil, err
	}
	emit(progress.StageTranscribe, progressTranscribe, "Recognizing speech")
	subs, err := r.transcriber.Transcribe(ctx, audioPath, r.cfg.Language,
		progress.Scale(report, progressTranscribe, progressTranslate))
	if err != nil {
		return nil, err
	}
	if err := subs.Validate(); err != nil {
		log.Warnw("transcript has irregular timing", "error", err)
	}

	if err := stageErr(ctx, "translation"); err != nil {
		return nil, err
	}
	emit(progress.StageTranslate, progressTranslate, "Translating subtitles")
	subs, err = r.translator.Translate(ctx, subs, r.cfg.BatchSize, r.cfg.BatchDelay,
		progress.Scale(report, progressTranslate, progressSave))
	if err != nil {
		return nil, err
	}

	if err := stageErr(ctx, "save"); err != nil {
		return nil, err
	}
	emit(progress.StageSave, progressSave, "Saving subtitles")
	cachePath, err := r.store.SaveToCacheKey(subs, key, subtitle.FormatJSON)
	if err != nil {
		return nil, err
	}
	info.SubtitlePath = cachePath
	res.Subtitles, res.Source = subs, SourcePipeline

	if err := r.export(ctx, res, videoPath, log); err != nil {
		return nil, err
	}

	log.Infow("processing complete",
		"segments", subs.Len(),
		"translated", subs.TranslatedCount(),
		"cache", cachePath,
	)
	emit(progress.StageDone, progressDone, "Done")
	return res, nil
}

// writes the _bilingual exports unless disabled
func (r *Runner) export(ctx context.Context, res *Result, videoPath string, log *logging.Logger) error {
	if r.cfg.NoExport {
		return nil
	}
	if err := stageErr(ctx, "export"); err != nil {
		return err
	}
	paths, err := subtitle.SaveCompanion(res.Subtitles, videoPath)
	res.Exports = paths
	if err != nil {
		return err
	}
	log.Debugw("wrote companion subtitles", "paths", paths)
	return nil
}

func stageErr(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s cancelled: %w", stage, err)
	}
	return nil
}
