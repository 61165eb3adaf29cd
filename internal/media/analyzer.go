package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/shadow/internal/cache"
	ffmpegbin "github.com/mgpai22/shadow/internal/ffmpeg"
	"github.com/mgpai22/shadow/internal/logging"
)

// audio format expected by the recognizer
const (
	AudioExtension  = "wav"
	AudioCodec      = "pcm_s16le"
	AudioSampleRate = 16000
	AudioChannels   = 1
)

// runs a tool, writing its stdout to stdout and returning stderr text
type runFunc func(ctx context.Context, name string, args []string, stdout io.Writer) (string, error)

type verifyFunc func(ctx context.Context, tool, path string) error

// Analyzer runs ffprobe and ffmpeg against video files.
type Analyzer struct {
	paths  ffmpegbin.BinaryPaths
	cache  *cache.Cache
	logger *logging.Logger
	run    runFunc
}

type Option func(*analyzerConfig)

type analyzerConfig struct {
	binaries   *ffmpegbin.BinaryPaths
	ffmpegOpts ffmpegbin.Options
	logger     *logging.Logger
	run        runFunc
	verify     verifyFunc
}

// use the given binaries instead of resolving them
func WithBinaries(paths ffmpegbin.BinaryPaths) Option {
	return func(c *analyzerConfig) { c.binaries = &paths }
}

func WithFFmpegOptions(opts ffmpegbin.Options) Option {
	return func(c *analyzerConfig) { c.ffmpegOpts = opts }
}

func WithLogger(logger *logging.Logger) Option {
	return func(c *analyzerConfig) { c.logger = logger }
}

// NewAnalyzer resolves ffmpeg and ffprobe and checks that both run, so a
// missing tool fails here with install instructions rather than mid-run.
func NewAnalyzer(ctx context.Context, c *cache.Cache, opts ...Option) (*Analyzer, error) {
	cfg := analyzerConfig{
		run:    runTool,
		verify: ffmpegbin.Verify,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var paths ffmpegbin.BinaryPaths
	if cfg.binaries != nil {
		paths = *cfg.binaries
	} else {
		resolved, err := ffmpegbin.Ensure(cfg.ffmpegOpts)
		if err != nil {
			return nil, err
		}
		paths = resolved
	}

	if err := cfg.verify(ctx, "ffmpeg", paths.FFmpeg); err != nil {
		return nil, err
	}
	if err := cfg.verify(ctx, "ffprobe", paths.FFprobe); err != nil {
		return nil, err
	}

	logger := logging.OrNop(cfg.logger)
	logger.Debugw("media tools ready", "ffmpeg", paths.FFmpeg, "ffprobe", paths.FFprobe)

	return &Analyzer{
		paths:  paths,
		cache:  c,
		logger: logger,
		run:    cfg.run,
	}, nil
}

// Probe reads stream and container metadata. The first video stream and the
// first audio stream in declaration order are used.
func (a *Analyzer) Probe(ctx context.Context, path string) (*Info, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("video file not found: %w", err)
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	var out bytes.Buffer
	if stderr, err := a.run(ctx, a.paths.FFprobe, args, &out); err != nil {
		return nil, toolError("ffprobe", args, stderr, err)
	}

	info, err := parseProbeOutput(path, out.Bytes())
	if err != nil {
		return nil, err
	}
	a.logger.Debugw("probed video",
		"path", path,
		"duration", info.DurationString(),
		"resolution", info.Resolution(),
		"fps", info.FrameRate,
		"has_audio", info.HasAudio,
	)
	return info, nil
}

// ExtractAudio writes a 16 kHz mono PCM WAV of the video's audio. With an
// empty outPath the file goes to the audio cache keyed on the video's bytes.
// An existing output is returned as is.
func (a *Analyzer) ExtractAudio(ctx context.Context, videoPath, outPath string) (string, error) {
	if outPath == "" {
		if a.cache == nil {
			return "", errors.New("extract audio: no output path and no cache configured")
		}
		p, err := cache.Path(videoPath, a.cache.AudioDir(), AudioExtension)
		if err != nil {
			return "", err
		}
		outPath = p
	}

	if cache.Exists(outPath) {
		a.logger.Debugw("audio cache hit", "path", outPath)
		return outPath, nil
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", &cache.CacheIOError{Op: "mkdir", Path: filepath.Dir(outPath), Err: err}
	}

	unlock, err := cache.Lock(ctx, outPath)
	if err != nil {
		return "", err
	}
	defer unlock()

	// another process may have finished it while we waited
	if cache.Exists(outPath) {
		return outPath, nil
	}

	partial := partialPath(outPath)
	args := extractAudioArgs(videoPath, partial)
	if stderr, err := a.run(ctx, a.paths.FFmpeg, args, io.Discard); err != nil {
		_ = os.Remove(partial)
		return "", toolError("ffmpeg", args, stderr, err)
	}
	if err := os.Rename(partial, outPath); err != nil {
		_ = os.Remove(partial)
		return "", &cache.CacheIOError{Op: "rename", Path: outPath, Err: err}
	}

	a.logger.Infow("extracted audio", "video", videoPath, "audio", outPath)
	return outPath, nil
}

// Thumbnail grabs one frame at atSeconds scaled to width x height and
// returns it as PNG bytes.
func (a *Analyzer) Thumbnail(ctx context.Context, videoPath string, atSeconds float64, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %dx%d", width, height)
	}
	if atSeconds < 0 {
		atSeconds = 0
	}

	args := thumbnailArgs(videoPath, atSeconds, width, height)
	var out bytes.Buffer
	if stderr, err := a.run(ctx, a.paths.FFmpeg, args, &out); err != nil {
		return nil, toolError("ffmpeg", args, stderr, err)
	}
	if out.Len() == 0 {
		return nil, &MediaToolError{Tool: "ffmpeg", Args: args, Err: errors.New("no frame produced")}
	}
	return out.Bytes(), nil
}

func extractAudioArgs(videoPath, outPath string) []string {
	return ffmpeg.Input(videoPath).
		Output(outPath, ffmpeg.KwArgs{
			"vn":     "",
			"acodec": AudioCodec,
			"ar":     AudioSampleRate,
			"ac":     AudioChannels,
		}).
		OverWriteOutput().
		GetArgs()
}

func thumbnailArgs(videoPath string, atSeconds float64, width, height int) []string {
	return ffmpeg.Input(videoPath, ffmpeg.KwArgs{"ss": fmt.Sprintf("%.3f", atSeconds)}).
		Output("pipe:", ffmpeg.KwArgs{
			"vframes": 1,
			"s":       fmt.Sprintf("%dx%d", width, height),
			"f":       "image2pipe",
			"vcodec":  "png",
		}).
		GetArgs()
}

// <dir>/<name>.part.<ext> keeps the extension so ffmpeg picks the muxer
func partialPath(outPath string) string {
	ext := filepath.Ext(outPath)
	return strings.TrimSuffix(outPath, ext) + ".part" + ext
}

func toolError(tool string, args []string, stderr string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", tool, err)
	}
	return &MediaToolError{Tool: tool, Args: args, Stderr: stderr, Err: err}
}

func runTool(ctx context.Context, name string, args []string, stdout io.Writer) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stderr.String(), ctxErr
		}
		return stderr.String(), err
	}
	return stderr.String(), nil
}
