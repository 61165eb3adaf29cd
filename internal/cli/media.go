package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/shadow/internal/cache"
	"github.com/mgpai22/shadow/internal/ffmpeg"
	"github.com/mgpai22/shadow/internal/media"
)

// opens the cache and builds an analyzer with verified ffmpeg tools
func newAnalyzer(ctx context.Context) (*cache.Cache, *media.Analyzer, error) {
	c, err := cache.New(cfg.CacheDir)
	if err != nil {
		return nil, nil, err
	}
	analyzer, err := media.NewAnalyzer(ctx, c,
		media.WithFFmpegOptions(ffmpeg.Options{AllowDownload: cfg.FFmpeg.Download}),
		media.WithLogger(logger.Named("media")),
	)
	if err != nil {
		return nil, nil, err
	}
	return c, analyzer, nil
}

func checkVideo(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", path)
	}
	if !media.IsVideoFile(path) {
		return fmt.Errorf("unsupported file type: %s (expected a video file)", filepath.Ext(path))
	}
	return nil
}

// <dir>/<stem><suffix>
func siblingPath(path, suffix string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + suffix
}
