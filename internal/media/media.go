// Package media inspects video files and extracts the audio track the
// recognizer expects.
package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mgpai22/shadow/internal/timecode"
)

// snapshot of a probed video file
type Info struct {
	Path       string
	Name       string
	Duration   float64 // seconds
	Width      int
	Height     int
	FrameRate  float64
	Size       int64
	VideoCodec string
	AudioCodec string
	HasAudio   bool

	// filled in by the pipeline as artifacts are produced
	AudioPath    string
	SubtitlePath string
}

// WxH
func (i *Info) Resolution() string {
	return fmt.Sprintf("%dx%d", i.Width, i.Height)
}

// width / height, or 0 when height is unknown
func (i *Info) AspectRatio() float64 {
	if i.Height == 0 {
		return 0
	}
	return float64(i.Width) / float64(i.Height)
}

func (i *Info) SizeString() string {
	if i.Size < 0 {
		return humanize.IBytes(0)
	}
	return humanize.IBytes(uint64(i.Size))
}

// HH:MM:SS
func (i *Info) DurationString() string {
	return timecode.HHMMSS(i.Duration)
}

// NoVideoStreamError is returned when a file has no video stream, including
// audio-only files.
type NoVideoStreamError struct {
	Path string
}

func (e *NoVideoStreamError) Error() string {
	return fmt.Sprintf("no video stream found in %s", e.Path)
}

// MediaToolError reports a failed ffmpeg or ffprobe invocation.
type MediaToolError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *MediaToolError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	if tail := stderrTail(e.Stderr, 5); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *MediaToolError) Unwrap() error { return e.Err }

// last n non-empty lines of ffmpeg's stderr
func stderrTail(stderr string, n int) string {
	var lines []string
	for _, line := range strings.Split(stderr, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

// checks if the file is a video based on extension
func IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	videoExts := map[string]bool{
		".mp4":  true,
		".mkv":  true,
		".avi":  true,
		".mov":  true,
		".wmv":  true,
		".flv":  true,
		".webm": true,
		".m4v":  true,
		".mpeg": true,
		".mpg":  true,
		".3gp":  true,
	}
	return videoExts[ext]
}
