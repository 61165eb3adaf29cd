// Package ffmpeg locates the ffmpeg and ffprobe executables.
package ffmpeg

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	ffmpegReleaseVersion = "6.1"
	ffmpegReleaseBaseURL = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download"

	EnvFFmpegPath  = "SHADOW_FFMPEG_PATH"
	EnvFFprobePath = "SHADOW_FFPROBE_PATH"
)

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

// Options controls where bundled binaries live and whether a missing bundle
// may be fetched.
type Options struct {
	AllowDownload bool
	// defaults to <user cache dir>/shadow/ffmpeg/<version>/<os>/<arch>
	InstallDir string
}

// ToolMissingError reports that a required executable could not be found or
// does not run.
type ToolMissingError struct {
	Tool string
	GOOS string
	Err  error
}

func (e *ToolMissingError) Error() string {
	msg := fmt.Sprintf("%s not found", e.Tool)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg + "\n" + Remediation(e.GOOS)
}

func (e *ToolMissingError) Unwrap() error { return e.Err }

// per-platform install steps, in the order they are listed
var installSteps = []struct{ goos, text string }{
	{"windows", "Windows: download a build from https://ffmpeg.org/download.html and add its bin directory to PATH"},
	{"darwin", "macOS: brew install ffmpeg"},
	{"linux", "Linux: sudo apt install ffmpeg (or your distribution's equivalent)"},
}

// Remediation lists install steps for every supported platform, goos first,
// followed by the env overrides.
func Remediation(goos string) string {
	lines := make([]string, 0, len(installSteps)+1)
	for _, step := range installSteps {
		if step.goos == goos {
			lines = append(lines, step.text)
		}
	}
	for _, step := range installSteps {
		if step.goos != goos {
			lines = append(lines, step.text)
		}
	}
	lines = append(lines, "Or set "+EnvFFmpegPath+" and "+EnvFFprobePath+" to existing binaries")
	return strings.Join(lines, "\n")
}

var (
	ensureOnce sync.Once
	ensureErr  error
	ensurePath BinaryPaths
)

// Ensure resolves the binaries once per process; later calls return the first
// result regardless of opts.
func Ensure(opts Options) (BinaryPaths, error) {
	ensureOnce.Do(func() {
		ensurePath, ensureErr = Resolve(opts)
	})
	return ensurePath, ensureErr
}

// Resolve looks for the binaries in order: env overrides, PATH, a previously
// installed bundle, then a download when opts allow it.
func Resolve(opts Options) (BinaryPaths, error) {
	ffmpegPath := os.Getenv(EnvFFmpegPath)
	ffprobePath := os.Getenv(EnvFFprobePath)
	if ffmpegPath != "" && !fileExists(ffmpegPath) {
		return BinaryPaths{}, missing("ffmpeg", fmt.Errorf("%s points to %s", EnvFFmpegPath, ffmpegPath))
	}
	if ffprobePath != "" && !fileExists(ffprobePath) {
		return BinaryPaths{}, missing("ffprobe", fmt.Errorf("%s points to %s", EnvFFprobePath, ffprobePath))
	}

	if ffmpegPath == "" {
		if found, err := exec.LookPath("ffmpeg"); err == nil {
			ffmpegPath = found
		}
	}
	if ffprobePath == "" {
		if found, err := exec.LookPath("ffprobe"); err == nil {
			ffprobePath = found
		}
	}
	if ffmpegPath != "" && ffprobePath != "" {
		return BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
	}

	installDir := opts.InstallDir
	if installDir == "" {
		installDir = defaultInstallDir()
	}
	exeSuffix := executableSuffix()
	bundled := BinaryPaths{
		FFmpeg:  filepath.Join(installDir, "ffmpeg"+exeSuffix),
		FFprobe: filepath.Join(installDir, "ffprobe"+exeSuffix),
	}
	if binariesExist(bundled) {
		return withFallback(ffmpegPath, ffprobePath, bundled), nil
	}

	if !opts.AllowDownload {
		tool := "ffmpeg"
		if ffmpegPath != "" {
			tool = "ffprobe"
		}
		return BinaryPaths{}, missing(tool, errors.New("not on PATH and no bundled copy installed"))
	}

	assetName, err := assetForPlatform(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return BinaryPaths{}, missing("ffmpeg", err)
	}
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return BinaryPaths{}, fmt.Errorf("create ffmpeg cache dir: %w", err)
	}
	if err := downloadAndExtract(assetName, installDir); err != nil {
		return BinaryPaths{}, missing("ffmpeg", err)
	}
	if !binariesExist(bundled) {
		return BinaryPaths{}, missing("ffmpeg", errors.New("binaries not found after extraction"))
	}
	if runtime.GOOS != "windows" {
		for _, p := range []string{bundled.FFmpeg, bundled.FFprobe} {
			if err := os.Chmod(p, 0o755); err != nil {
				return BinaryPaths{}, fmt.Errorf("chmod %s: %w", filepath.Base(p), err)
			}
		}
	}
	return withFallback(ffmpegPath, ffprobePath, bundled), nil
}

// Verify runs "<path> -version" and fails with ToolMissingError if the binary
// does not execute.
func Verify(ctx context.Context, tool, path string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-version")
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return missing(tool, err)
	}
	return nil
}

func missing(tool string, err error) *ToolMissingError {
	return &ToolMissingError{Tool: tool, GOOS: runtime.GOOS, Err: err}
}

// keeps whichever binary was already found on PATH
func withFallback(ffmpegPath, ffprobePath string, bundled BinaryPaths) BinaryPaths {
	if ffmpegPath != "" {
		bundled.FFmpeg = ffmpegPath
	}
	if ffprobePath != "" {
		bundled.FFprobe = ffprobePath
	}
	return bundled
}

func defaultInstallDir() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil || cacheDir == "" {
		cacheDir = os.TempDir()
	}
	return filepath.Join(
		cacheDir,
		"shadow",
		"ffmpeg",
		ffmpegReleaseVersion,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

func assetForPlatform(goos, goarch string) (string, error) {
	switch {
	case goos == "linux" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-linux-64.zip", nil
	case goos == "linux" && goarch == "arm64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-linux-arm-64.zip", nil
	case goos == "darwin" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-macos-64.zip", nil
	case goos == "windows" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-win-64.zip", nil
	default:
		return "", fmt.Errorf("unsupported platform for bundled ffmpeg: %s/%s", goos, goarch)
	}
}

func downloadAndExtract(assetName, installDir string) error {
	url := fmt.Sprintf("%s/v%s/%s", ffmpegReleaseBaseURL, ffmpegReleaseVersion, assetName)
	client := resty.New().SetTimeout(5 * time.Minute)
	resp, err := client.R().SetDoNotParseResponse(true).Get(url)
	if err != nil {
		return fmt.Errorf("download ffmpeg bundle: %w", err)
	}
	body := resp.RawBody()
	defer func() { _ = body.Close() }()

	if resp.IsError() {
		return fmt.Errorf("download ffmpeg bundle: unexpected status %s", resp.Status())
	}
	return extractArchiveFromReader(assetName, body, installDir)
}

func extractArchiveFromReader(assetName string, reader io.Reader, installDir string) error {
	tmpFile, err := os.CreateTemp("", "shadow-ffmpeg-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	archivePath := tmpFile.Name()
	defer func() { _ = os.Remove(archivePath) }()

	if _, err := io.Copy(tmpFile, reader); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	if err := extractArchive(archivePath, installDir); err != nil {
		return fmt.Errorf("extract %s: %w", assetName, err)
	}
	return nil
}

func extractArchive(archivePath, installDir string) error {
	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open ffmpeg archive: %w", err)
	}
	defer func() { _ = zipReader.Close() }()

	ffmpegFound := false
	ffprobeFound := false
	for _, file := range zipReader.File {
		name := strings.ToLower(filepath.Base(file.Name))
		switch name {
		case "ffmpeg", "ffmpeg.exe":
			if err := extractZipFile(file, filepath.Join(installDir, "ffmpeg"+executableSuffix())); err != nil {
				return err
			}
			ffmpegFound = true
		case "ffprobe", "ffprobe.exe":
			if err := extractZipFile(file, filepath.Join(installDir, "ffprobe"+executableSuffix())); err != nil {
				return err
			}
			ffprobeFound = true
		}
	}

	if !ffmpegFound || !ffprobeFound {
		return fmt.Errorf("ffmpeg archive missing required binaries")
	}
	return nil
}

func extractZipFile(file *zip.File, dest string) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open ffmpeg archive entry: %w", err)
	}
	defer func() { _ = reader.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create ffmpeg output dir: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create ffmpeg binary: %w", err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, reader); err != nil {
		return fmt.Errorf("write ffmpeg binary: %w", err)
	}
	return nil
}

func binariesExist(paths BinaryPaths) bool {
	return fileExists(paths.FFmpeg) && fileExists(paths.FFprobe)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
