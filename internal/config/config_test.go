package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.SourceLanguage)
	assert.Equal(t, "zh-CN", cfg.TargetLanguage)
	assert.Equal(t, "openai", cfg.Transcription.Provider)
	assert.Equal(t, "openai", cfg.Translation.Provider)
	assert.Equal(t, 10, cfg.Translation.BatchSize)
	assert.Equal(t, time.Second, cfg.Translation.BatchDelay)
	assert.Equal(t, 3, cfg.Translation.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Translation.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.Translation.Timeout)
	assert.Equal(t, "https://libretranslate.com", cfg.Translation.LibreURL)
	assert.Equal(t, 0.3, cfg.Repeat.BufferTime)
	assert.Equal(t, 100*time.Millisecond, cfg.Repeat.PollInterval)
	assert.Equal(t, []int{3, 10, 20}, cfg.Repeat.Counts)
	assert.False(t, cfg.FFmpeg.Download)
	assert.NotEmpty(t, cfg.CacheDir)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
cache_dir: /var/cache/shadow
target_language: ja
translation:
  provider: libre
  batch_size: 25
  batch_delay: 250ms
repeat:
  counts: [1, 5]
`)
	t.Setenv("SHADOW_TRANSLATION_MAX_RETRIES", "5")
	t.Setenv("SHADOW_SOURCE_LANGUAGE", "zh-tw")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/shadow", cfg.CacheDir)
	assert.Equal(t, "ja", cfg.TargetLanguage)
	assert.Equal(t, "zh-TW", cfg.SourceLanguage)
	assert.Equal(t, "libre", cfg.Translation.Provider)
	assert.Equal(t, 25, cfg.Translation.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Translation.BatchDelay)
	assert.Equal(t, 5, cfg.Translation.MaxRetries)
	assert.Equal(t, []int{1, 5}, cfg.Repeat.Counts)
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "target_language: ja\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("target", "", "")
	require.NoError(t, flags.Parse([]string{"--target", "fr"}))

	l := NewLoader()
	require.NoError(t, l.BindFlag("target_language", flags.Lookup("target")))
	cfg, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fr", cfg.TargetLanguage)
}

func TestBindFlagMissing(t *testing.T) {
	assert.Error(t, NewLoader().BindFlag("target_language", nil))
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad target", "target_language: \"en_US!\"\n", "target_language"},
		{"bad provider", "translation:\n  provider: deepl\n", "translation.provider"},
		{"bad recognizer", "transcription:\n  provider: whisper.cpp\n", "transcription.provider"},
		{"batch size", "translation:\n  batch_size: 0\n", "batch_size"},
		{"retries", "translation:\n  max_retries: -1\n", "max_retries"},
		{"buffer", "repeat:\n  buffer_time: -0.1\n", "buffer_time"},
		{"poll", "repeat:\n  poll_interval: 0s\n", "poll_interval"},
		{"counts", "repeat:\n  counts: [3, 0]\n", "repeat.counts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAutoSourceLanguage(t *testing.T) {
	cfg, err := Load(writeConfig(t, "source_language: AUTO\n"))
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.SourceLanguage)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LIBRETRANSLATE_API_KEY=from-file\n"), 0o644))

	t.Setenv("LIBRETRANSLATE_API_KEY", "")
	os.Unsetenv("LIBRETRANSLATE_API_KEY")

	require.NoError(t, LoadEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", APIKey("libre"))
	assert.Equal(t, "LIBRETRANSLATE_API_KEY", APIKeyEnv("Libre"))
	assert.Empty(t, APIKey("unknown"))
}
