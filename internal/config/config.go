// Package config loads shadow's settings from defaults, an optional YAML
// file, SHADOW_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

const EnvPrefix = "SHADOW"

type Config struct {
	CacheDir       string              `mapstructure:"cache_dir"`
	SourceLanguage string              `mapstructure:"source_language"`
	TargetLanguage string              `mapstructure:"target_language"`
	Transcription  TranscriptionConfig `mapstructure:"transcription"`
	Translation    TranslationConfig   `mapstructure:"translation"`
	Repeat         RepeatConfig        `mapstructure:"repeat"`
	FFmpeg         FFmpegConfig        `mapstructure:"ffmpeg"`
}

type TranscriptionConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	Prompt   string `mapstructure:"prompt"`
}

type TranslationConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	Prompt     string        `mapstructure:"prompt"`
	BatchSize  int           `mapstructure:"batch_size"`
	BatchDelay time.Duration `mapstructure:"batch_delay"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
	LibreURL   string        `mapstructure:"libre_url"`
}

type RepeatConfig struct {
	BufferTime   float64       `mapstructure:"buffer_time"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Counts       []int         `mapstructure:"counts"`
}

type FFmpegConfig struct {
	Download bool `mapstructure:"download"`
}

// API key environment variables per provider
var apiKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
	"libre":     "LIBRETRANSLATE_API_KEY",
}

// APIKey returns the key for provider from the environment.
func APIKey(provider string) string {
	name, ok := apiKeyEnv[strings.ToLower(provider)]
	if !ok {
		return ""
	}
	return os.Getenv(name)
}

// APIKeyEnv names the variable holding provider's key.
func APIKeyEnv(provider string) string {
	return apiKeyEnv[strings.ToLower(provider)]
}

// LoadEnv loads .env files into the process environment. Missing files are
// ignored and existing variables are never overwritten.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "shadow")
	}
	return filepath.Join(os.TempDir(), "shadow-cache")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("source_language", "en")
	v.SetDefault("target_language", "zh-CN")

	v.SetDefault("transcription.provider", "openai")
	v.SetDefault("transcription.model", "")
	v.SetDefault("transcription.prompt", "")

	v.SetDefault("translation.provider", "openai")
	v.SetDefault("translation.model", "")
	v.SetDefault("translation.prompt", "")
	v.SetDefault("translation.batch_size", 10)
	v.SetDefault("translation.batch_delay", "1s")
	v.SetDefault("translation.max_retries", 3)
	v.SetDefault("translation.retry_delay", "2s")
	v.SetDefault("translation.timeout", "30s")
	v.SetDefault("translation.libre_url", "https://libretranslate.com")

	v.SetDefault("repeat.buffer_time", 0.3)
	v.SetDefault("repeat.poll_interval", "100ms")
	v.SetDefault("repeat.counts", []int{3, 10, 20})

	v.SetDefault("ffmpeg.download", false)
}

// default config file location, empty when none exists
func defaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, "shadow", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Loader builds a Config. Flags bound before Load override every other
// source.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return &Loader{v: v}
}

// BindFlag makes flag override the config key when the flag is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for config key %q", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads path (or the default config file when path is empty), then
// validates the result.
func (l *Loader) Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigFile()
	}
	if path != "" {
		l.v.SetConfigFile(path)
		l.v.SetConfigType("yaml")
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is NewLoader().Load(path).
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

func (c *Config) normalize() error {
	var errs []error

	c.CacheDir = strings.TrimSpace(c.CacheDir)
	if c.CacheDir == "" {
		errs = append(errs, errors.New("cache_dir must not be empty"))
	}

	if !strings.EqualFold(c.SourceLanguage, "auto") {
		if tag, err := language.Parse(c.SourceLanguage); err != nil {
			errs = append(errs, fmt.Errorf("source_language %q: %w", c.SourceLanguage, err))
		} else {
			c.SourceLanguage = tag.String()
		}
	} else {
		c.SourceLanguage = "auto"
	}
	if tag, err := language.Parse(c.TargetLanguage); err != nil {
		errs = append(errs, fmt.Errorf("target_language %q: %w", c.TargetLanguage, err))
	} else {
		c.TargetLanguage = tag.String()
	}

	c.Transcription.Provider = strings.ToLower(strings.TrimSpace(c.Transcription.Provider))
	switch c.Transcription.Provider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("transcription.provider %q: use openai or gemini", c.Transcription.Provider))
	}
	c.Translation.Provider = strings.ToLower(strings.TrimSpace(c.Translation.Provider))
	switch c.Translation.Provider {
	case "openai", "anthropic", "gemini", "libre":
	default:
		errs = append(errs, fmt.Errorf(
			"translation.provider %q: use openai, anthropic, gemini or libre", c.Translation.Provider))
	}

	t := c.Translation
	if t.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("translation.batch_size must be >= 1, got %d", t.BatchSize))
	}
	if t.BatchDelay < 0 {
		errs = append(errs, fmt.Errorf("translation.batch_delay must be >= 0, got %s", t.BatchDelay))
	}
	if t.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("translation.max_retries must be >= 0, got %d", t.MaxRetries))
	}
	if t.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("translation.retry_delay must be >= 0, got %s", t.RetryDelay))
	}
	if t.Timeout < 0 {
		errs = append(errs, fmt.Errorf("translation.timeout must be >= 0, got %s", t.Timeout))
	}

	r := c.Repeat
	if r.BufferTime < 0 {
		errs = append(errs, fmt.Errorf("repeat.buffer_time must be >= 0, got %g", r.BufferTime))
	}
	if r.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("repeat.poll_interval must be > 0, got %s", r.PollInterval))
	}
	for _, n := range r.Counts {
		if n < 1 {
			errs = append(errs, fmt.Errorf("repeat.counts entries must be >= 1, got %d", n))
			break
		}
	}

	return errors.Join(errs...)
}
