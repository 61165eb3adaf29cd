package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgpai22/shadow/internal/config"
	"github.com/mgpai22/shadow/internal/logging"
)

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shadow",
	Short: "Bilingual subtitles for language shadowing",
	Long: `Shadow turns a video into time-synchronized bilingual subtitles.

Speech is transcribed, each line is translated, and the result is cached by
the video's content so reopening the same file is instant. Subtitles are also
exported next to the video as <name>_bilingual.json and <name>_bilingual.srt.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/shadow/config.yaml)")
	rootCmd.PersistentFlags().
		String("cache-dir", "", "Cache directory for audio and subtitles")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
}

// flag name -> config key; bound only for flags the command defines
var flagKeys = map[string]string{
	"cache-dir":              "cache_dir",
	"language":               "source_language",
	"target":                 "target_language",
	"transcription-provider": "transcription.provider",
	"transcription-model":    "transcription.model",
	"translation-provider":   "translation.provider",
	"translation-model":      "translation.model",
	"batch-size":             "translation.batch_size",
	"batch-delay":            "translation.batch_delay",
	"max-retries":            "translation.max_retries",
	"download-ffmpeg":        "ffmpeg.download",
	"buffer-time":            "repeat.buffer_time",
	"poll-interval":          "repeat.poll_interval",
}

func setup(cmd *cobra.Command, args []string) error {
	logger = logging.NewLogger(verbose)

	if err := config.LoadEnv(); err != nil {
		return err
	}

	loader := config.NewLoader()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := loader.BindFlag(key, f); err != nil {
				return err
			}
		}
	}

	loaded, err := loader.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded

	logger.Debugw("configuration loaded",
		"cache_dir", cfg.CacheDir,
		"source_language", cfg.SourceLanguage,
		"target_language", cfg.TargetLanguage,
		"transcription", cfg.Transcription.Provider,
		"translation", cfg.Translation.Provider,
	)
	return nil
}
