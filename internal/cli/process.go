package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/shadow/internal/config"
	"github.com/mgpai22/shadow/internal/pipeline"
	"github.com/mgpai22/shadow/internal/progress"
	"github.com/mgpai22/shadow/internal/subtitle"
	"github.com/mgpai22/shadow/internal/transcribe"
	"github.com/mgpai22/shadow/internal/translate"
)

var processCmd = &cobra.Command{
	Use:   "process [video_file]",
	Short: "Generate bilingual subtitles for a video",
	Long: `Generate bilingual subtitles for a video.

Audio is extracted, transcribed in one pass, then translated line by line in
batches. Lines that cannot be translated keep their original text, so a run
always produces at least monolingual subtitles.

Results are cached by the video's content and exported next to it as
<name>_bilingual.json and <name>_bilingual.srt. When that export already
exists it is loaded instead; use --force to regenerate.

Examples:
  shadow process lecture.mp4
  shadow process lecture.mp4 --target ja --translation-provider anthropic
  shadow process lecture.mp4 --language auto -f vtt -o lecture.vtt
  shadow process lecture.mp4 --translation-provider libre --batch-size 20`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	f := processCmd.Flags()
	f.StringP("language", "l", "", "Spoken language code, or auto to detect (default en)")
	f.StringP("target", "t", "", "Translation target language code (default zh-CN)")
	f.String("transcription-provider", "", "Speech recognition provider (openai, gemini)")
	f.String("transcription-model", "", "Speech recognition model (provider default when empty)")
	f.String("translation-provider", "", "Translation provider (openai, anthropic, gemini, libre)")
	f.String("translation-model", "", "Translation model (provider default when empty)")
	f.Int("batch-size", 0, "Segments per translation batch")
	f.Duration("batch-delay", 0, "Pause between translation batches")
	f.Int("max-retries", 0, "Retries for timed out translations")
	f.Bool("download-ffmpeg", false, "Download ffmpeg if it is not installed")
	f.Bool("force", false, "Ignore cached and exported subtitles")
	f.Bool("no-export", false, "Do not write _bilingual files next to the video")
	f.StringP("format", "f", "", "Also write subtitles in this format (json, srt, vtt, ass)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := checkVideo(videoPath); err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	noExport, _ := cmd.Flags().GetBool("no-export")
	formatStr, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	var extra subtitle.Format
	if formatStr != "" || outputPath != "" {
		var err error
		if formatStr != "" {
			extra, err = subtitle.ParseFormat(formatStr)
		} else {
			extra, err = subtitle.GetFormatFromExtension(outputPath)
		}
		if err != nil {
			return err
		}
		if outputPath == "" {
			outputPath = siblingPath(videoPath, subtitle.GetExtensionForFormat(extra))
		}
	}

	recognizerKey := config.APIKey(cfg.Transcription.Provider)
	if recognizerKey == "" {
		return fmt.Errorf("%s API key is required: set %s",
			cfg.Transcription.Provider, config.APIKeyEnv(cfg.Transcription.Provider))
	}
	translatorKey := config.APIKey(cfg.Translation.Provider)
	if translatorKey == "" && cfg.Translation.Provider != string(translate.ProviderLibre) {
		logger.Warnw("translation API key not set, subtitles will be monolingual",
			"provider", cfg.Translation.Provider,
			"env", config.APIKeyEnv(cfg.Translation.Provider),
		)
	}

	c, analyzer, err := newAnalyzer(ctx)
	if err != nil {
		return err
	}

	transcriber := transcribe.NewStage(func(ctx context.Context) (transcribe.Recognizer, error) {
		return transcribe.Factory(ctx, transcribe.Provider(cfg.Transcription.Provider), recognizerKey,
			transcribe.Options{
				Model:  cfg.Transcription.Model,
				Prompt: cfg.Transcription.Prompt,
			})
	}, logger.Named("transcribe"))

	translator := translate.NewStage(
		translate.NewClientFactory(translate.Provider(cfg.Translation.Provider), translatorKey,
			translate.Options{
				Model:   cfg.Translation.Model,
				Prompt:  cfg.Translation.Prompt,
				BaseURL: cfg.Translation.LibreURL,
				Timeout: cfg.Translation.Timeout,
			}),
		translate.Config{
			SourceLanguage: cfg.SourceLanguage,
			TargetLanguage: cfg.TargetLanguage,
			BatchSize:      cfg.Translation.BatchSize,
			BatchDelay:     cfg.Translation.BatchDelay,
			MaxRetries:     cfg.Translation.MaxRetries,
			RetryDelay:     cfg.Translation.RetryDelay,
			CallTimeout:    cfg.Translation.Timeout,
		},
		logger.Named("translate"),
	)

	runner := pipeline.NewRunner(analyzer, transcriber, translator, c, pipeline.Config{
		Language:   cfg.SourceLanguage,
		BatchSize:  cfg.Translation.BatchSize,
		BatchDelay: cfg.Translation.BatchDelay,
		Force:      force,
		NoExport:   noExport,
	}, logger.Named("pipeline"))

	pub := progress.NewPublisher()
	events := pub.Subscribe(64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		render(events, cmd.ErrOrStderr(), isTerminal(os.Stderr), logger)
	}()

	start := time.Now()
	res, err := runner.Run(ctx, videoPath, pub)
	pub.Close()
	wg.Wait()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if extra != "" {
		w, err := subtitle.NewWriter(extra)
		if err != nil {
			return err
		}
		if err := w.Write(res.Subtitles, outputPath); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		fmt.Fprintf(out, "Subtitles written: %s\n", outputPath)
	}

	fmt.Fprintf(out, "%d segments (%d translated) from %s in %s\n",
		res.Subtitles.Len(),
		res.Subtitles.TranslatedCount(),
		res.Source,
		time.Since(start).Round(time.Millisecond),
	)
	for _, p := range res.Exports {
		fmt.Fprintf(out, "Exported: %s\n", p)
	}
	return nil
}
