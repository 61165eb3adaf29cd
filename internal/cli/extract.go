package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [video_file]",
	Short: "Extract the audio track used for speech recognition",
	Long: `Extract the audio track from a video as 16 kHz mono PCM WAV, the format
used for speech recognition.

Without --output the file is written to the cache, keyed by the video's
content, and reused on later runs.

Examples:
  shadow extract lecture.mp4
  shadow extract lecture.mp4 -o lecture.wav`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().Bool("download-ffmpeg", false, "Download ffmpeg if it is not installed")
}

func runExtract(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	ctx := cmd.Context()

	if err := checkVideo(videoPath); err != nil {
		return err
	}
	outputPath, _ := cmd.Flags().GetString("output")

	_, analyzer, err := newAnalyzer(ctx)
	if err != nil {
		return err
	}

	logger.Infow("Extracting audio",
		"video", videoPath,
		"output", outputPath,
	)

	path, err := analyzer.ExtractAudio(ctx, videoPath, outputPath)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	absOutput, _ := filepath.Abs(path)
	fmt.Fprintf(cmd.OutOrStdout(), "Audio extracted: %s\n", absOutput)
	return nil
}
