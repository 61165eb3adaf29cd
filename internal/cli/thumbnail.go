package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mgpai22/shadow/internal/timecode"
)

var thumbnailCmd = &cobra.Command{
	Use:   "thumbnail [video_file]",
	Short: "Save a single frame as PNG",
	Long: `Save one frame of a video as a PNG image. Thumbnails are not cached.

Examples:
  shadow thumbnail lecture.mp4 --at 00:01:30
  shadow thumbnail lecture.mp4 --at 12.5 --width 320 -o frame.png`,
	Args: cobra.ExactArgs(1),
	RunE: runThumbnail,
}

func init() {
	rootCmd.AddCommand(thumbnailCmd)
	thumbnailCmd.Flags().String("at", "0", "Timestamp in seconds or HH:MM:SS[.mmm]")
	thumbnailCmd.Flags().Int("width", 320, "Frame width in pixels")
	thumbnailCmd.Flags().Int("height", 180, "Frame height in pixels")
}

func runThumbnail(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	ctx := cmd.Context()

	if err := checkVideo(videoPath); err != nil {
		return err
	}
	atStr, _ := cmd.Flags().GetString("at")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")
	outputPath, _ := cmd.Flags().GetString("output")

	at, err := parseTimestamp(atStr)
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = siblingPath(videoPath, fmt.Sprintf("_%s.png", strconv.FormatFloat(at, 'f', -1, 64)))
	}

	_, analyzer, err := newAnalyzer(ctx)
	if err != nil {
		return err
	}
	png, err := analyzer.Thumbnail(ctx, videoPath, at, width, height)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, png, 0o644); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Thumbnail saved: %s (%s)\n", outputPath, humanize.Bytes(uint64(len(png))))
	return nil
}

// seconds as a plain number or a timecode
func parseTimestamp(s string) (float64, error) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("timestamp must not be negative: %s", s)
		}
		return v, nil
	}
	v, err := timecode.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return v, nil
}
