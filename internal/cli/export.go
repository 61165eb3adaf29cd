package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/shadow/internal/cache"
	"github.com/mgpai22/shadow/internal/subtitle"
)

var exportCmd = &cobra.Command{
	Use:   "export [video_or_json]",
	Short: "Render saved subtitles in another format",
	Long: `Render previously generated subtitles as SRT, VTT, ASS or JSON.

The argument is either a video, whose cached or exported subtitles are used,
or a subtitle JSON file. Nothing is transcribed or translated.

Examples:
  shadow export lecture.mp4 -f vtt
  shadow export lecture_bilingual.json -f ass -o lecture.ass`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", "srt", "Output format (json, srt, vtt, ass)")
}

func runExport(cmd *cobra.Command, args []string) error {
	input := args[0]
	formatStr, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	format, err := subtitle.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	subs, err := loadSubtitles(input)
	if err != nil {
		return err
	}

	if outputPath == "" {
		outputPath = defaultExportPath(input, format)
	}
	if outputPath == input {
		return fmt.Errorf("refusing to overwrite %s; pass --output", input)
	}

	w, err := subtitle.NewWriter(format)
	if err != nil {
		return err
	}
	if err := w.Write(subs, outputPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	logger.Infow("Exported subtitles",
		"input", input,
		"output", outputPath,
		"segments", subs.Len(),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Subtitles written: %s\n", outputPath)
	return nil
}

// <stem>.<ext> for a JSON input, <stem>_bilingual.<ext> for a video
func defaultExportPath(input string, format subtitle.Format) string {
	if isJSONFile(input) {
		return siblingPath(input, subtitle.GetExtensionForFormat(format))
	}
	return subtitle.CompanionPath(input, format)
}

func isJSONFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// JSON files are read directly; videos resolve through the cache, then the
// companion export.
func loadSubtitles(input string) (*subtitle.List, error) {
	if isJSONFile(input) {
		return subtitle.LoadJSON(input)
	}

	c, err := cache.New(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	subs, found, err := subtitle.NewStore(c).LoadFromCache(input, subtitle.FormatJSON)
	if err != nil {
		return nil, err
	}
	if found {
		return subs, nil
	}

	subs, path, found, err := subtitle.LoadCompanion(input)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no subtitles for %s: run `shadow process` first (looked for %s)", input, path)
	}
	return subs, nil
}
