package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/mgpai22/shadow/internal/cache"
	"github.com/mgpai22/shadow/internal/media"
	"github.com/mgpai22/shadow/internal/subtitle"
	"github.com/mgpai22/shadow/internal/timecode"
)

var infoCmd = &cobra.Command{
	Use:   "info [video_file]",
	Short: "Show video details and cached artifacts",
	Long: `Show duration, resolution, frame rate and size of a video along with
the cache entries and exported subtitles that exist for it.

Examples:
  shadow info lecture.mp4
  shadow info lecture.mp4 --segments`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().Bool("segments", false, "List subtitle segments when subtitles exist")
}

func runInfo(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	ctx := cmd.Context()

	if err := checkVideo(videoPath); err != nil {
		return err
	}
	showSegments, _ := cmd.Flags().GetBool("segments")

	c, analyzer, err := newAnalyzer(ctx)
	if err != nil {
		return err
	}
	info, err := analyzer.Probe(ctx, videoPath)
	if err != nil {
		return err
	}

	key, err := cache.Hash(videoPath)
	if err != nil {
		return err
	}
	store := subtitle.NewStore(c)
	subs, _, _ := store.LoadFromCacheKey(key, subtitle.FormatJSON)
	if subs == nil {
		subs, _, _, _ = subtitle.LoadCompanion(videoPath)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderInfo(info, key, c, subs))
	if showSegments && subs != nil {
		fmt.Fprintln(out, renderSegments(subs))
	}
	return nil
}

func renderInfo(info *media.Info, key string, c *cache.Cache, subs *subtitle.List) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Property", "Value"})

	tw.AppendRow(table.Row{"File", info.Name})
	tw.AppendRow(table.Row{"Duration", fmt.Sprintf("%s (%s)", info.DurationString(), timecode.HumanDuration(info.Duration))})
	tw.AppendRow(table.Row{"Resolution", info.Resolution()})
	tw.AppendRow(table.Row{"Aspect ratio", fmt.Sprintf("%.3f", info.AspectRatio())})
	tw.AppendRow(table.Row{"Frame rate", fmt.Sprintf("%.3f fps", info.FrameRate)})
	tw.AppendRow(table.Row{"Size", info.SizeString()})
	tw.AppendRow(table.Row{"Video codec", info.VideoCodec})
	audio := "none"
	if info.HasAudio {
		audio = info.AudioCodec
	}
	tw.AppendRow(table.Row{"Audio codec", audio})
	tw.AppendRow(table.Row{"Content key", key})
	tw.AppendRow(table.Row{"Cached audio", cacheStatus(cache.PathForHash(key, c.AudioDir(), media.AudioExtension))})
	tw.AppendRow(table.Row{"Cached subtitles", cacheStatus(cache.PathForHash(key, c.SubtitleDir(), "json"))})
	tw.AppendRow(table.Row{"Export", cacheStatus(subtitle.CompanionPath(info.Path, subtitle.FormatJSON))})
	if subs != nil {
		tw.AppendRow(table.Row{"Segments", fmt.Sprintf("%s (%s translated)",
			humanize.Comma(int64(subs.Len())), humanize.Comma(int64(subs.TranslatedCount())))})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func renderSegments(subs *subtitle.List) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Start", "End", "Text", "Translation"})
	for _, seg := range subs.Segments {
		tw.AppendRow(table.Row{
			seg.ID,
			timecode.VTT(seg.Start),
			timecode.VTT(seg.End),
			seg.SourceText,
			seg.TargetText,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, WidthMax: 48},
		{Number: 5, WidthMax: 48},
	})
	return tw.Render()
}

func cacheStatus(path string) string {
	if !cache.Exists(path) {
		return "-"
	}
	return path
}
