package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/shadow/internal/repeat"
	"github.com/mgpai22/shadow/internal/timecode"
)

var repeatCmd = &cobra.Command{
	Use:   "repeat [video_or_json]",
	Short: "Drill one subtitle line a number of times",
	Long: `Play one subtitle line in real time and loop it for shadowing practice.

Each pass prints the line and its translation, then waits for the line's
duration plus the buffer time before looping. With no --count the first
preset from repeat.counts is used.

Examples:
  shadow repeat lecture.mp4 --id 12
  shadow repeat lecture_bilingual.json --id 3 --count 10 --buffer-time 0.5`,
	Args: cobra.ExactArgs(1),
	RunE: runRepeat,
}

func init() {
	rootCmd.AddCommand(repeatCmd)

	f := repeatCmd.Flags()
	f.Int("id", 0, "Subtitle id to repeat")
	f.Int("count", 0, "Number of passes (default first repeat.counts preset)")
	f.Float64("buffer-time", 0, "Seconds to keep playing after the line ends")
	f.Duration("poll-interval", 0, "How often the playhead is sampled")
	_ = repeatCmd.MarkFlagRequired("id")
}

func runRepeat(cmd *cobra.Command, args []string) error {
	input := args[0]
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	id, _ := cmd.Flags().GetInt("id")
	count, _ := cmd.Flags().GetInt("count")

	subs, err := loadSubtitles(input)
	if err != nil {
		return err
	}
	if subs.ByID(id) == nil {
		return fmt.Errorf("no subtitle with id %d in %s", id, input)
	}

	out := cmd.OutOrStdout()
	finished := make(chan repeat.Event, 1)
	player := newClockPlayer(time.Now)
	ctrl, driver := repeat.NewFromConfig(player, subs, cfg.Repeat, logger,
		repeat.WithNotifier(func(e repeat.Event) {
			switch e.Kind {
			case repeat.EventStarted, repeat.EventProgress:
				printPass(out, e)
			case repeat.EventCompleted, repeat.EventStopped:
				select {
				case finished <- e:
				default:
				}
			}
		}))

	if count == 0 {
		presets := ctrl.Counts()
		if len(presets) == 0 {
			return errors.New("no --count given and repeat.counts is empty")
		}
		count = presets[0]
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- driver.Run(runCtx) }()

	if err := driver.RepeatSegment(runCtx, id, count); err != nil {
		return err
	}

	select {
	case e := <-finished:
		fmt.Fprintf(out, "Done: %d passes\n", e.Current)
	case <-ctx.Done():
		player.Pause()
		fmt.Fprintln(out, "Interrupted")
	}
	cancel()
	<-errc
	return nil
}

func printPass(w io.Writer, e repeat.Event) {
	seg := e.Segment
	fmt.Fprintf(w, "[%d/%d] %s --> %s\n", e.Current, e.Total,
		timecode.SRT(seg.Start), timecode.SRT(seg.End))
	fmt.Fprintf(w, "  %s\n", seg.SourceText)
	if seg.TargetText != "" {
		fmt.Fprintf(w, "  %s\n", seg.TargetText)
	}
}

// clockPlayer moves a playhead along the wall clock; it stands in for a
// media player when lines are drilled in the terminal.
type clockPlayer struct {
	mu      sync.Mutex
	now     func() time.Time
	offset  float64
	since   time.Time
	playing bool
}

func newClockPlayer(now func() time.Time) *clockPlayer {
	return &clockPlayer{now: now}
}

func (p *clockPlayer) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = seconds
	p.since = p.now()
}

func (p *clockPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		p.since = p.now()
		p.playing = true
	}
}

func (p *clockPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		p.offset = p.position()
		p.playing = false
	}
}

func (p *clockPlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position()
}

func (p *clockPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// caller holds mu
func (p *clockPlayer) position() float64 {
	if !p.playing {
		return p.offset
	}
	return p.offset + p.now().Sub(p.since).Seconds()
}
