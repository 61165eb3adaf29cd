package cli

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/mgpai22/shadow/internal/logging"
	"github.com/mgpai22/shadow/internal/progress"
)

// render drains events until the channel closes. Terminals get a progress
// bar; anything else gets sampled log lines.
func render(events <-chan progress.Event, w io.Writer, interactive bool, log *logging.Logger) {
	if !interactive {
		sampler := progress.NewSampler(0.1)
		for e := range events {
			if sampler.ShouldLog(e) {
				log.Infow(e.Label, "stage", e.Stage, "progress", int(e.Value*100))
			}
		}
		return
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionClearOnFinish(),
	)
	for e := range events {
		bar.Describe(e.Label)
		_ = bar.Set(int(e.Value * 100))
	}
	_ = bar.Finish()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
