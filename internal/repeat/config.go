package repeat

import (
	"github.com/mgpai22/shadow/internal/config"
	"github.com/mgpai22/shadow/internal/logging"
	"github.com/mgpai22/shadow/internal/subtitle"
)

// NewFromConfig builds a Controller and the Driver that samples player for
// it, using the buffer time, poll interval and count presets from cfg. opts
// are applied after the configured values.
func NewFromConfig(
	player Player,
	subs *subtitle.List,
	cfg config.RepeatConfig,
	logger *logging.Logger,
	opts ...Option,
) (*Controller, *Driver) {
	base := []Option{
		WithBufferTime(cfg.BufferTime),
		WithCounts(cfg.Counts),
		WithLogger(logging.OrNop(logger).Named("repeat")),
	}
	ctrl := NewController(player, subs, append(base, opts...)...)
	return ctrl, NewDriver(ctrl, player, cfg.PollInterval)
}
