package repeat

import (
	"context"
	"time"

	"github.com/mgpai22/shadow/internal/subtitle"
)

// DefaultPollInterval bounds loop-back latency to one interval past
// end+buffer.
const DefaultPollInterval = 100 * time.Millisecond

// Driver owns a Controller and runs it on a single goroutine: positions are
// sampled on a ticker and commands are queued onto the same loop.
type Driver struct {
	ctrl     *Controller
	player   Player
	interval time.Duration
	cmds     chan func()
}

func NewDriver(ctrl *Controller, player Player, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Driver{
		ctrl:     ctrl,
		player:   player,
		interval: interval,
		cmds:     make(chan func()),
	}
}

func (d *Driver) Interval() time.Duration {
	return d.interval
}

// Run samples the player until ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-d.cmds:
			cmd()
		case <-ticker.C:
			d.ctrl.OnPosition(d.player.Position())
		}
	}
}

// runs fn on the loop goroutine and waits for it
func (d *Driver) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case d.cmds <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) StartRepeat(ctx context.Context, count int) error {
	var err error
	if qerr := d.do(ctx, func() { err = d.ctrl.StartRepeat(count) }); qerr != nil {
		return qerr
	}
	return err
}

func (d *Driver) RepeatSegment(ctx context.Context, id, count int) error {
	var err error
	if qerr := d.do(ctx, func() { err = d.ctrl.RepeatSegment(id, count) }); qerr != nil {
		return qerr
	}
	return err
}

func (d *Driver) StopRepeat(ctx context.Context) error {
	return d.do(ctx, d.ctrl.StopRepeat)
}

func (d *Driver) SeekToSegment(ctx context.Context, id int) (*subtitle.Segment, error) {
	var (
		seg *subtitle.Segment
		err error
	)
	if qerr := d.do(ctx, func() { seg, err = d.ctrl.SeekToSegment(id) }); qerr != nil {
		return nil, qerr
	}
	return seg, err
}

func (d *Driver) State(ctx context.Context) (State, error) {
	var st State
	err := d.do(ctx, func() { st = d.ctrl.State() })
	return st, err
}
