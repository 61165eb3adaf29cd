// Package repeat loops playback over a single subtitle segment a fixed number
// of times, driven by sampled player positions.
package repeat

import (
	"errors"

	"github.com/mgpai22/shadow/internal/logging"
	"github.com/mgpai22/shadow/internal/subtitle"
)

const (
	// DefaultBufferTime is the grace period after a segment's end before
	// looping back, so the last word is heard in full.
	DefaultBufferTime = 0.3
)

var (
	ErrInvalidCount = errors.New("repeat count must be at least 1")
	ErrNoSegment    = errors.New("no subtitle at the current position")
	ErrUnknownID    = errors.New("no subtitle with that id")
)

// Player is the playback engine the controller drives.
type Player interface {
	Seek(seconds float64)
	Play()
	Pause()
	Position() float64
	IsPlaying() bool
}

type State int

const (
	StateIdle State = iota
	StateRepeating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRepeating:
		return "repeating"
	default:
		return "unknown"
	}
}

type EventKind string

const (
	EventStarted   EventKind = "started"
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
	EventStopped   EventKind = "stopped"
	EventCurrent   EventKind = "current" // segment under the playhead changed
)

// Event tells the host what the controller did. Current is the 1-based pass
// now playing; on completion it equals Total.
type Event struct {
	Kind    EventKind
	Segment *subtitle.Segment
	Current int
	Total   int
}

type Option func(*Controller)

// WithBufferTime overrides DefaultBufferTime. Negative values are ignored.
func WithBufferTime(seconds float64) Option {
	return func(c *Controller) {
		if seconds >= 0 {
			c.buffer = seconds
		}
	}
}

// WithCounts sets the repeat count presets offered to users. Counts below 1
// are skipped.
func WithCounts(counts []int) Option {
	return func(c *Controller) {
		c.counts = c.counts[:0]
		for _, n := range counts {
			if n >= 1 {
				c.counts = append(c.counts, n)
			}
		}
	}
}

// WithNotifier registers fn to receive every Event.
func WithNotifier(fn func(Event)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.notify = fn
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(c *Controller) {
		c.logger = logging.OrNop(logger)
	}
}

// session is the state of one active repeat
type session struct {
	segment   *subtitle.Segment
	total     int
	completed int
}

// Controller is the Idle/Repeating state machine. It is not safe for
// concurrent use; Driver serializes access when positions and commands come
// from different goroutines.
type Controller struct {
	player Player
	subs   *subtitle.List
	buffer float64
	counts []int
	notify func(Event)
	logger *logging.Logger

	active  *session
	current *subtitle.Segment
}

func NewController(player Player, subs *subtitle.List, opts ...Option) *Controller {
	c := &Controller{
		player: player,
		subs:   subs,
		buffer: DefaultBufferTime,
		notify: func(Event) {},
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	if c.active != nil {
		return StateRepeating
	}
	return StateIdle
}

// Counts returns a copy of the configured repeat presets.
func (c *Controller) Counts() []int {
	return append([]int(nil), c.counts...)
}

// BufferTime is the grace period applied after each segment end.
func (c *Controller) BufferTime() float64 {
	return c.buffer
}

// Session reports the active repeat target and how many passes have
// finished. ok is false when idle.
func (c *Controller) Session() (seg *subtitle.Segment, completed, total int, ok bool) {
	if c.active == nil {
		return nil, 0, 0, false
	}
	return c.active.segment, c.active.completed, c.active.total, true
}

// segment under the playhead at the last position update
func (c *Controller) Current() *subtitle.Segment {
	return c.current
}

// SetSubtitles swaps the subtitle track and cancels any active repeat.
func (c *Controller) SetSubtitles(subs *subtitle.List) {
	c.StopRepeat()
	c.subs = subs
	c.current = nil
}

// StartRepeat loops the segment under the current playback position count
// times. It is refused without a state change when count < 1 or the
// position falls between segments. Starting while already repeating
// replaces the previous session.
func (c *Controller) StartRepeat(count int) error {
	if count < 1 {
		return ErrInvalidCount
	}
	pos := c.player.Position()
	seg := c.subs.At(pos)
	if seg == nil {
		c.logger.Debugw("repeat refused, no subtitle under playhead", "position", pos)
		return ErrNoSegment
	}
	c.begin(seg, count)
	return nil
}

// RepeatSegment loops the segment with the given id count times, wherever
// the playhead currently is.
func (c *Controller) RepeatSegment(id, count int) error {
	if count < 1 {
		return ErrInvalidCount
	}
	seg := c.subs.ByID(id)
	if seg == nil {
		return ErrUnknownID
	}
	c.begin(seg, count)
	return nil
}

func (c *Controller) begin(seg *subtitle.Segment, count int) {
	c.active = &session{segment: seg, total: count}
	c.player.Seek(seg.Start)
	if !c.player.IsPlaying() {
		c.player.Play()
	}

	c.logger.Infow("repeat started", "segment", seg.ID, "count", count)
	c.notify(Event{Kind: EventStarted, Segment: seg, Current: 1, Total: count})
}

// StopRepeat returns to Idle. It is a no-op when already idle.
func (c *Controller) StopRepeat() {
	if c.active == nil {
		return
	}
	s := c.active
	c.active = nil
	c.logger.Infow("repeat stopped", "segment", s.segment.ID, "completed", s.completed)
	c.notify(Event{Kind: EventStopped, Segment: s.segment, Current: s.completed, Total: s.total})
}

// OnPosition feeds one sampled playback position. While repeating, the first
// sample at or past end+buffer counts a pass and either loops back to the
// segment start or, after the last pass, pauses and returns to Idle.
func (c *Controller) OnPosition(pos float64) {
	if seg := c.subs.At(pos); seg != c.current {
		c.current = seg
		c.notify(Event{Kind: EventCurrent, Segment: seg})
	}

	s := c.active
	if s == nil || pos < s.segment.End+c.buffer {
		return
	}

	s.completed++
	if s.completed >= s.total {
		c.active = nil
		c.player.Pause()
		c.logger.Infow("repeat complete", "segment", s.segment.ID, "count", s.total)
		c.notify(Event{Kind: EventCompleted, Segment: s.segment, Current: s.total, Total: s.total})
		return
	}

	c.player.Seek(s.segment.Start)
	if !c.player.IsPlaying() {
		c.player.Play()
	}
	c.notify(Event{Kind: EventProgress, Segment: s.segment, Current: s.completed + 1, Total: s.total})
}

// SeekToSegment jumps to the start of the segment with the given id. An
// active repeat keeps its original target.
func (c *Controller) SeekToSegment(id int) (*subtitle.Segment, error) {
	seg := c.subs.ByID(id)
	if seg == nil {
		return nil, ErrUnknownID
	}
	c.player.Seek(seg.Start)
	return seg, nil
}
