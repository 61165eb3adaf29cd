// Package progress carries stage progress from the pipeline to whoever is
// displaying it. Publishing never blocks and never affects control flow.
package progress

import (
	"strings"
	"sync"
)

// pipeline stage names
const (
	StageAnalyze    = "analyze"
	StageTranscribe = "transcribe"
	StageTranslate  = "translate"
	StageSave       = "save"
	StageDone       = "done"
)

// single progress sample
type Event struct {
	Stage string
	Value float64 // fraction in [0,1]
	Label string
}

// Reporter receives progress events.
type Reporter interface {
	Report(Event)
}

// adapts a plain function to Reporter
type ReporterFunc func(Event)

func (f ReporterFunc) Report(e Event) {
	if f != nil {
		f(e)
	}
}

type nopReporter struct{}

func (nopReporter) Report(Event) {}

// Nop discards every event.
func Nop() Reporter { return nopReporter{} }

// OrNop returns r, or a discarding reporter when r is nil.
func OrNop(r Reporter) Reporter {
	if r == nil {
		return Nop()
	}
	return r
}

// Publisher fans events out to subscriber channels. Slow subscribers lose
// intermediate events rather than stall the publisher; a StageDone event
// evicts the oldest buffered event so every subscriber sees completion.
type Publisher struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// Subscribe returns a channel that receives events until Close.
func (p *Publisher) Subscribe(buffer int) <-chan Event {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		close(ch)
		return ch
	}
	p.subs = append(p.subs, ch)
	return ch
}

// Report publishes e to every subscriber without blocking.
func (p *Publisher) Report(e Event) {
	if p == nil {
		return
	}
	e.Value = clamp(e.Value)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	for _, ch := range p.subs {
		select {
		case ch <- e:
			continue
		default:
		}
		if e.Stage != StageDone {
			continue
		}
		// only Report sends, and it holds mu, so one free slot is enough
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// Close closes every subscriber channel. Later reports are dropped.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, ch := range p.subs {
		close(ch)
	}
	p.subs = nil
}

// Scale maps a stage-local fraction into [lo, hi] of an overall run before
// forwarding it to r.
func Scale(r Reporter, lo, hi float64) Reporter {
	r = OrNop(r)
	return ReporterFunc(func(e Event) {
		e.Value = lo + (hi-lo)*clamp(e.Value)
		r.Report(e)
	})
}

func clamp(v float64) float64 {
	switch {
	case v != v || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Sampler suppresses repetitive progress logs, emitting only when the stage
// changes or the value crosses a bucket boundary.
type Sampler struct {
	bucketSize float64
	lastStage  string
	lastBucket int
}

// NewSampler emits every bucketSize fraction (default 0.05).
func NewSampler(bucketSize float64) *Sampler {
	if bucketSize <= 0 {
		bucketSize = 0.05
	}
	return &Sampler{bucketSize: bucketSize, lastBucket: -1}
}

func (s *Sampler) ShouldLog(e Event) bool {
	if s == nil {
		return true
	}
	emit := false
	stage := strings.TrimSpace(e.Stage)
	if stage != "" && stage != s.lastStage {
		s.lastStage = stage
		s.lastBucket = -1
		emit = true
	}
	bucket := int(clamp(e.Value) / s.bucketSize)
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}
