package subtitle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// single timed unit of spoken text
type Segment struct {
	ID         int     `json:"id"`
	Start      float64 `json:"start"` // seconds
	End        float64 `json:"end"`   // seconds
	SourceText string  `json:"text_en"`
	TargetText string  `json:"text_zh"`

	// set while the segment is being translated; never persisted
	Translating bool `json:"-"`
}

// seconds always carries a fractional digit on the wire: 12.0, never 12
type seconds float64

func (s seconds) MarshalJSON() ([]byte, error) {
	b := strconv.AppendFloat(nil, float64(s), 'f', -1, 64)
	if !bytes.ContainsRune(b, '.') {
		b = append(b, ".0"...)
	}
	return b, nil
}

func (s Segment) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(struct {
		ID         int     `json:"id"`
		Start      seconds `json:"start"`
		End        seconds `json:"end"`
		SourceText string  `json:"text_en"`
		TargetText string  `json:"text_zh"`
	}{s.ID, seconds(s.Start), seconds(s.End), s.SourceText, s.TargetText})
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// length of the segment in seconds
func (s *Segment) Duration() float64 {
	return s.End - s.Start
}

// reports whether t falls inside [Start, End]
func (s *Segment) Contains(t float64) bool {
	return s.Start <= t && t <= s.End
}

// ordered subtitle track in one source language
type List struct {
	Language string     `json:"language"`
	Segments []*Segment `json:"segments"`
}

func NewList(language string) *List {
	return &List{
		Language: language,
		Segments: []*Segment{},
	}
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Segments)
}

func (l *List) Append(seg *Segment) {
	l.Segments = append(l.Segments, seg)
}

// At returns the first segment with Start <= t <= End, or nil when t falls in
// a gap. Both bounds are inclusive, so at a shared boundary the earlier
// segment wins.
func (l *List) At(t float64) *Segment {
	if l == nil {
		return nil
	}
	for _, seg := range l.Segments {
		if seg.Contains(t) {
			return seg
		}
	}
	return nil
}

// segment with the given id, or nil
func (l *List) ByID(id int) *Segment {
	if l == nil {
		return nil
	}
	for _, seg := range l.Segments {
		if seg.ID == id {
			return seg
		}
	}
	return nil
}

// number of segments with a non-empty translation
func (l *List) TranslatedCount() int {
	n := 0
	for _, seg := range l.Segments {
		if seg.TargetText != "" {
			n++
		}
	}
	return n
}

// Validate reports every violated ordering or range invariant. Lookup works on
// lists that fail validation; callers decide whether the problems matter.
func (l *List) Validate() error {
	if l == nil {
		return errors.New("nil subtitle list")
	}

	var errs []error
	seen := make(map[int]bool, len(l.Segments))
	for i, seg := range l.Segments {
		if seg == nil {
			errs = append(errs, fmt.Errorf("segment %d: nil", i))
			continue
		}
		if seg.ID <= 0 {
			errs = append(errs, fmt.Errorf("segment %d: id %d is not positive", i, seg.ID))
		}
		if seen[seg.ID] {
			errs = append(errs, fmt.Errorf("segment %d: duplicate id %d", i, seg.ID))
		}
		seen[seg.ID] = true
		if seg.Start < 0 || seg.Start >= seg.End {
			errs = append(errs, fmt.Errorf(
				"segment %d: invalid range [%.3f, %.3f]", seg.ID, seg.Start, seg.End,
			))
		}
		if i > 0 && l.Segments[i-1] != nil {
			prev := l.Segments[i-1]
			if seg.Start < prev.Start {
				errs = append(errs, fmt.Errorf("segment %d: starts before segment %d", seg.ID, prev.ID))
			} else if seg.Start < prev.End {
				errs = append(errs, fmt.Errorf("segment %d: overlaps segment %d", seg.ID, prev.ID))
			}
		}
	}
	return errors.Join(errs...)
}

// represents supported subtitle formats
type Format string

const (
	FormatJSON Format = "json"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatASS  Format = "ass"
)

// UnsupportedFormatError is returned when an operation does not support the
// requested format, e.g. loading SRT from the cache.
type UnsupportedFormatError struct {
	Format Format
	Op     string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: unsupported subtitle format %q", e.Op, e.Format)
}

// interface for writing subtitles to files
type Writer interface {
	Write(subs *List, path string) error
}
