package subtitle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/shadow/internal/timecode"
)

// persisted JSON document
type JSONWriter struct{}

// SubRip format
type SRTWriter struct{}

// WebVTT format
type VTTWriter struct{}

// Advanced SubStation Alpha format
type ASSWriter struct {
	Title    string
	FontName string
	FontSize int
}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatJSON:
		return &JSONWriter{}, nil
	case FormatSRT:
		return &SRTWriter{}, nil
	case FormatVTT:
		return &VTTWriter{}, nil
	case FormatASS:
		return &ASSWriter{
			Title:    "Shadow Bilingual Subtitles",
			FontName: "Arial",
			FontSize: 20,
		}, nil
	default:
		return nil, &UnsupportedFormatError{Format: format, Op: "write"}
	}
}

// Render serializes subs in the given format.
func Render(subs *List, format Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatJSON:
		err = EncodeJSON(&buf, subs)
	case FormatSRT:
		err = EncodeSRT(&buf, subs)
	case FormatVTT:
		err = EncodeVTT(&buf, subs)
	case FormatASS:
		w, _ := NewWriter(FormatASS)
		err = w.(*ASSWriter).Encode(&buf, subs)
	default:
		return nil, &UnsupportedFormatError{Format: format, Op: "render"}
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJSON writes {"language", "segments": [...]} with UTF-8 text left
// unescaped.
func EncodeJSON(w io.Writer, subs *List) error {
	doc := List{Language: subs.Language, Segments: subs.Segments}
	if doc.Segments == nil {
		doc.Segments = []*Segment{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode subtitles: %w", err)
	}
	return nil
}

// EncodeSRT writes numbered blocks 1..N regardless of stored ids.
func EncodeSRT(w io.Writer, subs *List) error {
	var sb strings.Builder
	for i, seg := range subs.Segments {
		// index (1-based)
		sb.WriteString(fmt.Sprintf("%d\n", i+1))

		// timestamps: 00:00:00,000 --> 00:00:00,000
		sb.WriteString(fmt.Sprintf("%s --> %s\n",
			timecode.SRT(seg.Start),
			timecode.SRT(seg.End)))

		writeBilingualText(&sb, seg)
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// EncodeVTT writes the WEBVTT header followed by one cue per segment.
func EncodeVTT(w io.Writer, subs *List) error {
	var sb strings.Builder

	// VTT header
	sb.WriteString("WEBVTT\n\n")

	for _, seg := range subs.Segments {
		// timestamps: 00:00:00.000 --> 00:00:00.000
		sb.WriteString(fmt.Sprintf("%s --> %s\n",
			timecode.VTT(seg.Start),
			timecode.VTT(seg.End)))

		writeBilingualText(&sb, seg)
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// source line, then the target line only when present
func writeBilingualText(sb *strings.Builder, seg *Segment) {
	sb.WriteString(seg.SourceText)
	sb.WriteString("\n")
	if seg.TargetText != "" {
		sb.WriteString(seg.TargetText)
		sb.WriteString("\n")
	}
}

func (w *JSONWriter) Write(subs *List, path string) error {
	return writeRendered(subs, path, FormatJSON)
}

func (w *SRTWriter) Write(subs *List, path string) error {
	return writeRendered(subs, path, FormatSRT)
}

func (w *VTTWriter) Write(subs *List, path string) error {
	return writeRendered(subs, path, FormatVTT)
}

func (w *ASSWriter) Write(subs *List, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := w.Encode(&buf, subs); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Encode writes an ASS script; bilingual cues are joined with \N.
func (w *ASSWriter) Encode(out io.Writer, subs *List) error {
	var sb strings.Builder

	// script info section
	sb.WriteString("[Script Info]\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", w.Title))
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("Collisions: Normal\n")
	sb.WriteString("PlayDepth: 0\n\n")

	// v4+ styles section
	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	sb.WriteString(fmt.Sprintf("Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1\n\n",
		w.FontName, w.FontSize))

	// events section
	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, seg := range subs.Segments {
		text := seg.SourceText
		if seg.TargetText != "" {
			text += "\n" + seg.TargetText
		}
		sb.WriteString(fmt.Sprintf("Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatASSTime(seg.Start),
			formatASSTime(seg.End),
			escapeASSText(text)))
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

func writeRendered(subs *List, path string, format Format) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := Render(subs, format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// H:MM:SS.cc
func formatASSTime(seconds float64) string {
	vtt := timecode.VTT(seconds) // HH:MM:SS.mmm
	h, rest, _ := strings.Cut(vtt, ":")
	hours := strings.TrimLeft(h, "0")
	if hours == "" {
		hours = "0"
	}
	return hours + ":" + rest[:len(rest)-1]
}

func escapeASSText(text string) string {
	text = strings.ReplaceAll(text, "\n", "\\N")
	return text
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// subtitle format based on file extension
func GetFormatFromExtension(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return FormatJSON, nil
	case ".srt":
		return FormatSRT, nil
	case ".vtt":
		return FormatVTT, nil
	case ".ass", ".ssa":
		return FormatASS, nil
	default:
		return "", &UnsupportedFormatError{Format: Format(strings.TrimPrefix(ext, ".")), Op: "detect"}
	}
}

// parses a user supplied format name
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatJSON, FormatSRT, FormatVTT, FormatASS:
		return f, nil
	default:
		return "", &UnsupportedFormatError{Format: f, Op: "parse"}
	}
}

// file extension for a format
func GetExtensionForFormat(format Format) string {
	switch format {
	case FormatJSON:
		return ".json"
	case FormatSRT:
		return ".srt"
	case FormatVTT:
		return ".vtt"
	case FormatASS:
		return ".ass"
	default:
		return ".json"
	}
}
