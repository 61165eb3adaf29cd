package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mgpai22/shadow/internal/subtitle"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0", 0, false},
		{"12.5", 12.5, false},
		{"00:01:30", 90, false},
		{"00:01:30.500", 90.5, false},
		{"-3", 0, true},
		{"1:2", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimestamp(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseTimestamp(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTimestamp(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultExportPath(t *testing.T) {
	tests := []struct {
		input  string
		format subtitle.Format
		want   string
	}{
		{"/v/talk.mp4", subtitle.FormatVTT, "/v/talk_bilingual.vtt"},
		{"/v/talk.mp4", subtitle.FormatASS, "/v/talk_bilingual.ass"},
		{"/v/talk_bilingual.json", subtitle.FormatSRT, "/v/talk_bilingual.srt"},
		{"/v/subs.JSON", subtitle.FormatVTT, "/v/subs.vtt"},
	}
	for _, tt := range tests {
		got := defaultExportPath(filepath.FromSlash(tt.input), tt.format)
		if got != filepath.FromSlash(tt.want) {
			t.Errorf("defaultExportPath(%q, %s) = %q, want %q", tt.input, tt.format, got, tt.want)
		}
	}
}

func TestCheckVideo(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "a.mp4")
	text := filepath.Join(dir, "a.txt")
	for _, p := range []string{video, text} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := checkVideo(video); err != nil {
		t.Errorf("checkVideo(mp4) = %v", err)
	}
	if err := checkVideo(text); err == nil {
		t.Error("expected error for non-video file")
	}
	if err := checkVideo(filepath.Join(dir, "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExportCommandRendersJSON(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	t.Setenv("SHADOW_CACHE_DIR", filepath.Join(dir, "cache"))

	subs := subtitle.NewList("en")
	subs.Append(&subtitle.Segment{ID: 7, Start: 3661.234, End: 3662, SourceText: "Hello", TargetText: "你好"})
	input := filepath.Join(dir, "talk_bilingual.json")
	if err := (&subtitle.JSONWriter{}).Write(subs, input); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"export", input, "--format", "vtt"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("export failed: %v\n%s", err, out.String())
	}

	data, err := os.ReadFile(filepath.Join(dir, "talk_bilingual.vtt"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	got := string(data)
	for _, want := range []string{"WEBVTT", "01:01:01.234 --> 01:01:02.000", "Hello", "你好"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestClockPlayer(t *testing.T) {
	now := time.Unix(1000, 0)
	p := newClockPlayer(func() time.Time { return now })

	p.Seek(10)
	now = now.Add(time.Second)
	if got := p.Position(); got != 10 {
		t.Errorf("paused position = %v, want 10", got)
	}

	p.Play()
	now = now.Add(1500 * time.Millisecond)
	if got := p.Position(); got != 11.5 {
		t.Errorf("playing position = %v, want 11.5", got)
	}

	p.Seek(2)
	now = now.Add(500 * time.Millisecond)
	if got := p.Position(); got != 2.5 {
		t.Errorf("position after seek = %v, want 2.5", got)
	}

	p.Pause()
	now = now.Add(time.Hour)
	if p.IsPlaying() || p.Position() != 2.5 {
		t.Errorf("paused at %v (playing=%v), want 2.5", p.Position(), p.IsPlaying())
	}
}

func TestRepeatCommandUsesConfiguredSettings(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	t.Setenv("SHADOW_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("SHADOW_REPEAT_BUFFER_TIME", "0")
	t.Setenv("SHADOW_REPEAT_POLL_INTERVAL", "5ms")
	t.Setenv("SHADOW_REPEAT_COUNTS", "2")

	subs := subtitle.NewList("en")
	subs.Append(&subtitle.Segment{ID: 1, Start: 0, End: 0.05, SourceText: "First", TargetText: "第一"})
	subs.Append(&subtitle.Segment{ID: 2, Start: 0.05, End: 0.1, SourceText: "Second", TargetText: "第二"})
	input := filepath.Join(dir, "drill_bilingual.json")
	if err := (&subtitle.JSONWriter{}).Write(subs, input); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"repeat", input, "--id", "2"})
	defer rootCmd.SetArgs(nil)

	done := make(chan error, 1)
	go func() { done <- rootCmd.Execute() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("repeat failed: %v\n%s", err, out.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("repeat did not finish")
	}

	got := out.String()
	for _, want := range []string{"[1/2]", "[2/2]", "Second", "第二", "Done: 2 passes"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "First") {
		t.Errorf("repeated the wrong line:\n%s", got)
	}
}
