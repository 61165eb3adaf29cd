package subtitle

import (
	"strings"
	"testing"
)

func threeSegments() *List {
	return &List{
		Language: "en",
		Segments: []*Segment{
			{ID: 1, Start: 0, End: 2, SourceText: "first"},
			{ID: 2, Start: 2, End: 5, SourceText: "second"},
			{ID: 3, Start: 5, End: 8, SourceText: "third"},
		},
	}
}

func TestListAt(t *testing.T) {
	subs := threeSegments()

	tests := []struct {
		name   string
		t      float64
		wantID int // 0 means no segment
	}{
		{"inside first", 1.5, 1},
		{"start of first", 0, 1},
		{"shared boundary goes to earlier segment", 2.0, 1},
		{"just after boundary", 2.0001, 2},
		{"shared boundary 5.0", 5.0, 2},
		{"end of last", 8.0, 3},
		{"after last", 10, 0},
		{"before zero", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := subs.At(tt.t)
			if tt.wantID == 0 {
				if got != nil {
					t.Errorf("At(%v) = segment %d, want none", tt.t, got.ID)
				}
				return
			}
			if got == nil {
				t.Fatalf("At(%v) = nil, want segment %d", tt.t, tt.wantID)
			}
			if got.ID != tt.wantID {
				t.Errorf("At(%v) = segment %d, want %d", tt.t, got.ID, tt.wantID)
			}
		})
	}
}

func TestListAtWithGapAndOverlap(t *testing.T) {
	subs := &List{Segments: []*Segment{
		{ID: 1, Start: 0, End: 3, SourceText: "a"},
		{ID: 2, Start: 2, End: 4, SourceText: "overlaps a"},
		{ID: 3, Start: 6, End: 7, SourceText: "after gap"},
	}}

	if got := subs.At(2.5); got == nil || got.ID != 1 {
		t.Errorf("overlap should resolve to first match, got %+v", got)
	}
	if got := subs.At(5); got != nil {
		t.Errorf("gap should return nil, got segment %d", got.ID)
	}
	var nilList *List
	if nilList.At(1) != nil {
		t.Error("nil list should return nil")
	}
}

func TestListByIDAndCounts(t *testing.T) {
	subs := threeSegments()
	subs.Segments[1].TargetText = "第二"

	if got := subs.ByID(2); got == nil || got.SourceText != "second" {
		t.Errorf("ByID(2) = %+v", got)
	}
	if subs.ByID(42) != nil {
		t.Error("ByID(42) should be nil")
	}
	if subs.Len() != 3 {
		t.Errorf("Len = %d, want 3", subs.Len())
	}
	if subs.TranslatedCount() != 1 {
		t.Errorf("TranslatedCount = %d, want 1", subs.TranslatedCount())
	}
	if d := subs.Segments[1].Duration(); d != 3 {
		t.Errorf("Duration = %v, want 3", d)
	}
}

func TestValidate(t *testing.T) {
	if err := threeSegments().Validate(); err != nil {
		t.Fatalf("valid list reported %v", err)
	}

	bad := &List{Segments: []*Segment{
		{ID: 1, Start: 0, End: 2},
		{ID: 1, Start: 1, End: 3},
		{ID: 3, Start: 4, End: 4},
		{ID: -2, Start: 3, End: 5},
	}}
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}

	msg := err.Error()
	for _, want := range []string{
		"duplicate id 1",
		"overlaps segment 1",
		"invalid range",
		"not positive",
		"starts before segment 3",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("validation error missing %q:\n%s", want, msg)
		}
	}
}
