package subtitle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DecodeJSON reads a document written by EncodeJSON. Missing text_zh is
// treated as untranslated.
func DecodeJSON(r io.Reader) (*List, error) {
	var doc struct {
		Language *string    `json:"language"`
		Segments []*Segment `json:"segments"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode subtitles: %w", err)
	}
	if doc.Segments == nil {
		return nil, fmt.Errorf("failed to decode subtitles: missing segments")
	}

	subs := &List{Language: "en", Segments: doc.Segments}
	if doc.Language != nil {
		subs.Language = *doc.Language
	}
	for i, seg := range subs.Segments {
		if seg == nil {
			return nil, fmt.Errorf("failed to decode subtitles: segment %d is null", i)
		}
		if seg.ID == 0 {
			return nil, fmt.Errorf("failed to decode subtitles: segment %d has no id", i)
		}
	}
	return subs, nil
}

// loads a JSON subtitle file from disk
func LoadJSON(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer f.Close()

	subs, err := DecodeJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return subs, nil
}
