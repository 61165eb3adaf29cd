package subtitle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/shadow/internal/cache"
)

// suffix of the exports written next to the source video
const CompanionSuffix = "_bilingual"

// Store persists subtitle lists in the content-addressed cache, keyed on the
// source video's digest rather than the subtitle file's.
type Store struct {
	cache *cache.Cache
}

func NewStore(c *cache.Cache) *Store {
	return &Store{cache: c}
}

// cache path for a video digest and format
func (s *Store) PathForKey(key string, format Format) string {
	return cache.PathForHash(key, s.cache.SubtitleDir(), string(format))
}

// cache path for the video at videoPath
func (s *Store) CachePath(videoPath string, format Format) (string, error) {
	key, err := cache.Hash(videoPath)
	if err != nil {
		return "", err
	}
	return s.PathForKey(key, format), nil
}

// SaveToCache writes subs under the digest of videoPath.
func (s *Store) SaveToCache(subs *List, videoPath string, format Format) (string, error) {
	key, err := cache.Hash(videoPath)
	if err != nil {
		return "", err
	}
	return s.SaveToCacheKey(subs, key, format)
}

// SaveToCacheKey writes subs under an already computed digest.
func (s *Store) SaveToCacheKey(subs *List, key string, format Format) (string, error) {
	data, err := Render(subs, format)
	if err != nil {
		return "", err
	}
	path := s.PathForKey(key, format)
	if err := cache.WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// LoadFromCache returns the cached list for videoPath. found is false when no
// entry exists. Only JSON can be loaded; other formats fail with
// UnsupportedFormatError whether or not an entry exists.
func (s *Store) LoadFromCache(videoPath string, format Format) (*List, bool, error) {
	if format != FormatJSON {
		return nil, false, &UnsupportedFormatError{Format: format, Op: "load from cache"}
	}
	key, err := cache.Hash(videoPath)
	if err != nil {
		return nil, false, err
	}
	return s.LoadFromCacheKey(key, format)
}

func (s *Store) LoadFromCacheKey(key string, format Format) (*List, bool, error) {
	if format != FormatJSON {
		return nil, false, &UnsupportedFormatError{Format: format, Op: "load from cache"}
	}
	path := s.PathForKey(key, format)
	if !cache.Exists(path) {
		return nil, false, nil
	}
	subs, err := LoadJSON(path)
	if err != nil {
		return nil, false, err
	}
	return subs, true, nil
}

// <dir>/<stem>_bilingual.<ext> next to the video
func CompanionPath(videoPath string, format Format) string {
	dir := filepath.Dir(videoPath)
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	return filepath.Join(dir, stem+CompanionSuffix+GetExtensionForFormat(format))
}

// SaveCompanion writes the JSON and SRT exports next to the video and returns
// their paths in that order.
func SaveCompanion(subs *List, videoPath string) ([]string, error) {
	var paths []string
	for _, format := range []Format{FormatJSON, FormatSRT} {
		w, err := NewWriter(format)
		if err != nil {
			return paths, err
		}
		path := CompanionPath(videoPath, format)
		if err := w.Write(subs, path); err != nil {
			return paths, fmt.Errorf("failed to write %s export: %w", format, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// LoadCompanion reads <stem>_bilingual.json if present.
func LoadCompanion(videoPath string) (*List, string, bool, error) {
	path := CompanionPath(videoPath, FormatJSON)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, path, false, nil
		}
		return nil, path, false, err
	}
	subs, err := LoadJSON(path)
	if err != nil {
		return nil, path, false, err
	}
	return subs, path, true, nil
}
