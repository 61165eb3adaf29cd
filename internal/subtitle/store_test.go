package subtitle

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mgpai22/shadow/internal/cache"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	c, err := cache.New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	video := filepath.Join(t.TempDir(), "lesson.mp4")
	if err := os.WriteFile(video, []byte("fake video bytes"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return NewStore(c), video
}

func TestStoreSaveAndLoad(t *testing.T) {
	store, video := newTestStore(t)
	subs := threeSegments()
	subs.Segments[0].TargetText = "第一"

	path, err := store.SaveToCache(subs, video, FormatJSON)
	if err != nil {
		t.Fatalf("SaveToCache: %v", err)
	}

	sum, _ := cache.Hash(video)
	if filepath.Base(path) != sum+".json" {
		t.Errorf("cache entry %q is not keyed on the video digest", path)
	}

	got, found, err := store.LoadFromCache(video, FormatJSON)
	if err != nil || !found {
		t.Fatalf("LoadFromCache: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(subs, got) {
		t.Errorf("loaded list differs:\ngot  %+v\nwant %+v", got, subs)
	}
}

func TestStoreSharedAcrossRenamedCopies(t *testing.T) {
	store, video := newTestStore(t)
	if _, err := store.SaveToCache(threeSegments(), video, FormatJSON); err != nil {
		t.Fatalf("SaveToCache: %v", err)
	}

	copyPath := filepath.Join(t.TempDir(), "renamed.mkv")
	data, _ := os.ReadFile(video)
	if err := os.WriteFile(copyPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	_, found, err := store.LoadFromCache(copyPath, FormatJSON)
	if err != nil || !found {
		t.Errorf("renamed copy should hit the cache: found=%v err=%v", found, err)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store, video := newTestStore(t)
	got, found, err := store.LoadFromCache(video, FormatJSON)
	if err != nil || found || got != nil {
		t.Errorf("expected clean miss, got %v %v %v", got, found, err)
	}
}

func TestStoreLoadUnsupportedFormats(t *testing.T) {
	store, video := newTestStore(t)
	for _, format := range []Format{FormatSRT, FormatVTT} {
		if _, err := store.SaveToCache(threeSegments(), video, format); err != nil {
			t.Fatalf("SaveToCache(%s): %v", format, err)
		}
		_, _, err := store.LoadFromCache(video, format)
		var unsupported *UnsupportedFormatError
		if !errors.As(err, &unsupported) {
			t.Errorf("LoadFromCache(%s) error = %v, want UnsupportedFormatError", format, err)
		}
	}
}

func TestStoreMissingVideo(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.SaveToCache(threeSegments(), "/does/not/exist.mp4", FormatJSON)
	var ioErr *cache.CacheIOError
	if !errors.As(err, &ioErr) {
		t.Errorf("expected CacheIOError, got %v", err)
	}
}

func TestCompanionExports(t *testing.T) {
	_, video := newTestStore(t)

	if p := CompanionPath(video, FormatSRT); filepath.Base(p) != "lesson_bilingual.srt" {
		t.Errorf("CompanionPath = %q", p)
	}

	_, _, found, err := LoadCompanion(video)
	if err != nil || found {
		t.Fatalf("expected no companion yet, found=%v err=%v", found, err)
	}

	subs := threeSegments()
	paths, err := SaveCompanion(subs, video)
	if err != nil {
		t.Fatalf("SaveCompanion: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected json+srt exports, got %v", paths)
	}
	for _, p := range paths {
		if filepath.Dir(p) != filepath.Dir(video) {
			t.Errorf("export %q not next to the video", p)
		}
	}

	got, path, found, err := LoadCompanion(video)
	if err != nil || !found {
		t.Fatalf("LoadCompanion: found=%v err=%v", found, err)
	}
	if path != paths[0] {
		t.Errorf("LoadCompanion path = %q, want %q", path, paths[0])
	}
	if !reflect.DeepEqual(subs, got) {
		t.Errorf("companion round trip mismatch")
	}
}
