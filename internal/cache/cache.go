// Package cache maps source files to deterministic artifact paths keyed on the
// MD5 digest of the file's bytes. Entries never expire; removing them is a
// manual operation.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// subdirectories of the cache root
const (
	AudioDir    = "audio"
	SubtitleDir = "subtitles"
)

// CacheIOError reports an unreadable source file or an unwritable cache
// directory.
type CacheIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheIOError) Unwrap() error { return e.Err }

// Hash returns the hex MD5 digest of the file at sourcePath.
func Hash(sourcePath string) (string, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return "", &CacheIOError{Op: "hash", Path: sourcePath, Err: err}
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", &CacheIOError{Op: "hash", Path: sourcePath, Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Path returns cacheDir/<md5(source bytes)>.<extension>. The extension may be
// given with or without the leading dot.
func Path(sourcePath, cacheDir, extension string) (string, error) {
	sum, err := Hash(sourcePath)
	if err != nil {
		return "", err
	}
	return PathForHash(sum, cacheDir, extension), nil
}

// joins an already computed digest into a cache path
func PathForHash(sum, cacheDir, extension string) string {
	ext := strings.TrimPrefix(extension, ".")
	name := sum
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(cacheDir, name)
}

// reports whether a non-empty regular file exists at path
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// Cache is the cache root with its audio and subtitle subdirectories.
type Cache struct {
	root string
}

// creates the cache root and its subdirectories
func New(root string) (*Cache, error) {
	if strings.TrimSpace(root) == "" {
		return nil, &CacheIOError{Op: "init", Path: root, Err: errors.New("empty cache directory")}
	}
	for _, dir := range []string{root, filepath.Join(root, AudioDir), filepath.Join(root, SubtitleDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &CacheIOError{Op: "init", Path: dir, Err: err}
		}
	}
	return &Cache{root: root}, nil
}

func (c *Cache) Root() string { return c.root }

// directory holding extracted audio
func (c *Cache) AudioDir() string { return filepath.Join(c.root, AudioDir) }

// directory holding subtitle artifacts
func (c *Cache) SubtitleDir() string { return filepath.Join(c.root, SubtitleDir) }

// <root>/audio/<md5>.wav for sourcePath
func (c *Cache) AudioPath(sourcePath string) (string, error) {
	return Path(sourcePath, c.AudioDir(), "wav")
}

// <root>/subtitles/<md5>.<format> for sourcePath
func (c *Cache) SubtitlePath(sourcePath, format string) (string, error) {
	return Path(sourcePath, c.SubtitleDir(), format)
}

// Lock takes an exclusive file lock next to the artifact at path so two
// processes never produce the same entry at once. The returned func releases
// the lock.
func Lock(ctx context.Context, path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &CacheIOError{Op: "lock", Path: path, Err: err}
	}

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, &CacheIOError{Op: "lock", Path: path, Err: err}
	}
	if !locked {
		return nil, &CacheIOError{Op: "lock", Path: path, Err: errors.New("lock not acquired")}
	}

	return func() { _ = fl.Unlock() }, nil
}

// WriteFileAtomic writes data to a temp file in the destination directory and
// renames it into place, so readers never observe a partial cache entry.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &CacheIOError{Op: "write", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &CacheIOError{Op: "write", Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &CacheIOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &CacheIOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return &CacheIOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &CacheIOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
