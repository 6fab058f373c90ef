// Package pocache persists PoC search results as a single JSON object on
// disk. Freshness is judged by the file's modification time: once the file
// is older than the TTL every key reads as missing.
package pocache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultTTL is how long a cache file stays fresh.
const DefaultTTL = 24 * time.Hour

const (
	defaultDir  = ".vuln_crawler_cache"
	defaultName = "github_poc_cache.json"
)

// DefaultPath returns ~/.vuln_crawler_cache/github_poc_cache.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, defaultDir, defaultName), nil
}

// File is a key to URL-list cache backed by one JSON file. All reads and
// writes in the process are serialized.
type File struct {
	path string
	ttl  time.Duration
	now  func() time.Time

	mu sync.Mutex
}

// New creates a cache at path. ttl <= 0 selects DefaultTTL.
func New(path string, ttl time.Duration) *File {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &File{path: path, ttl: ttl, now: time.Now}
}

// Path returns the cache file location.
func (f *File) Path() string { return f.path }

// Get returns the cached URLs for key. ok is false when the key is absent
// or the file has expired.
func (f *File) Get(key string) (urls []string, ok bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return nil, false, err
	}
	urls, ok = entries[key]
	return urls, ok, nil
}

// Put stores urls under key. An expired file is replaced, dropping its
// other keys.
func (f *File) Put(key string, urls []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}
	if urls == nil {
		urls = []string{}
	}
	entries[key] = urls
	return f.write(entries)
}

// load reads the file. Missing, expired and unparsable files all read as
// empty; only I/O failures are errors.
func (f *File) load() (map[string][]string, error) {
	entries := make(map[string][]string)

	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat poc cache: %w", err)
	}
	if f.now().Sub(info.ModTime()) >= f.ttl {
		return entries, nil
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read poc cache: %w", err)
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		slog.Warn("ignoring unreadable poc cache",
			slog.String("path", f.path),
			slog.Any("error", err))
		return make(map[string][]string), nil
	}
	return entries, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (f *File) write(entries map[string][]string) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode poc cache: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create poc cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".poc-cache-*")
	if err != nil {
		return fmt.Errorf("create temp poc cache: %w", err)
	}
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write poc cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close poc cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace poc cache: %w", err)
	}
	return nil
}
