// Package cache persists the last full scan result between invocations.
//
// The on-disk format is the line/delimiter record format from internal/apps,
// sorted ascending by last-used epoch. It is a stable interface: later
// invocations and outside tooling may read the file directly.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/tw93/appsweep/internal/apps"
)

// DefaultTTLSeconds is how long a scan result stays fresh: 24 hours.
const DefaultTTLSeconds = 86400

const defaultFileName = "apps.cache"

// ErrNotFound reports a missing or unreadable cache file.
var ErrNotFound = errors.New("cache entry not found")

// Store reads and writes one scan result at a fixed location.
type Store struct {
	path string
	now  func() time.Time
}

// DefaultDir returns the per-user cache directory, creating it if needed.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "appsweep")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// New returns a store under dir. The default root set maps to a canonical
// file name; a custom root set gets its own hashed entry so results for
// different scans never overwrite each other.
func New(dir string, roots []string) *Store {
	return &Store{
		path: filepath.Join(dir, fileName(roots)),
		now:  time.Now,
	}
}

func fileName(roots []string) string {
	if len(roots) == 0 {
		return defaultFileName
	}
	sorted := append([]string(nil), roots...)
	sort.Strings(sorted)
	return fmt.Sprintf("%016x.cache", xxhash.Sum64String(strings.Join(sorted, "\x00")))
}

// Path returns the cache file location.
func (s *Store) Path() string { return s.path }

// Fresh reports whether the cached result is younger than maxAgeSeconds.
// A computed age equal to the current timestamp means the modification time
// read back as zero; that reading is not trusted and the cache is forced
// stale instead.
func (s *Store) Fresh(maxAgeSeconds int64) bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return false
	}
	now := s.now().Unix()
	age := now - info.ModTime().Unix()
	if age == now {
		age = maxAgeSeconds + 1
	}
	return age >= 0 && age < maxAgeSeconds
}

// Load reads the cached record set. Rows whose bundle path no longer exists
// are dropped by the record loader; an empty live set surfaces as
// apps.ErrNoneAvailable.
func (s *Store) Load() ([]apps.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read cache: %w", err)
	}
	return apps.Load(bytes.NewReader(data))
}

// Save atomically replaces the cache file with the given record set. The
// records are expected in sorted order; Save does not reorder them.
func (s *Store) Save(records []apps.Record) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, apps.Marshal(records), 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}
