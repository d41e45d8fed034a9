// Package cache stores fetched pages on disk for a bounded time.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reelscout/reelscout/filesystem"
)

// Store is a directory of entries that expire ttl after they were written.
type Store struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// New opens a store rooted at dir.
func New(dir string, ttl time.Duration) *Store {
	return &Store{dir: dir, ttl: ttl, now: time.Now}
}

// Key hashes its parts into a file-safe identifier. Case and surrounding
// whitespace of the parts do not matter.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key)
}

// Get returns the entry for key if it exists and has not expired.
func (s *Store) Get(key string) ([]byte, bool) {
	if s.ttl <= 0 {
		return nil, false
	}

	fs := filesystem.API()
	info, err := fs.Stat(s.path(key))
	if err != nil || s.now().Sub(info.ModTime()) > s.ttl {
		return nil, false
	}

	data, err := fs.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put writes the entry atomically.
func (s *Store) Put(key string, data []byte) error {
	if s.ttl <= 0 {
		return nil
	}
	return filesystem.WriteAtomic(s.path(key), data, 0644)
}

// Delete drops the entry for key. A missing entry is not an error.
func (s *Store) Delete(key string) error {
	err := filesystem.API().Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Prune removes expired entries and returns how many were deleted.
func (s *Store) Prune() int {
	fs := filesystem.API()
	entries, err := fs.ReadDir(s.dir)
	if err != nil {
		return 0
	}

	var removed int
	for _, e := range entries {
		if e.IsDir() || s.now().Sub(e.ModTime()) <= s.ttl {
			continue
		}
		if err := fs.Remove(filepath.Join(s.dir, e.Name())); err == nil || os.IsNotExist(err) {
			removed++
		}
	}
	return removed
}
