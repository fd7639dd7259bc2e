// Package imagestore implements the content-addressed screenshot cache and
// thumbnail repository (spec §4.1, component C1). Grounded on
// hashicorp/golang-lru/v2 for the in-memory tier (as used in estuary-flow)
// and nfnt/resize for thumbnail generation (as used in evalgo-org-eve).
package imagestore

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog/log"
)

const (
	thumbnailMaxWidth  = 400
	thumbnailMaxHeight = 225
	thumbnailQuality   = 75

	thumbnailDirName = "thumbnails"
	originalsDirName = "originals"
)

// Stats is a point-in-time snapshot of cache occupancy, reported through the
// coordinator's status endpoint (spec §6 public operation image.stats).
type Stats struct {
	CachedEntries int `json:"cachedEntries"`
	CacheCapacity int `json:"cacheCapacity"`
}

// PersistResult is returned by Persist.
type PersistResult struct {
	ThumbnailPath string
	Size          int64
}

// Store is the content-addressed image cache + thumbnail repository. All
// methods are safe for concurrent use; the LRU itself already serializes
// reads/writes, and basePath swaps are guarded separately (§5: "Image Store
// LRU: one writer at a time (guarded), many readers").
type Store struct {
	mu       sync.RWMutex
	lru      *lru.Cache[string, []byte]
	base     string // base directory; thumbnails/ and originals/ live under it
	capacity int
}

// New creates a Store with the given LRU capacity and on-disk base
// directory. The thumbnails subdirectory is created eagerly; originals is
// created lazily only if a caller ever asks to keep one.
func New(capacity int, basePath string) (*Store, error) {
	if capacity <= 0 {
		capacity = 500
	}
	cache, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("imagestore: new lru: %w", err)
	}
	s := &Store{lru: cache, base: basePath, capacity: capacity}
	if err := os.MkdirAll(s.thumbDir(), 0o755); err != nil {
		return nil, fmt.Errorf("imagestore: create thumbnail dir: %w", err)
	}
	return s, nil
}

func (s *Store) thumbDir() string {
	return filepath.Join(s.currentBase(), thumbnailDirName)
}

func (s *Store) originalsDir() string {
	return filepath.Join(s.currentBase(), originalsDirName)
}

func (s *Store) currentBase() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base
}

func thumbFilename(hash string) string {
	return fmt.Sprintf("thumb_%s.jpg", shortHash(hash))
}

func originalFilename(hash string) string {
	return fmt.Sprintf("orig_%s.jpg", shortHash(hash))
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// Cache inserts or promotes hash to most-recently-used and returns the
// base64 encoding of bytes.
func (s *Store) Cache(hash string, data []byte) string {
	s.lru.Add(hash, data)
	return base64.StdEncoding.EncodeToString(data)
}

// Get returns the raw bytes for hash, checking the LRU first and falling
// back to the on-disk thumbnail. A disk hit promotes the bytes into the LRU.
// A miss in both tiers returns (nil, false) — a non-fatal "not found" per
// spec §4.1.
func (s *Store) Get(hash string) ([]byte, bool) {
	if b, ok := s.lru.Get(hash); ok {
		return b, true
	}
	path := filepath.Join(s.thumbDir(), thumbFilename(hash))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	s.lru.Add(hash, data)
	return data, true
}

// GetMany is the batched form of Get; hashes with no cached or on-disk entry
// are simply absent from the result map.
func (s *Store) GetMany(hashes []string) map[string][]byte {
	out := make(map[string][]byte, len(hashes))
	for _, h := range hashes {
		if b, ok := s.Get(h); ok {
			out[h] = b
		}
	}
	return out
}

// Persist writes a thumbnail (always) and, if keepOriginal, the full-size
// original, dropping the hash from the in-memory LRU once both writes
// settle (spec: "drops the LRU entry"). Thumbnail and original writes are
// each atomic via write-temp-then-rename. A write failure is logged and
// returned; callers proceed without persistence rather than failing the
// pipeline (spec §4.1: "a write failure is logged and the caller proceeds").
func (s *Store) Persist(hash string, data []byte, keepOriginal bool) (PersistResult, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return PersistResult{}, fmt.Errorf("imagestore: decode source jpeg: %w", err)
	}

	thumb := resize.Thumbnail(thumbnailMaxWidth, thumbnailMaxHeight, img, resize.Lanczos3)
	thumbPath := filepath.Join(s.thumbDir(), thumbFilename(hash))
	size, err := writeJPEGAtomic(thumbPath, thumb, thumbnailQuality)
	if err != nil {
		log.Warn().Err(err).Str("hash", hash).Msg("imagestore: thumbnail write failed")
		return PersistResult{}, err
	}

	if keepOriginal {
		if err := os.MkdirAll(s.originalsDir(), 0o755); err == nil {
			origPath := filepath.Join(s.originalsDir(), originalFilename(hash))
			if _, err := writeJPEGAtomic(origPath, img, 95); err != nil {
				log.Warn().Err(err).Str("hash", hash).Msg("imagestore: original write failed")
			}
		}
	}

	s.lru.Remove(hash)
	return PersistResult{ThumbnailPath: thumbPath, Size: size}, nil
}

// GC deletes thumbnails whose mtime is older than maxAge, returning the
// count removed.
func (s *Store) GC(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	entries, err := os.ReadDir(s.thumbDir())
	if err != nil {
		return 0, fmt.Errorf("imagestore: read thumbnail dir: %w", err)
	}
	count := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.thumbDir(), e.Name())); err == nil {
				count++
			}
		}
	}
	return count, nil
}

// UpdateStoragePath atomically rebinds the base directory used for future
// writes and on-disk reads. No existing files are moved. Entries still held
// in the in-memory LRU stay readable through Get; thumbnails written under
// the old base are not read by Get and not collected by GC after the rebind.
func (s *Store) UpdateStoragePath(newBase string) error {
	if err := os.MkdirAll(filepath.Join(newBase, thumbnailDirName), 0o755); err != nil {
		return fmt.Errorf("imagestore: create new thumbnail dir: %w", err)
	}
	s.mu.Lock()
	s.base = newBase
	s.mu.Unlock()
	return nil
}

// StatsSnapshot returns current cache occupancy.
func (s *Store) StatsSnapshot() Stats {
	return Stats{CachedEntries: s.lru.Len(), CacheCapacity: s.capacity}
}

func writeJPEGAtomic(path string, img image.Image, quality int) (int64, error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("imagestore: create temp file: %w", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("imagestore: encode jpeg: %w", err)
	}
	info, statErr := f.Stat()
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("imagestore: close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("imagestore: rename temp file: %w", err)
	}
	var size int64
	if statErr == nil {
		size = info.Size()
	}
	return size, nil
}
