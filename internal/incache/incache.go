// Package incache implements the incremental cache: a file-hash keyed map
// of cached findings plus the last computed score, so a re-run over an
// unchanged repository can skip re-detecting files whose content hash has
// not moved.
package incache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/rerr"
)

// FileEntry is the cached state for a single file: the content hash it was
// last analysed at, and the findings produced for it.
type FileEntry struct {
	ContentHash uint64              `json:"content_hash"`
	Findings    []graphmodel.Finding `json:"findings"`
}

// Cache maps file path to FileEntry, plus the last overall score. Reads and
// writes are lock-free via sync.Map the same way the teacher's metrics
// cache avoids a mutex on the hot per-file lookup path; flushing to disk
// still goes through a single snapshot so concurrent writers never race on
// the file handle.
type Cache struct {
	path string

	entries   sync.Map // string path -> FileEntry
	lastScore atomic64

	mu sync.Mutex // guards Flush/Load so they never interleave
}

// atomic64 stores a float64 score, and whether one was ever set, behind its
// own RWMutex, separate from the Flush/Load mutex.
type atomic64 struct {
	mu    sync.RWMutex
	value float64
	set   bool
}

func (a *atomic64) Store(v float64) {
	a.mu.Lock()
	a.value = v
	a.set = true
	a.mu.Unlock()
}

func (a *atomic64) Load() (float64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value, a.set
}

func New(path string) *Cache {
	return &Cache{path: path}
}

// ContentHash hashes file content with xxhash for cache-key comparison —
// not a cryptographic hash, just a fast, well-distributed change detector.
func ContentHash(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// IsStale reports whether path is missing from the cache or its recorded
// hash differs from currentHash — i.e. whether it needs re-detection.
func (c *Cache) IsStale(path string, currentHash uint64) bool {
	v, ok := c.entries.Load(path)
	if !ok {
		return true
	}
	return v.(FileEntry).ContentHash != currentHash
}

// Get returns the cached findings for path, if present and not stale.
func (c *Cache) Get(path string, currentHash uint64) ([]graphmodel.Finding, bool) {
	v, ok := c.entries.Load(path)
	if !ok {
		return nil, false
	}
	entry := v.(FileEntry)
	if entry.ContentHash != currentHash {
		return nil, false
	}
	return entry.Findings, true
}

// Put records findings for path at the given content hash, overwriting any
// previous entry — an idempotent update a re-run can safely repeat.
func (c *Cache) Put(path string, contentHash uint64, findings []graphmodel.Finding) {
	c.entries.Store(path, FileEntry{ContentHash: contentHash, Findings: findings})
}

// SetScore records the most recently computed overall health score.
func (c *Cache) SetScore(score float64) {
	c.lastScore.Store(score)
}

// LastScore returns the previously cached score, if one was ever recorded.
func (c *Cache) LastScore() (float64, bool) {
	return c.lastScore.Load()
}

// snapshot is the on-disk shape Flush writes and Load reads.
type snapshot struct {
	Entries   map[string]FileEntry `json:"entries"`
	LastScore *float64             `json:"last_score,omitempty"`
}

// Flush writes the cache atomically: write to a temp file in the same
// directory, then rename over the destination, so a crash mid-write never
// leaves a corrupt cache file behind.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := snapshot{Entries: make(map[string]FileEntry)}
	c.entries.Range(func(k, v any) bool {
		snap.Entries[k.(string)] = v.(FileEntry)
		return true
	})
	if score, ok := c.lastScore.Load(); ok {
		snap.LastScore = &score
	}

	data, err := json.Marshal(&snap)
	if err != nil {
		return rerr.NewCacheWriteFailed(c.path, err)
	}

	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return rerr.NewCacheWriteFailed(c.path, err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return rerr.NewCacheWriteFailed(c.path, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return rerr.NewCacheWriteFailed(c.path, err)
	}
	return nil
}

// Load reads a previously flushed cache from disk. A missing file is not an
// error — it just means this is the first run.
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return rerr.NewGraphCorrupt(c.path, "read failed", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return rerr.NewGraphCorrupt(c.path, "json decode failed", err)
	}
	for k, v := range snap.Entries {
		c.entries.Store(k, v)
	}
	if snap.LastScore != nil {
		c.lastScore.Store(*snap.LastScore)
	}
	return nil
}
