// Package cache is a TTL-keyed, disk-persisted cache of normalized
// source listings, keyed by "<sourceId>_<sort>".
package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"memebot/internal/meme"
	logx "memebot/pkg/logx"
)

type entry struct {
	Timestamp int64       `json:"timestamp"`
	Data      []meme.Post `json:"data"`
}

// Cache holds listings fetched from external sources so repeat requests
// within the TTL never touch the network (the relay is rate limited and
// slow; a cache hit is the common case).
//
// Staleness policy: expired data is never served on the happy path, but
// if a refresh fetch fails the last-known value is returned instead of
// nothing. That is intentional, not a bug.
type Cache struct {
	mu      sync.Mutex
	path    string
	entries map[string]entry
	log     logx.Logger

	now func() time.Time
}

// New loads the persisted cache file if present. Entries older than
// loadTTL are discarded at startup (the file format carries timestamps,
// not per-entry TTLs).
func New(path string, loadTTL time.Duration, log logx.Logger) *Cache {
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Cache{
		path:    path,
		entries: map[string]entry{},
		log:     log,
		now:     time.Now,
	}
	c.load(loadTTL)
	return c
}

func (c *Cache) load(ttl time.Duration) {
	b, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("cache file unreadable; starting empty", logx.Err(err))
		}
		return
	}
	var m map[string]entry
	if err := json.Unmarshal(b, &m); err != nil {
		c.log.Warn("cache file malformed; starting empty", logx.Err(err))
		return
	}
	cutoff := c.now().Add(-ttl).Unix()
	for k, e := range m {
		if ttl <= 0 || e.Timestamp > cutoff {
			c.entries[k] = e
		}
	}
	c.log.Debug("cache loaded", logx.Int("entries", len(c.entries)))
}

func (c *Cache) lookup(key string, ttl time.Duration) (fresh []meme.Post, stale []meme.Post, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[key]
	if !found {
		return nil, nil, false
	}
	if c.now().Unix()-e.Timestamp < int64(ttl.Seconds()) {
		return e.Data, nil, true
	}
	return nil, e.Data, true
}

// GetOrFetch returns the cached value for key when it is within ttl.
// On a miss it calls fetch, writes through, and persists. If fetch fails
// and an expired value exists, that stale value is served with a nil
// error (logged); with nothing to fall back on the fetch error surfaces.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(ctx context.Context) ([]meme.Post, error)) ([]meme.Post, error) {
	freshData, staleData, found := c.lookup(key, ttl)
	if found && freshData != nil {
		c.log.Debug("cache hit", logx.String("key", key))
		return freshData, nil
	}

	// Fetch outside the lock; relay calls can take tens of seconds.
	// Two concurrent misses on the same key may both fetch; the relay
	// limiter serializes them and last-write-wins is fine here.
	data, err := fetch(ctx)
	if err != nil {
		if found {
			c.log.Warn("fetch failed; serving stale cache",
				logx.String("key", key), logx.Err(err))
			return staleData, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = entry{Timestamp: c.now().Unix(), Data: data}
	c.mu.Unlock()
	if err := c.Save(); err != nil {
		c.log.Warn("cache persist failed", logx.String("key", key), logx.Err(err))
	}
	return data, nil
}

// Save writes the whole cache atomically (tmp + rename). Called after
// every successful fetch and at shutdown. The lock covers the write and
// rename too: concurrent saves share one tmp path, so interleaving them
// could rename a half-written file.
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

// Len reports the number of entries currently held (fresh or stale).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
