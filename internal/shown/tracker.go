// Package shown tracks recently selected post URLs so repeats can be
// excluded within a rolling window.
package shown

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	logx "memebot/pkg/logx"
)

// Tracker is a disk-persisted map of url -> last shown time.
//
// Pruning is lazy: an entry older than the window is deleted when it is
// looked up. Mark writes through to disk immediately; show events are
// infrequent, so durability wins over batching.
type Tracker struct {
	mu     sync.Mutex
	path   string
	window time.Duration
	seen   map[string]int64 // unix seconds
	log    logx.Logger

	now func() time.Time
}

const DefaultWindow = 24 * time.Hour

func New(path string, window time.Duration, log logx.Logger) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	t := &Tracker{
		path:   path,
		window: window,
		seen:   map[string]int64{},
		log:    log,
		now:    time.Now,
	}
	t.load()
	return t
}

func (t *Tracker) load() {
	b, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.log.Warn("shown file unreadable; starting empty", logx.Err(err))
		}
		return
	}
	var m map[string]int64
	if err := json.Unmarshal(b, &m); err != nil {
		t.log.Warn("shown file malformed; starting empty", logx.Err(err))
		return
	}
	// Drop entries that already fell out of the window.
	cutoff := t.now().Add(-t.window).Unix()
	for url, at := range m {
		if at > cutoff {
			t.seen[url] = at
		}
	}
	t.log.Debug("shown tracker loaded", logx.Int("entries", len(t.seen)))
}

// SeenRecently reports whether url was shown within the window.
// A stale hit is deleted and treated as "not shown".
func (t *Tracker) SeenRecently(url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.seen[url]
	if !ok {
		return false
	}
	if t.now().Unix()-at >= int64(t.window.Seconds()) {
		delete(t.seen, url)
		return false
	}
	return true
}

// Mark records url as shown now and persists immediately.
func (t *Tracker) Mark(url string) {
	t.mu.Lock()
	t.seen[url] = t.now().Unix()
	t.persistLocked()
	t.mu.Unlock()
}

// Clear drops the whole set (exhaustion recovery) and persists.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.seen = map[string]int64{}
	t.persistLocked()
	t.mu.Unlock()
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

func (t *Tracker) persistLocked() {
	if t.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		t.log.Warn("shown persist failed", logx.Err(err))
		return
	}
	b, err := json.MarshalIndent(t.seen, "", "  ")
	if err != nil {
		t.log.Warn("shown persist failed", logx.Err(err))
		return
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		t.log.Warn("shown persist failed", logx.Err(err))
		return
	}
	if err := os.Rename(tmp, t.path); err != nil {
		t.log.Warn("shown persist failed", logx.Err(err))
	}
}
