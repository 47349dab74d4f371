package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free JSONL append log
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// SelectionEntry records one served post.
// Keep it compact and schema-stable.
type SelectionEntry struct {
	At         time.Time `json:"at"`
	Trigger    string    `json:"trigger"` // "manual" | "scheduled"
	Source     string    `json:"source"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Score      int       `json:"score"`
	NSFW       bool      `json:"nsfw"`
	PoolSize   int       `json:"pool_size"`
	Candidates int       `json:"candidates"`
	TookMS     int64     `json:"took_ms"`
}
