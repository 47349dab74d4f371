package config

import (
	"fmt"
	"strings"
)

// Config is the bot's file-backed configuration (JSON or YAML).
// Duration fields are strings ("2s", "1h") parsed at mapping time so a
// hand-edited config fails loudly instead of silently defaulting.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Pprof    PprofConfig    `json:"pprof,omitempty"`

	// Bypass configures the anti-bot relay client used for reddit.
	Bypass BypassConfig `json:"bypass"`

	// Sources lists the communities posts may be fetched from.
	Sources SourcesConfig `json:"sources"`

	Cache CacheConfig  `json:"cache"`
	Shown ShownConfig  `json:"shown"`
	Sel   SelectConfig `json:"select"`

	Schedule ScheduleConfig `json:"schedule"`

	// Storage enables the selection audit trail. Nil means disabled.
	Storage *StorageConfig `json:"storage,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// Channel is the default chat the scheduled post lands in when the
	// preferences file carries no channelTarget.
	Channel string `json:"channel"`
}

type LoggingConfig struct {
	Level   string     `json:"level"`
	Console bool       `json:"console"`
	File    FileConfig `json:"file"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type PprofConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

type BypassConfig struct {
	URL          string `json:"url"`
	Spacing      string `json:"spacing"`       // min gap between relay calls; default 2s
	SolveTimeout string `json:"solve_timeout"` // relay maxTimeout; default 30s
	Budget       string `json:"budget"`        // whole round trip; default 60s
}

type SourcesConfig struct {
	Reddit  []string `json:"reddit"`
	Lemmy   []string `json:"lemmy"` // "host@community"
	Enabled []string `json:"enabled"`
}

type CacheConfig struct {
	Path string `json:"path"`
	TTL  string `json:"ttl"` // default 1h
}

type ShownConfig struct {
	Path   string `json:"path"`
	Window string `json:"window"` // default 24h
}

type SelectConfig struct {
	MinScore      int    `json:"min_score"`
	PoolSize      int    `json:"pool_size"`
	MaxSources    int    `json:"max_sources"`
	SortMode      string `json:"sort_mode"`
	RedditTimeout string `json:"reddit_timeout"`
	LemmyTimeout  string `json:"lemmy_timeout"`
}

type ScheduleConfig struct {
	PrefsPath string `json:"prefs_path"`
}

type StorageConfig struct {
	Driver      string `json:"driver"` // none | file | sqlite
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// DefaultSources mirror the lists the bot ships with; an empty sources
// section falls back to them so a minimal config still works.
var (
	DefaultRedditSources = []string{"memes", "dankmemes", "wholesomememes", "ProgrammerHumor"}
	DefaultLemmySources  = []string{"lemmy.world@memes", "lemmy.ml@memes", "sh.itjust.works@lemmyshitpost"}
	DefaultEnabledKinds  = []string{"reddit", "lemmy"}
)

// Validate checks cross-field constraints that the strict decoder can't.
func (c *Config) Validate() error {
	for _, kind := range c.Sources.Enabled {
		switch strings.ToLower(strings.TrimSpace(kind)) {
		case "reddit", "lemmy":
		default:
			return fmt.Errorf("sources.enabled: unknown source type %q", kind)
		}
	}
	for _, comm := range c.Sources.Lemmy {
		if !strings.Contains(comm, "@") {
			return fmt.Errorf("sources.lemmy: %q is not host@community", comm)
		}
	}
	if c.Sel.MinScore < 0 {
		return fmt.Errorf("select.min_score must be >= 0")
	}
	if c.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
		}
	}
	return nil
}
