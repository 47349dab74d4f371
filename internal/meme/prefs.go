package meme

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Preferences are the persisted settings the scheduled entry point runs
// with. The file is JSON and survives restarts; a missing file means
// defaults. The reddit/lemmy allow-lists use the nullable-list encoding
// (null = all, [] = none, list = explicit), see Filter.
type Preferences struct {
	Enabled       bool   `json:"enabled"`
	Hour          int    `json:"hour"`
	Minute        int    `json:"minute"`
	ChannelTarget string `json:"channelTarget"`
	AllowNSFW     bool   `json:"allowNsfw"`
	Reddit        Filter `json:"useSourceTypeA"`
	Lemmy         Filter `json:"useSourceTypeB"`
	MinScore      int    `json:"minScore"`
	MaxSources    int    `json:"maxSources"`
	PoolSize      int    `json:"poolSize"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Enabled:    true,
		Hour:       12,
		Minute:     0,
		AllowNSFW:  true,
		Reddit:     FilterAll(),
		Lemmy:      FilterAll(),
		MinScore:   0,
		MaxSources: 3,
		PoolSize:   50,
	}
}

func (p Preferences) Validate() error {
	if p.Hour < 0 || p.Hour > 23 {
		return fmt.Errorf("preferences: hour %d out of range", p.Hour)
	}
	if p.Minute < 0 || p.Minute > 59 {
		return fmt.Errorf("preferences: minute %d out of range", p.Minute)
	}
	if p.MinScore < 0 {
		return fmt.Errorf("preferences: minScore must be >= 0")
	}
	return nil
}

// Equal reports whether two preference sets are identical.
func (p Preferences) Equal(other Preferences) bool {
	return p.Enabled == other.Enabled &&
		p.Hour == other.Hour &&
		p.Minute == other.Minute &&
		p.ChannelTarget == other.ChannelTarget &&
		p.AllowNSFW == other.AllowNSFW &&
		p.MinScore == other.MinScore &&
		p.MaxSources == other.MaxSources &&
		p.PoolSize == other.PoolSize &&
		p.Reddit.Equal(other.Reddit) &&
		p.Lemmy.Equal(other.Lemmy)
}

// SelectionConfig maps the persisted preferences onto a per-call config.
func (p Preferences) SelectionConfig() SelectionConfig {
	return SelectionConfig{
		MinScore:   p.MinScore,
		MaxSources: p.MaxSources,
		PoolSize:   p.PoolSize,
		AllowNSFW:  p.AllowNSFW,
		Reddit:     p.Reddit,
		Lemmy:      p.Lemmy,
	}
}

// LoadPreferences reads the preferences file. A missing file yields
// defaults; a malformed or invalid file is an error (better to skip a
// scheduled post than to run with a half-read config).
func LoadPreferences(path string) (Preferences, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, err
	}
	p := DefaultPreferences()
	if err := json.Unmarshal(b, &p); err != nil {
		return Preferences{}, fmt.Errorf("preferences: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// SavePreferences writes atomically (tmp + rename).
func SavePreferences(path string, p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
