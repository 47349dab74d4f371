package app

import (
	"fmt"
	"strings"
	"time"

	"memebot/internal/bypass"
	"memebot/internal/config"
	"memebot/internal/meme"
	"memebot/internal/observability/pprof"
	"memebot/internal/storage"
)

// Mapping helpers translate the file-backed config (string durations,
// flat lists) into the typed component configs. They are also the
// validation surface for hot reload: a config that fails to map is
// rejected before anything is applied.

func mapLoggingLevel(cfg *config.Config) string { return cfg.Logging.Level }

func mapBypassConfig(cfg *config.Config) (bypass.Config, error) {
	spacing, err := config.ParseDurationOrDefault("bypass.spacing", cfg.Bypass.Spacing, 2*time.Second)
	if err != nil {
		return bypass.Config{}, err
	}
	solve, err := config.ParseDurationOrDefault("bypass.solve_timeout", cfg.Bypass.SolveTimeout, 30*time.Second)
	if err != nil {
		return bypass.Config{}, err
	}
	budget, err := config.ParseDurationOrDefault("bypass.budget", cfg.Bypass.Budget, 60*time.Second)
	if err != nil {
		return bypass.Config{}, err
	}
	if budget < solve {
		return bypass.Config{}, fmt.Errorf("bypass.budget %s is shorter than bypass.solve_timeout %s", budget, solve)
	}
	return bypass.Config{
		URL:          cfg.Bypass.URL,
		Spacing:      spacing,
		SolveTimeout: solve,
		Budget:       budget,
	}, nil
}

func mapCacheTTL(cfg *config.Config) (time.Duration, error) {
	return config.ParseDurationOrDefault("cache.ttl", cfg.Cache.TTL, time.Hour)
}

func mapShownWindow(cfg *config.Config) (time.Duration, error) {
	return config.ParseDurationOrDefault("shown.window", cfg.Shown.Window, 24*time.Hour)
}

// mapServiceConfig builds the orchestrator config from the sources and
// select sections. Empty source lists fall back to the shipped defaults.
func mapServiceConfig(cfg *config.Config) (meme.ServiceConfig, error) {
	redditNames := cfg.Sources.Reddit
	if len(redditNames) == 0 {
		redditNames = config.DefaultRedditSources
	}
	lemmyNames := cfg.Sources.Lemmy
	if len(lemmyNames) == 0 {
		lemmyNames = config.DefaultLemmySources
	}
	enabled := cfg.Sources.Enabled
	if len(enabled) == 0 {
		enabled = config.DefaultEnabledKinds
	}

	reddit := make([]meme.Source, 0, len(redditNames))
	for _, name := range redditNames {
		s, err := meme.ParseSource(name)
		if err != nil {
			return meme.ServiceConfig{}, fmt.Errorf("sources.reddit: %w", err)
		}
		reddit = append(reddit, s)
	}
	lemmy := make([]meme.Source, 0, len(lemmyNames))
	for _, name := range lemmyNames {
		s, err := meme.ParseSource(name)
		if err != nil {
			return meme.ServiceConfig{}, fmt.Errorf("sources.lemmy: %w", err)
		}
		lemmy = append(lemmy, s)
	}

	kinds := make([]meme.SourceKind, 0, len(enabled))
	for _, k := range enabled {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "reddit":
			kinds = append(kinds, meme.SourceReddit)
		case "lemmy":
			kinds = append(kinds, meme.SourceLemmy)
		default:
			return meme.ServiceConfig{}, fmt.Errorf("sources.enabled: unknown source type %q", k)
		}
	}

	redditTimeout, err := config.ParseDurationOrDefault("select.reddit_timeout", cfg.Sel.RedditTimeout, 60*time.Second)
	if err != nil {
		return meme.ServiceConfig{}, err
	}
	lemmyTimeout, err := config.ParseDurationOrDefault("select.lemmy_timeout", cfg.Sel.LemmyTimeout, 15*time.Second)
	if err != nil {
		return meme.ServiceConfig{}, err
	}

	defaults := meme.SelectionConfig{
		MinScore:   cfg.Sel.MinScore,
		PoolSize:   cfg.Sel.PoolSize,
		MaxSources: cfg.Sel.MaxSources,
		AllowNSFW:  true,
		Reddit:     meme.FilterAll(),
		Lemmy:      meme.FilterAll(),
	}
	if defaults.PoolSize <= 0 {
		defaults.PoolSize = 50
	}
	if defaults.MaxSources <= 0 {
		defaults.MaxSources = 3
	}

	return meme.ServiceConfig{
		RedditSources: reddit,
		LemmySources:  lemmy,
		EnabledKinds:  kinds,
		Defaults:      defaults,
		PrefsPath:     cfg.Schedule.PrefsPath,
		SortMode:      cfg.Sel.SortMode,
		RedditTimeout: redditTimeout,
		LemmyTimeout:  lemmyTimeout,
	}, nil
}

// mapStorageConfig returns (config, enabled). Driver "none" or a nil
// section keeps the audit trail off.
func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{
		Driver:      driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, true, nil
}

func mapPprofConfig(cfg *config.Config) pprof.Config {
	return pprof.Config{Enabled: cfg.Pprof.Enabled, Addr: cfg.Pprof.Addr}
}
