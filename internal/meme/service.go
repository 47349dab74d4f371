package meme

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"memebot/internal/storage"
	logx "memebot/pkg/logx"
)

// ErrSourceNotConfigured is returned before any network I/O when a caller
// asks for a source that is not in the configured lists.
var ErrSourceNotConfigured = errors.New("source not configured")

// Fetcher fetches and normalizes candidate posts for one source.
// Implemented by source.RedditAdapter and source.LemmyAdapter.
type Fetcher interface {
	Fetch(ctx context.Context, src Source, sortMode string) ([]Post, error)
}

// ServiceConfig is the orchestrator's static configuration. Apply() may
// swap it at runtime (config hot reload).
type ServiceConfig struct {
	RedditSources []Source
	LemmySources  []Source
	EnabledKinds  []SourceKind

	Defaults  SelectionConfig
	PrefsPath string
	SortMode  string // reddit listing sort; default "hot"

	// Per-source fetch timeouts. Reddit includes the relay budget.
	RedditTimeout time.Duration
	LemmyTimeout  time.Duration
}

func (c *ServiceConfig) withDefaults() {
	if c.SortMode == "" {
		c.SortMode = "hot"
	}
	if c.RedditTimeout <= 0 {
		c.RedditTimeout = 60 * time.Second
	}
	if c.LemmyTimeout <= 0 {
		c.LemmyTimeout = 15 * time.Second
	}
	if len(c.EnabledKinds) == 0 {
		c.EnabledKinds = []SourceKind{SourceReddit, SourceLemmy}
	}
}

// Service ties source selection, concurrent fetching and post selection
// into the two entry points: ad-hoc (RandomMeme) and scheduled
// (ScheduledMeme). Both run the identical pipeline; the scheduled one
// just reads its selection settings from the preferences file first.
type Service struct {
	mu  sync.RWMutex
	cfg ServiceConfig

	fetchers map[SourceKind]Fetcher
	picker   *Picker
	store    storage.Store // may be nil
	log      logx.Logger
	rng      Rand
}

func NewService(cfg ServiceConfig, fetchers map[SourceKind]Fetcher, picker *Picker, store storage.Store, rng Rand, log logx.Logger) *Service {
	cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:      cfg,
		fetchers: fetchers,
		picker:   picker,
		store:    store,
		log:      log,
		rng:      rng,
	}
}

// Apply swaps the orchestrator config (source lists, defaults, timeouts).
func (s *Service) Apply(cfg ServiceConfig) {
	cfg.withDefaults()
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Service) config() ServiceConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// RandomMeme serves an ad-hoc request. With override set, exactly that
// source is queried (it must be configured); otherwise one enabled source
// type is chosen at random and its sources sampled per the allow-list.
func (s *Service) RandomMeme(ctx context.Context, override *Source, allowNSFW bool) (Post, error) {
	cfg := s.config()
	selCfg := cfg.Defaults
	selCfg.AllowNSFW = allowNSFW

	var sources []Source
	if override != nil {
		if !s.isConfigured(cfg, *override) {
			return Post{}, fmt.Errorf("%w: %s", ErrSourceNotConfigured, override.Display())
		}
		sources = []Source{*override}
	} else {
		sources = s.sampleSources(cfg, selCfg)
	}
	return s.run(ctx, "manual", sources, selCfg)
}

// ScheduledMeme serves the recurring trigger. Selection settings come
// from the persisted preferences, then the same pipeline runs.
func (s *Service) ScheduledMeme(ctx context.Context) (Post, error) {
	cfg := s.config()
	prefs, err := LoadPreferences(cfg.PrefsPath)
	if err != nil {
		return Post{}, err
	}
	selCfg := prefs.SelectionConfig()
	sources := s.sampleSources(cfg, selCfg)
	return s.run(ctx, "scheduled", sources, selCfg)
}

func (s *Service) isConfigured(cfg ServiceConfig, src Source) bool {
	var list []Source
	switch src.Kind {
	case SourceReddit:
		list = cfg.RedditSources
	case SourceLemmy:
		list = cfg.LemmySources
	default:
		return false
	}
	for _, c := range list {
		if c.ID() == src.ID() {
			return true
		}
	}
	return false
}

// sampleSources picks one enabled source type at random (for variety),
// then samples that type's sources under its allow-list.
func (s *Service) sampleSources(cfg ServiceConfig, sel SelectionConfig) []Source {
	kinds := make([]SourceKind, 0, len(cfg.EnabledKinds))
	for _, k := range cfg.EnabledKinds {
		if len(s.availableFor(cfg, k)) > 0 && s.filterFor(sel, k).Kind != NoSources {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return nil
	}

	kind := kinds[s.rng.Intn(len(kinds))]
	return PickSources(s.availableFor(cfg, kind), s.filterFor(sel, kind), sel.MaxSources, s.rng)
}

func (s *Service) availableFor(cfg ServiceConfig, kind SourceKind) []Source {
	if kind == SourceLemmy {
		return cfg.LemmySources
	}
	return cfg.RedditSources
}

func (s *Service) filterFor(sel SelectionConfig, kind SourceKind) Filter {
	if kind == SourceLemmy {
		return sel.Lemmy
	}
	return sel.Reddit
}

type fetchResult struct {
	src   Source
	posts []Post
	err   error
}

// run is the shared pipeline: fan-out fetch, fan-in, merge, pick, audit.
func (s *Service) run(ctx context.Context, trigger string, sources []Source, selCfg SelectionConfig) (Post, error) {
	cfg := s.config()
	start := time.Now()

	if len(sources) == 0 {
		return Post{}, ErrEmptyPool
	}

	results := make(chan fetchResult, len(sources))
	for _, src := range sources {
		go func(src Source) {
			fetcher, ok := s.fetchers[src.Kind]
			if !ok {
				results <- fetchResult{src: src, err: fmt.Errorf("no fetcher for kind %q", src.Kind)}
				return
			}
			timeout := cfg.RedditTimeout
			if src.Kind == SourceLemmy {
				timeout = cfg.LemmyTimeout
			}
			fctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			posts, err := fetcher.Fetch(fctx, src, cfg.SortMode)
			results <- fetchResult{src: src, posts: posts, err: err}
		}(src)
	}

	// Fan-in. A failed source contributes nothing; the whole call only
	// fails if the merged pool is empty after filtering.
	var merged []Post
	for range sources {
		r := <-results
		if r.err != nil {
			s.log.Warn("source fetch failed",
				logx.String("source", r.src.Display()),
				logx.Err(r.err))
			continue
		}
		s.log.Debug("source fetched",
			logx.String("source", r.src.Display()),
			logx.Int("posts", len(r.posts)))
		merged = append(merged, r.posts...)
	}

	pick, err := s.picker.Pick(merged, selCfg)
	if err != nil {
		return Post{}, err
	}

	s.audit(ctx, trigger, pick, len(merged), selCfg, time.Since(start))
	s.log.Info("post selected",
		logx.String("trigger", trigger),
		logx.String("source", pick.Source),
		logx.Int("score", pick.Score),
		logx.Int("candidates", len(merged)),
		logx.Duration("took", time.Since(start)))
	return pick, nil
}

func (s *Service) audit(ctx context.Context, trigger string, p Post, candidates int, sel SelectionConfig, took time.Duration) {
	if s.store == nil {
		return
	}
	err := s.store.AppendSelection(ctx, storage.SelectionEntry{
		At:         time.Now(),
		Trigger:    trigger,
		Source:     p.Source,
		URL:        p.URL,
		Title:      p.Title,
		Score:      p.Score,
		NSFW:       p.NSFW,
		PoolSize:   sel.PoolSize,
		Candidates: candidates,
		TookMS:     took.Milliseconds(),
	})
	if err != nil {
		s.log.Debug("selection audit append failed", logx.Err(err))
	}
}
