// Package app wires the bot together: config, logging, the bypass
// client, source adapters, cache, shown tracker, selection engine,
// delivery sink, scheduler and the optional audit store.
package app

import (
	"context"
	"sync"
	"time"

	"memebot/internal/bypass"
	"memebot/internal/cache"
	"memebot/internal/config"
	"memebot/internal/meme"
	"memebot/internal/observability/pprof"
	"memebot/internal/schedule"
	"memebot/internal/shown"
	"memebot/internal/source"
	"memebot/internal/storage"
	"memebot/internal/transport"
	"memebot/internal/transport/telegram"
	logx "memebot/pkg/logx"
)

const (
	defaultCachePath = "data/meme_cache.json"
	defaultShownPath = "data/shown_memes.json"
	defaultPrefsPath = "data/meme_prefs.json"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	cache   *cache.Cache
	tracker *shown.Tracker
	store   storage.Store // nil when disabled

	engine *meme.Service
	sink   transport.Sink
	sched  *schedule.Service
	pprof  *pprof.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bypassCfg, err := mapBypassConfig(cfg)
	if err != nil {
		return nil, err
	}
	relay := bypass.New(bypassCfg, log.With(logx.String("comp", "bypass")))

	cacheTTL, err := mapCacheTTL(cfg)
	if err != nil {
		return nil, err
	}
	cachePath := cfg.Cache.Path
	if cachePath == "" {
		cachePath = defaultCachePath
	}
	listingCache := cache.New(cachePath, cacheTTL, log.With(logx.String("comp", "cache")))

	shownWindow, err := mapShownWindow(cfg)
	if err != nil {
		return nil, err
	}
	shownPath := cfg.Shown.Path
	if shownPath == "" {
		shownPath = defaultShownPath
	}
	tracker := shown.New(shownPath, shownWindow, log.With(logx.String("comp", "shown")))

	svcCfg, err := mapServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	if svcCfg.PrefsPath == "" {
		svcCfg.PrefsPath = defaultPrefsPath
	}

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("selection audit enabled", logx.String("driver", sc.Driver))
	}

	// The picker and the service draw from this concurrently.
	rng := meme.NewLockedRand(time.Now().UnixNano())
	picker := meme.NewPicker(tracker, rng, log.With(logx.String("comp", "picker")))
	fetchers := map[meme.SourceKind]meme.Fetcher{
		meme.SourceReddit: source.NewReddit(relay, listingCache, cacheTTL, log.With(logx.String("comp", "reddit"))),
		meme.SourceLemmy:  source.NewLemmy(log.With(logx.String("comp", "lemmy"))),
	}
	engine := meme.NewService(svcCfg, fetchers, picker, store, rng, log.With(logx.String("comp", "meme")))

	sink, err := telegram.New(telegram.Config{
		Token:   cfg.Telegram.Token,
		Channel: cfg.Telegram.Channel,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	sched := schedule.New(schedule.Config{
		PrefsPath:      svcCfg.PrefsPath,
		DefaultChannel: cfg.Telegram.Channel,
	}, engine, sink, log.With(logx.String("comp", "schedule")))

	pprofSvc := pprof.New(mapPprofConfig(cfg), log.With(logx.String("comp", "pprof")))

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		cache:   listingCache,
		tracker: tracker,
		store:   store,
		engine:  engine,
		sink:    sink,
		sched:   sched,
		pprof:   pprofSvc,
	}, nil
}

// Engine exposes the selection engine for ad-hoc callers.
func (a *App) Engine() *meme.Service { return a.engine }

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	// Reject a hot-reloaded config before committing it.
	a.cfgm.SetValidator(func(ctx context.Context, cfg *config.Config) error {
		if _, err := mapBypassConfig(cfg); err != nil {
			return err
		}
		if _, err := mapCacheTTL(cfg); err != nil {
			return err
		}
		if _, err := mapShownWindow(cfg); err != nil {
			return err
		}
		if _, err := mapServiceConfig(cfg); err != nil {
			return err
		}
		if _, _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		return nil
	})

	if err := a.pprof.Start(); err != nil {
		cancel()
		return err
	}
	if err := a.sched.Start(runCtx); err != nil {
		cancel()
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx)
	}()

	sub := a.cfgm.Subscribe(4)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(cfg)
			}
		}
	}()

	a.log.Info("started")
	return nil
}

// applyConfig hot-applies what can change at runtime: log level/sinks
// and the selection engine's source lists and defaults. Bypass, storage
// and telegram changes need a restart; say so instead of half-applying.
func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	svcCfg, err := mapServiceConfig(cfg)
	if err != nil {
		// Validator already vetted this config; mapping should not fail.
		a.log.Warn("config apply failed; keeping previous", logx.Err(err))
		return
	}
	if svcCfg.PrefsPath == "" {
		svcCfg.PrefsPath = defaultPrefsPath
	}
	a.engine.Apply(svcCfg)
	a.log.Info("config applied", logx.String("level", mapLoggingLevel(cfg)))
}

func (a *App) Stop(ctx context.Context) {
	start := time.Now()
	a.log.Info("stopping")

	if a.cancel != nil {
		a.cancel()
	}
	a.sched.Stop(ctx)
	a.pprof.Stop(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	if err := a.cache.Save(); err != nil {
		a.log.Warn("cache save failed", logx.Err(err))
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}
	a.log.Info("stopped", logx.Duration("took", time.Since(start)))
	_ = a.logs.Close()
}
