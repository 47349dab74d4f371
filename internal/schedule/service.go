// Package schedule owns the daily posting trigger. A cron entry derived
// from the schedule preferences file fires once a day; on fire the meme
// engine runs a scheduled selection and the result goes to the sink.
package schedule

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"memebot/internal/meme"
	"memebot/internal/transport"
	logx "memebot/pkg/logx"
)

// Engine is the slice of the meme service the scheduler needs.
type Engine interface {
	ScheduledMeme(ctx context.Context) (meme.Post, error)
}

type Config struct {
	// PrefsPath is the schedule preferences JSON file.
	PrefsPath string
	// DefaultChannel is used when preferences carry no channelTarget.
	DefaultChannel string
	// RunTimeout bounds a single fire (selection plus delivery).
	RunTimeout time.Duration
}

type Service struct {
	cfg    Config
	engine Engine
	sink   transport.Sink
	log    logx.Logger

	mu      sync.Mutex
	c       *cron.Cron
	entry   cron.EntryID
	prefs   meme.Preferences
	started bool

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

func New(cfg Config, engine Engine, sink transport.Sink, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	return &Service{cfg: cfg, engine: engine, sink: sink, log: log}
}

// Start loads preferences, registers the cron entry when enabled, and
// begins watching the preferences file for changes.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true

	prefs, err := meme.LoadPreferences(s.cfg.PrefsPath)
	if err != nil {
		// Malformed prefs must not take down the bot; run with defaults
		// until the file is fixed (the watcher picks up the fix).
		s.log.Warn("schedule preferences unreadable, using defaults",
			logx.String("path", s.cfg.PrefsPath), logx.Err(err))
		prefs = meme.DefaultPreferences()
	}
	s.prefs = prefs
	s.c = cron.New()
	s.registerLocked()
	s.c.Start()
	s.mu.Unlock()

	wctx, cancel := context.WithCancel(ctx)
	s.watchCancel = cancel
	s.watchDone = make(chan struct{})
	go func() {
		defer close(s.watchDone)
		s.watchPrefs(wctx)
	}()

	s.log.Info("scheduler started",
		logx.Bool("enabled", prefs.Enabled),
		logx.Int("hour", prefs.Hour),
		logx.Int("minute", prefs.Minute))
	return nil
}

// Stop halts the cron runner and the preferences watcher. It waits for
// an in-flight fire up to ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.started = false
	cancel := s.watchCancel
	done := s.watchDone
	s.watchCancel = nil
	s.watchDone = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}
	s.log.Info("scheduler stopped")
}

// Preferences returns the currently active schedule preferences.
func (s *Service) Preferences() meme.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// Reload re-reads the preferences file and re-registers the cron entry.
func (s *Service) Reload() {
	prefs, err := meme.LoadPreferences(s.cfg.PrefsPath)
	if err != nil {
		s.log.Warn("schedule preferences reload failed",
			logx.String("path", s.cfg.PrefsPath), logx.Err(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefs.Equal(prefs) {
		return
	}
	s.prefs = prefs
	if s.c == nil {
		return
	}
	s.registerLocked()
	s.log.Info("schedule updated",
		logx.Bool("enabled", prefs.Enabled),
		logx.Int("hour", prefs.Hour),
		logx.Int("minute", prefs.Minute))
}

// registerLocked replaces the cron entry to match s.prefs.
func (s *Service) registerLocked() {
	if s.entry != 0 {
		s.c.Remove(s.entry)
		s.entry = 0
	}
	if !s.prefs.Enabled {
		return
	}
	spec := fmt.Sprintf("%d %d * * *", s.prefs.Minute, s.prefs.Hour)
	id, err := s.c.AddFunc(spec, s.fire)
	if err != nil {
		// Only reachable with out-of-range hour/minute, which Validate rejects.
		s.log.Error("cron registration failed", logx.String("spec", spec), logx.Err(err))
		return
	}
	s.entry = id
}

func (s *Service) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()

	s.mu.Lock()
	target := s.prefs.ChannelTarget
	s.mu.Unlock()
	if target == "" {
		target = s.cfg.DefaultChannel
	}

	start := time.Now()
	post, err := s.engine.ScheduledMeme(ctx)
	if err != nil {
		// Next day's tick retries; nothing to deliver today.
		s.log.Warn("scheduled selection failed", logx.Err(err))
		return
	}
	if err := s.sink.Post(ctx, target, post); err != nil {
		s.log.Warn("scheduled delivery failed",
			logx.String("target", target), logx.Err(err))
		return
	}
	s.log.Info("scheduled meme delivered",
		logx.String("url", post.URL),
		logx.String("source", post.Source),
		logx.Duration("took", time.Since(start)))
}

// watchPrefs reloads preferences when the file changes. Same debounce
// discipline as the config watcher; the prefs file is small and often
// rewritten whole by tools.
func (s *Service) watchPrefs(ctx context.Context) {
	dir := filepath.Dir(s.cfg.PrefsPath)
	file := filepath.Base(s.cfg.PrefsPath)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Warn("prefs watch unavailable", logx.Err(err))
		return
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		s.log.Warn("prefs watch unavailable", logx.String("dir", dir), logx.Err(err))
		return
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(250*time.Millisecond, s.Reload)
			timerMu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			if err != nil {
				s.log.Warn("prefs watch error", logx.Err(err))
			}
		}
	}
}
