// Package pprof runs the optional profiling HTTP server. It binds to
// loopback by default and refuses non-loopback addresses outright; this
// bot has no auth layer to gate a public listener behind.
package pprof

import (
	"context"
	"errors"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strings"
	"sync"
	"time"

	logx "memebot/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string
}

type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger

	ln   net.Listener
	srv  *http.Server
	done chan struct{}
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, log: log}
}

// Start is a no-op when disabled. Listen errors are returned so a typo
// in the addr is visible at boot rather than silently ignored.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.srv != nil {
		return nil
	}

	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		addr = "127.0.0.1:6060"
	}
	if !isLoopbackAddr(addr) {
		return errors.New("pprof: refusing non-loopback addr " + addr)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", hpprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", hpprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", hpprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", hpprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", hpprof.Trace)

	srv := &http.Server{Handler: mux, ReadTimeout: 10 * time.Second}
	s.ln = ln
	s.srv = srv
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("pprof server exited", logx.Err(err))
		}
	}(s.done)

	s.log.Info("pprof started", logx.String("addr", ln.Addr().String()))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	done := s.done
	s.srv = nil
	s.ln = nil
	s.done = nil
	s.mu.Unlock()

	if srv == nil {
		return
	}
	_ = srv.Shutdown(ctx)
	_ = srv.Close()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	s.log.Info("pprof stopped")
}

func isLoopbackAddr(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	h = strings.TrimSpace(h)
	if h == "" {
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
