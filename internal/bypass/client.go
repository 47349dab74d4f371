// Package bypass is the client for the anti-bot bypass relay
// (a FlareSolverr-compatible service). Sources that reject direct
// server-to-server requests are fetched through it.
package bypass

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	logx "memebot/pkg/logx"
)

var (
	// ErrUnavailable: relay down, misconfigured, or refusing the request.
	ErrUnavailable = errors.New("bypass relay unavailable")
	// ErrParse: relay answered but the payload shape is unusable.
	ErrParse = errors.New("bypass response unparseable")
)

type Config struct {
	// URL of the relay endpoint. Empty disables the client.
	URL string
	// Spacing is the minimum gap between relay calls. The relay solves
	// challenges with a real browser; hammering it gets the shared IP
	// flagged. Default 2s.
	Spacing time.Duration
	// SolveTimeout is sent to the relay as maxTimeout (its own solving
	// budget). Default 30s.
	SolveTimeout time.Duration
	// Budget bounds the whole HTTP round trip, which must outlast
	// SolveTimeout. Default 60s.
	Budget time.Duration
}

func (c *Config) withDefaults() {
	if c.Spacing <= 0 {
		c.Spacing = 2 * time.Second
	}
	if c.SolveTimeout <= 0 {
		c.SolveTimeout = 30 * time.Second
	}
	if c.Budget <= 0 {
		c.Budget = 60 * time.Second
	}
}

// Client is a transport-only concern: one relay call per Fetch, no
// caching. A single process-wide limiter enforces the inter-call
// spacing; concurrent callers queue on Wait rather than fail.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Budget},
		limiter: rate.NewLimiter(rate.Every(cfg.Spacing), 1),
		log:     log,
	}
}

type relayRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url"`
	MaxTimeout int64  `json:"maxTimeout"`
}

type relayResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Solution struct {
		Response string `json:"response"`
	} `json:"solution"`
}

// Fetch retrieves target through the relay and returns the upstream body
// (JSON text, unwrapped from any HTML shell the relay puts around it).
func (c *Client) Fetch(ctx context.Context, target string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.URL) == "" {
		return nil, fmt.Errorf("%w: relay URL not configured", ErrUnavailable)
	}

	// Queue behind other callers until the spacing allows another call.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(relayRequest{
		Cmd:        "request.get",
		URL:        target,
		MaxTimeout: c.cfg.SolveTimeout.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: relay returned %d", ErrUnavailable, resp.StatusCode)
	}

	var rr relayResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if rr.Status != "ok" {
		return nil, fmt.Errorf("%w: relay status %q: %s", ErrUnavailable, rr.Status, rr.Message)
	}

	body, err := extractPayload(rr.Solution.Response)
	if err != nil {
		return nil, err
	}

	c.log.Debug("relay fetch done",
		logx.String("url", target),
		logx.Int("bytes", len(body)),
		logx.Duration("took", time.Since(start)))
	return []byte(body), nil
}
