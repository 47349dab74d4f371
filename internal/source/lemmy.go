package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"memebot/internal/meme"
	logx "memebot/pkg/logx"
)

var lemmyExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

const lemmyUserAgent = "memebot/1.0"

// LemmyAdapter talks to lemmy instances directly; federated instances
// don't block server-to-server calls, so no relay is involved.
type LemmyAdapter struct {
	http    *http.Client
	baseURL string // override for tests; "" means https://<host>
	log     logx.Logger
}

func NewLemmy(log logx.Logger) *LemmyAdapter {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LemmyAdapter{
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		log: log,
	}
}

// Response shape: {"posts":[{"post":{...},"counts":{...},"creator":{...}}]}.
type lemmyListing struct {
	Posts []struct {
		Post struct {
			Name string `json:"name"`
			URL  string `json:"url"`
			ApID string `json:"ap_id"`
			NSFW bool   `json:"nsfw"`
		} `json:"post"`
		Counts struct {
			Score int `json:"score"`
		} `json:"counts"`
		Creator struct {
			Name string `json:"name"`
		} `json:"creator"`
	} `json:"posts"`
}

func (a *LemmyAdapter) Fetch(ctx context.Context, src meme.Source, sortMode string) ([]meme.Post, error) {
	if src.Kind != meme.SourceLemmy {
		return nil, fmt.Errorf("lemmy adapter got %q source", src.Kind)
	}
	_ = sortMode // lemmy listings are always requested Hot

	base := a.baseURL
	if base == "" {
		base = "https://" + src.Host
	}
	q := url.Values{}
	q.Set("community_name", src.Community)
	q.Set("sort", "Hot")
	q.Set("limit", "50")
	endpoint := base + "/api/v3/post/list?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", lemmyUserAgent)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Display(), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", src.Display(), ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s: lemmy API returned %d", src.Display(), resp.StatusCode)
	}

	var listing lemmyListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", src.Display(), err)
	}

	// Legacy flat source id keeps the "lemmy:" prefix so reddit names and
	// lemmy communities can share one string field.
	sourceID := "lemmy:" + src.ID()

	posts := make([]meme.Post, 0, len(listing.Posts))
	for _, item := range listing.Posts {
		if !hasImageExt(item.Post.URL, lemmyExts) {
			continue
		}
		posts = append(posts, meme.Post{
			URL:       item.Post.URL,
			Title:     truncateTitle(item.Post.Name, 256),
			Source:    sourceID,
			Score:     item.Counts.Score,
			Author:    item.Creator.Name,
			Permalink: item.Post.ApID,
			NSFW:      item.Post.NSFW,
		})
	}
	a.log.Info("lemmy listing fetched",
		logx.String("community", src.Display()),
		logx.Int("images", len(posts)))
	return posts, nil
}
