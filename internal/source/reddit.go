package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"memebot/internal/bypass"
	"memebot/internal/cache"
	"memebot/internal/meme"
	logx "memebot/pkg/logx"
)

// redditExts / redditHosts: what counts as a directly embeddable image
// in a reddit listing.
var (
	redditExts  = []string{".jpg", ".jpeg", ".png", ".gif"}
	redditHosts = []string{"i.imgur.com"}
)

// RedditAdapter fetches subreddit listings through the bypass relay
// (reddit rejects direct server-to-server calls outright) and caches the
// normalized result per (subreddit, sort).
type RedditAdapter struct {
	client *bypass.Client
	cache  *cache.Cache
	ttl    time.Duration
	log    logx.Logger
}

const DefaultRedditTTL = time.Hour

func NewReddit(client *bypass.Client, c *cache.Cache, ttl time.Duration, log logx.Logger) *RedditAdapter {
	if ttl <= 0 {
		ttl = DefaultRedditTTL
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &RedditAdapter{client: client, cache: c, ttl: ttl, log: log}
}

// Listing shape: {"data":{"children":[{"data":{...}}]}}.
type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Ups       int    `json:"ups"`
	Author    string `json:"author"`
	Permalink string `json:"permalink"`
	Over18    bool   `json:"over_18"`
	Stickied  bool   `json:"stickied"`
	IsVideo   bool   `json:"is_video"`
	IsGallery bool   `json:"is_gallery"`
}

func (a *RedditAdapter) Fetch(ctx context.Context, src meme.Source, sortMode string) ([]meme.Post, error) {
	if src.Kind != meme.SourceReddit {
		return nil, fmt.Errorf("reddit adapter got %q source", src.Kind)
	}
	if sortMode == "" {
		sortMode = "hot"
	}
	key := src.Name + "_" + sortMode
	return a.cache.GetOrFetch(ctx, key, a.ttl, func(ctx context.Context) ([]meme.Post, error) {
		return a.fetchListing(ctx, src.Name, sortMode)
	})
}

func (a *RedditAdapter) fetchListing(ctx context.Context, name, sortMode string) ([]meme.Post, error) {
	url := fmt.Sprintf("https://www.reddit.com/r/%s/%s.json?limit=50&t=day", name, sortMode)
	body, err := a.client.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("r/%s: %w", name, err)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("r/%s: %w: %v", name, bypass.ErrParse, err)
	}

	posts := make([]meme.Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		p := child.Data
		if p.Stickied || p.IsVideo || p.IsGallery {
			continue
		}
		if !hasImageExt(p.URL, redditExts) && !hasImageHost(p.URL, redditHosts) {
			continue
		}
		posts = append(posts, meme.Post{
			URL:       p.URL,
			Title:     p.Title,
			Source:    name,
			Score:     p.Ups,
			Author:    p.Author,
			Permalink: "https://reddit.com" + p.Permalink,
			NSFW:      p.Over18,
		})
	}
	a.log.Info("reddit listing fetched",
		logx.String("subreddit", name),
		logx.String("sort", sortMode),
		logx.Int("images", len(posts)))
	return posts, nil
}
