package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"memebot/internal/meme"
	logx "memebot/pkg/logx"
)

func writeGarbage(path string) error {
	return os.WriteFile(path, []byte("{not json"), 0o644)
}

func fixedFetch(posts []meme.Post, err error, calls *int) func(context.Context) ([]meme.Post, error) {
	return func(context.Context) ([]meme.Post, error) {
		*calls++
		return posts, err
	}
}

func TestGetOrFetchCachesWithinTTL(t *testing.T) {
	t.Parallel()
	c := New(filepath.Join(t.TempDir(), "cache.json"), time.Hour, logx.Nop())
	posts := []meme.Post{{URL: "http://img/a.png", Score: 1}}

	var calls int
	for i := 0; i < 3; i++ {
		got, err := c.GetOrFetch(context.Background(), "memes_hot", time.Hour, fixedFetch(posts, nil, &calls))
		if err != nil {
			t.Fatalf("GetOrFetch error: %v", err)
		}
		if len(got) != 1 || got[0].URL != "http://img/a.png" {
			t.Fatalf("got %+v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch called %d times, want 1", calls)
	}
}

func TestGetOrFetchExpiryRefetches(t *testing.T) {
	t.Parallel()
	c := New(filepath.Join(t.TempDir(), "cache.json"), time.Hour, logx.Nop())

	now := time.Now()
	c.now = func() time.Time { return now }

	var calls int
	if _, err := c.GetOrFetch(context.Background(), "k", time.Minute, fixedFetch([]meme.Post{{URL: "v1"}}, nil, &calls)); err != nil {
		t.Fatal(err)
	}

	// Move past the TTL; the next call must hit the fetcher again.
	now = now.Add(2 * time.Minute)
	got, err := c.GetOrFetch(context.Background(), "k", time.Minute, fixedFetch([]meme.Post{{URL: "v2"}}, nil, &calls))
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("fetch called %d times, want 2", calls)
	}
	if got[0].URL != "v2" {
		t.Fatalf("got %q, want refreshed value", got[0].URL)
	}
}

func TestGetOrFetchServesStaleOnFailure(t *testing.T) {
	t.Parallel()
	c := New(filepath.Join(t.TempDir(), "cache.json"), time.Hour, logx.Nop())

	now := time.Now()
	c.now = func() time.Time { return now }

	var calls int
	if _, err := c.GetOrFetch(context.Background(), "k", time.Minute, fixedFetch([]meme.Post{{URL: "old"}}, nil, &calls)); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Hour)

	got, err := c.GetOrFetch(context.Background(), "k", time.Minute,
		fixedFetch(nil, errors.New("relay down"), &calls))
	if err != nil {
		t.Fatalf("stale fallback must not error, got %v", err)
	}
	if len(got) != 1 || got[0].URL != "old" {
		t.Fatalf("got %+v, want the stale entry", got)
	}
}

func TestGetOrFetchErrorWithoutFallback(t *testing.T) {
	t.Parallel()
	c := New(filepath.Join(t.TempDir(), "cache.json"), time.Hour, logx.Nop())
	var calls int
	wantErr := errors.New("relay down")
	_, err := c.GetOrFetch(context.Background(), "k", time.Minute, fixedFetch(nil, wantErr, &calls))
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want the fetch error", err)
	}
}

func TestCachePersistsAcrossReload(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(path, time.Hour, logx.Nop())

	var calls int
	posts := []meme.Post{{URL: "http://img/a.png", Title: "t", Source: "memes", Score: 3}}
	if _, err := c.GetOrFetch(context.Background(), "memes_hot", time.Hour, fixedFetch(posts, nil, &calls)); err != nil {
		t.Fatal(err)
	}

	// A fresh instance must serve from disk without fetching.
	c2 := New(path, time.Hour, logx.Nop())
	if c2.Len() != 1 {
		t.Fatalf("reloaded Len = %d, want 1", c2.Len())
	}
	got, err := c2.GetOrFetch(context.Background(), "memes_hot", time.Hour,
		fixedFetch(nil, errors.New("must not fetch"), &calls))
	if err != nil {
		t.Fatalf("GetOrFetch error: %v", err)
	}
	if got[0].Source != "memes" || got[0].Score != 3 {
		t.Fatalf("got %+v", got[0])
	}
}

func TestLoadDiscardsExpiredEntries(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cache.json")

	c := New(path, time.Hour, logx.Nop())
	old := time.Now().Add(-2 * time.Hour)
	c.now = func() time.Time { return old }
	var calls int
	if _, err := c.GetOrFetch(context.Background(), "stale", time.Hour, fixedFetch([]meme.Post{{URL: "x"}}, nil, &calls)); err != nil {
		t.Fatal(err)
	}

	c2 := New(path, time.Hour, logx.Nop())
	if c2.Len() != 0 {
		t.Fatalf("Len = %d, want expired entries dropped at load", c2.Len())
	}
}

func TestConcurrentSavesLeaveParsableFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(path, time.Hour, logx.Nop())

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				key := fmt.Sprintf("sub%d_%d_hot", g, i)
				posts := []meme.Post{{URL: "http://img/" + key + ".png", Score: i}}
				if _, err := c.GetOrFetch(context.Background(), key, time.Hour, fixedFetch(posts, nil, new(int))); err != nil {
					t.Errorf("GetOrFetch %s: %v", key, err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	c2 := New(path, time.Hour, logx.Nop())
	if c2.Len() != 8*20 {
		t.Fatalf("Len = %d after reload, want %d", c2.Len(), 8*20)
	}
}

func TestCacheMalformedFileStartsEmpty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := writeGarbage(path); err != nil {
		t.Fatal(err)
	}
	c := New(path, time.Hour, logx.Nop())
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}
