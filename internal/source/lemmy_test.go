package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"memebot/internal/meme"
	logx "memebot/pkg/logx"
)

const lemmyListingFixture = `{
  "posts": [
    {
      "post": {"name": "nice webp", "url": "https://img.host/a.webp", "ap_id": "https://lemmy.world/post/1", "nsfw": false},
      "counts": {"score": 42},
      "creator": {"name": "alice"}
    },
    {
      "post": {"name": "text only", "url": "", "ap_id": "https://lemmy.world/post/2"},
      "counts": {"score": 100},
      "creator": {"name": "bob"}
    },
    {
      "post": {"name": "article", "url": "https://blog.example/post", "ap_id": "https://lemmy.world/post/3"},
      "counts": {"score": 7},
      "creator": {"name": "carol"}
    },
    {
      "post": {"name": "spicy", "url": "https://img.host/b.png", "ap_id": "https://lemmy.world/post/4", "nsfw": true},
      "counts": {"score": 13},
      "creator": {"name": "dave"}
    }
  ]
}`

func lemmyStub(t *testing.T, status int, body string) *LemmyAdapter {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/post/list" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("community_name") != "memes" || q.Get("sort") != "Hot" || q.Get("limit") != "50" {
			t.Errorf("query = %v", q)
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "memebot/") {
			t.Errorf("user agent = %q", ua)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	a := NewLemmy(logx.Nop())
	a.baseURL = srv.URL
	return a
}

func TestLemmyFetchFiltersListing(t *testing.T) {
	t.Parallel()
	a := lemmyStub(t, http.StatusOK, lemmyListingFixture)

	posts, err := a.Fetch(context.Background(), meme.Lemmy("lemmy.world", "memes"), "hot")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2 image posts: %+v", len(posts), posts)
	}

	first := posts[0]
	if first.URL != "https://img.host/a.webp" {
		t.Fatalf("first = %+v", first)
	}
	if first.Source != "lemmy:lemmy.world@memes" {
		t.Fatalf("Source = %q", first.Source)
	}
	if first.Score != 42 || first.Author != "alice" {
		t.Fatalf("first = %+v", first)
	}
	if first.Permalink != "https://lemmy.world/post/1" {
		t.Fatalf("Permalink = %q", first.Permalink)
	}
	if !posts[1].NSFW {
		t.Fatal("nsfw flag lost")
	}
}

func TestLemmyFetchTruncatesLongTitles(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", 400)
	body := `{"posts":[{"post":{"name":"` + long + `","url":"https://img.host/a.png","ap_id":"https://l/p/1"},"counts":{"score":1},"creator":{"name":"a"}}]}`
	a := lemmyStub(t, http.StatusOK, body)

	posts, err := a.Fetch(context.Background(), meme.Lemmy("lemmy.world", "memes"), "hot")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if got := len([]rune(posts[0].Title)); got != 256 {
		t.Fatalf("title length = %d, want 256", got)
	}
}

func TestLemmyFetchNotFound(t *testing.T) {
	t.Parallel()
	a := lemmyStub(t, http.StatusNotFound, "")
	_, err := a.Fetch(context.Background(), meme.Lemmy("lemmy.world", "memes"), "hot")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLemmyFetchServerError(t *testing.T) {
	t.Parallel()
	a := lemmyStub(t, http.StatusBadGateway, "")
	if _, err := a.Fetch(context.Background(), meme.Lemmy("lemmy.world", "memes"), "hot"); err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestLemmyFetchRejectsWrongKind(t *testing.T) {
	t.Parallel()
	a := NewLemmy(logx.Nop())
	if _, err := a.Fetch(context.Background(), meme.Reddit("memes"), "hot"); err == nil {
		t.Fatal("expected error for reddit source")
	}
}
