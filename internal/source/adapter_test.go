package source

import (
	"strings"
	"testing"
)

func TestHasImageExt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		url  string
		want bool
	}{
		{"https://i.redd.it/a.jpg", true},
		{"https://i.redd.it/a.JPG", true},
		{"https://i.redd.it/a.png?width=640", true},
		{"https://i.redd.it/a.gif", true},
		{"https://v.redd.it/clip", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := hasImageExt(tt.url, redditExts); got != tt.want {
			t.Errorf("hasImageExt(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
	// webp counts for lemmy but not reddit.
	if hasImageExt("https://img/a.webp", redditExts) {
		t.Error("webp must not match the reddit extension list")
	}
	if !hasImageExt("https://img/a.webp", lemmyExts) {
		t.Error("webp must match the lemmy extension list")
	}
}

func TestHasImageHost(t *testing.T) {
	t.Parallel()
	if !hasImageHost("https://i.imgur.com/abc", redditHosts) {
		t.Error("imgur direct link not recognized")
	}
	if hasImageHost("https://example.com/abc", redditHosts) {
		t.Error("unrelated host recognized")
	}
}

func TestTruncateTitle(t *testing.T) {
	t.Parallel()
	if got := truncateTitle("short", 256); got != "short" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("ü", 300)
	got := truncateTitle(long, 256)
	if len([]rune(got)) != 256 {
		t.Fatalf("rune length = %d, want 256", len([]rune(got)))
	}
}
