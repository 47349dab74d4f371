package telegram

import (
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"

	"memebot/internal/meme"
	logx "memebot/pkg/logx"
)

func TestDisplaySource(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"memes", "r/memes"},
		{"lemmy:lemmy.world@memes", "lemmy.world@memes"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := DisplaySource(tt.in); got != tt.want {
			t.Errorf("DisplaySource(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCaption(t *testing.T) {
	t.Parallel()
	p := meme.Post{
		URL:    "https://i.redd.it/a.jpg",
		Title:  "a fine meme",
		Source: "memes",
		Score:  123,
		Author: "alice",
	}
	got := Caption(p)
	for _, want := range []string{"a fine meme", "r/memes", "score 123", "by alice"} {
		if !strings.Contains(got, want) {
			t.Errorf("caption %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "[NSFW]") {
		t.Error("caption carries NSFW tag for a SFW post")
	}

	p.NSFW = true
	if !strings.HasPrefix(Caption(p), "[NSFW] ") {
		t.Error("NSFW caption must lead with the tag")
	}
}

func TestCaptionOmitsEmptyAuthor(t *testing.T) {
	t.Parallel()
	got := Caption(meme.Post{Title: "t", Source: "memes", Score: 1})
	if strings.Contains(got, "by ") {
		t.Errorf("caption %q must not mention an empty author", got)
	}
}

func TestRecipient(t *testing.T) {
	t.Parallel()
	r, err := recipient("-1001234567890")
	if err != nil {
		t.Fatalf("recipient error: %v", err)
	}
	if _, ok := r.(tele.ChatID); !ok {
		t.Fatalf("numeric target must map to tele.ChatID, got %T", r)
	}
	if r.Recipient() != "-1001234567890" {
		t.Fatalf("Recipient() = %q", r.Recipient())
	}

	for _, target := range []string{"@memechannel", "memechannel"} {
		r, err := recipient(target)
		if err != nil {
			t.Fatalf("recipient(%q) error: %v", target, err)
		}
		if r.Recipient() != "@memechannel" {
			t.Fatalf("Recipient() = %q, want @memechannel", r.Recipient())
		}
	}

	if _, err := recipient("  "); err == nil {
		t.Fatal("empty target must error")
	}
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}
