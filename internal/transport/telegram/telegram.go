// Package telegram posts selected memes to a Telegram channel via
// telebot. It is a pure delivery adapter; no inbound update handling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"memebot/internal/meme"
	logx "memebot/pkg/logx"
)

type Config struct {
	Token string
	// Channel is the default destination: a numeric chat id ("-100123...")
	// or an @channelname.
	Channel     string
	SendTimeout time.Duration
}

type Sink struct {
	cfg Config
	bot *tele.Bot
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Sink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	// No poller: this bot only sends. Uploads by URL are cheap for the
	// API but the timeout still bounds a wedged connection.
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: cfg.SendTimeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sink{cfg: cfg, bot: b, log: log}, nil
}

// Post sends the image with a caption to target, falling back to the
// configured default channel when target is empty. Animated posts
// (.gif) go out as documents so Telegram keeps the animation.
func (s *Sink) Post(ctx context.Context, target string, p meme.Post) error {
	if target == "" {
		target = s.cfg.Channel
	}
	rcpt, err := recipient(target)
	if err != nil {
		return err
	}

	if ctx != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	caption := Caption(p)
	var payload any
	if strings.HasSuffix(strings.ToLower(p.URL), ".gif") {
		payload = &tele.Document{File: tele.FromURL(p.URL), Caption: caption}
	} else {
		payload = &tele.Photo{File: tele.FromURL(p.URL), Caption: caption}
	}

	start := time.Now()
	_, err = s.bot.Send(rcpt, payload)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	s.log.Info("meme posted",
		logx.String("target", target),
		logx.String("source", DisplaySource(p.Source)),
		logx.Int("score", p.Score),
		logx.Duration("took", time.Since(start)))
	return nil
}

// Caption renders the standard post caption: title, origin, score,
// author, with an NSFW marker when flagged.
func Caption(p meme.Post) string {
	var b strings.Builder
	if p.NSFW {
		b.WriteString("[NSFW] ")
	}
	b.WriteString(p.Title)
	b.WriteString("\n\n")
	b.WriteString(DisplaySource(p.Source))
	fmt.Fprintf(&b, " | score %d", p.Score)
	if p.Author != "" {
		fmt.Fprintf(&b, " | by %s", p.Author)
	}
	return b.String()
}

// DisplaySource renders the stored flat source id for humans:
// "memes" -> "r/memes", "lemmy:lemmy.world@memes" -> "lemmy.world@memes".
func DisplaySource(src string) string {
	if rest, ok := strings.CutPrefix(src, "lemmy:"); ok {
		return rest
	}
	if src == "" {
		return "unknown"
	}
	return "r/" + src
}

// channelName addresses a channel by @username.
type channelName string

func (c channelName) Recipient() string { return string(c) }

func recipient(target string) (tele.Recipient, error) {
	t := strings.TrimSpace(target)
	if t == "" {
		return nil, errors.New("telegram channel is empty")
	}
	if id, err := strconv.ParseInt(t, 10, 64); err == nil {
		return tele.ChatID(id), nil
	}
	if !strings.HasPrefix(t, "@") {
		t = "@" + t
	}
	return channelName(t), nil
}
