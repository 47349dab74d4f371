package meme

import (
	"errors"
	"fmt"
	"strings"
)

// Post is one normalized image post from an external community.
// Adapters build these from raw API responses; they are never mutated after.
//
// JSON tags match the legacy cache/wire shape ("subreddit" carries the
// source id even for non-reddit sources).
type Post struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Source    string `json:"subreddit"`
	Score     int    `json:"score"`
	Author    string `json:"author"`
	Permalink string `json:"permalink"`
	NSFW      bool   `json:"nsfw"`
}

type SourceKind string

const (
	SourceReddit SourceKind = "reddit"
	SourceLemmy  SourceKind = "lemmy"
)

// Source identifies one fetch target: a subreddit, or a Lemmy community
// on a specific instance.
type Source struct {
	Kind SourceKind

	// Reddit
	Name string

	// Lemmy
	Host      string
	Community string
}

func Reddit(name string) Source {
	return Source{Kind: SourceReddit, Name: name}
}

func Lemmy(host, community string) Source {
	return Source{Kind: SourceLemmy, Host: host, Community: community}
}

// ID returns the stable identifier used in cache keys and config lists:
// "<name>" for reddit, "<host>@<community>" for lemmy.
func (s Source) ID() string {
	if s.Kind == SourceLemmy {
		return s.Host + "@" + s.Community
	}
	return s.Name
}

// Display returns the human-facing label ("r/<name>" or "<host>@<community>").
func (s Source) Display() string {
	if s.Kind == SourceLemmy {
		return s.Host + "@" + s.Community
	}
	return "r/" + s.Name
}

func (s Source) IsZero() bool { return s.Kind == "" }

var errBadSource = errors.New("invalid source")

// ParseSource accepts "name", "r/name" (reddit) or "host@community" (lemmy).
func ParseSource(raw string) (Source, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return Source{}, fmt.Errorf("%w: empty", errBadSource)
	}
	if strings.Contains(v, "@") {
		host, community, _ := strings.Cut(v, "@")
		if host == "" || community == "" {
			return Source{}, fmt.Errorf("%w: %q (want host@community)", errBadSource, raw)
		}
		return Lemmy(host, community), nil
	}
	return Reddit(strings.TrimPrefix(v, "r/")), nil
}
