package meme

import (
	"errors"
	"sort"

	logx "memebot/pkg/logx"
)

// ErrEmptyPool means no candidate survived the score/NSFW filters.
// It is the only selection error surfaced to callers.
var ErrEmptyPool = errors.New("no eligible posts in candidate pool")

// SelectionConfig is immutable per call.
type SelectionConfig struct {
	MinScore   int
	MaxSources int
	PoolSize   int
	AllowNSFW  bool

	Reddit Filter
	Lemmy  Filter
}

// ShownTracker is the recency-exclusion set the picker consults.
// Implemented by shown.Tracker.
type ShownTracker interface {
	SeenRecently(url string) bool
	Mark(url string)
	Clear()
}

// Picker selects one post from a merged candidate pool.
//
// Selection order is fixed: score floor, NSFW policy, recency exclusion
// (with exhaustion recovery), sort by score, truncate to pool size,
// uniform random pick. Score decides pool membership only, not pick
// weight, so high-score posts don't monopolize the outcome.
type Picker struct {
	tracker ShownTracker
	log     logx.Logger
	rng     Rand
}

func NewPicker(tracker ShownTracker, rng Rand, log logx.Logger) *Picker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Picker{tracker: tracker, rng: rng, log: log}
}

func (p *Picker) Pick(candidates []Post, cfg SelectionConfig) (Post, error) {
	filtered := make([]Post, 0, len(candidates))
	for _, c := range candidates {
		if cfg.MinScore > 0 && c.Score < cfg.MinScore {
			continue
		}
		if c.NSFW && !cfg.AllowNSFW {
			continue
		}
		filtered = append(filtered, c)
	}
	if len(filtered) == 0 {
		return Post{}, ErrEmptyPool
	}

	fresh := make([]Post, 0, len(filtered))
	for _, c := range filtered {
		if !p.tracker.SeenRecently(c.URL) {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		// Exhaustion recovery: everything eligible was shown within the
		// window. Returning something beats strict recency, so this call
		// ignores the exclusion and the tracker starts over.
		p.log.Info("all eligible posts shown recently; clearing shown tracker",
			logx.Int("candidates", len(filtered)))
		p.tracker.Clear()
		fresh = filtered
	}

	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].Score > fresh[j].Score })

	n := len(fresh)
	if cfg.PoolSize > 0 && cfg.PoolSize < n {
		n = cfg.PoolSize
	}
	pool := fresh[:n]

	pick := pool[p.rng.Intn(len(pool))]
	p.tracker.Mark(pick.URL)
	return pick, nil
}
