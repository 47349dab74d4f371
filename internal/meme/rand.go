package meme

import (
	"math/rand"
	"sync"
)

// Rand is the randomness source behind source sampling and post picking.
// A value shared between components running concurrent selections must
// be safe for concurrent use; *math/rand.Rand satisfies the interface
// for single-goroutine use.
type Rand interface {
	Intn(n int) int
	Perm(n int) []int
}

// NewLockedRand returns a Rand that a Picker and a Service can share
// across concurrent selections.
func NewLockedRand(seed int64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Perm(n int) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Perm(n)
}
