// Package transport defines the outbound delivery surface. The meme
// engine only knows how to produce posts; pushing them to a chat
// platform happens behind the Sink interface so the engine stays
// testable without network access.
package transport

import (
	"context"

	"memebot/internal/meme"
)

// Sink delivers a selected post to a destination channel. target is a
// platform-specific channel identifier; an empty target means the
// adapter's configured default.
type Sink interface {
	Post(ctx context.Context, target string, p meme.Post) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, target string, p meme.Post) error

func (f SinkFunc) Post(ctx context.Context, target string, p meme.Post) error {
	return f(ctx, target, p)
}
