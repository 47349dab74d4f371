// Package source adapts external community APIs (reddit listings via the
// bypass relay, lemmy via direct HTTP) into normalized meme.Posts.
package source

import (
	"errors"
	"strings"
)

// ErrNotFound: the community/board does not exist upstream.
var ErrNotFound = errors.New("source not found upstream")

// hasImageExt matches extensions as substrings of the lowercased URL,
// not suffixes: direct links often carry query strings after the
// extension.
func hasImageExt(raw string, exts []string) bool {
	v := strings.ToLower(raw)
	if v == "" {
		return false
	}
	for _, ext := range exts {
		if strings.Contains(v, ext) {
			return true
		}
	}
	return false
}

func hasImageHost(raw string, hosts []string) bool {
	v := strings.ToLower(raw)
	for _, host := range hosts {
		if strings.Contains(v, host) {
			return true
		}
	}
	return false
}

func truncateTitle(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
