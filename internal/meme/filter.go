package meme

import (
	"encoding/json"
	"fmt"
)

type FilterKind int

const (
	// AllSources is the zero value: an absent allow-list means "everything".
	AllSources FilterKind = iota
	NoSources
	ExplicitSources
)

// Filter is a source allow-list. The legacy wire encoding is a nullable
// string list: null = all, [] = none, ["a","b"] = exactly those. The
// tagged representation keeps the three cases apart at the type level.
type Filter struct {
	Kind    FilterKind
	Sources []Source
}

func FilterAll() Filter  { return Filter{Kind: AllSources} }
func FilterNone() Filter { return Filter{Kind: NoSources} }

func FilterExplicit(sources ...Source) Filter {
	return Filter{Kind: ExplicitSources, Sources: sources}
}

func (f Filter) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case AllSources:
		return []byte("null"), nil
	case NoSources:
		return []byte("[]"), nil
	default:
		ids := make([]string, 0, len(f.Sources))
		for _, s := range f.Sources {
			ids = append(ids, s.ID())
		}
		return json.Marshal(ids)
	}
}

func (f *Filter) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = FilterAll()
		return nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return fmt.Errorf("source filter: %w", err)
	}
	if len(ids) == 0 {
		*f = FilterNone()
		return nil
	}
	sources := make([]Source, 0, len(ids))
	for _, id := range ids {
		s, err := ParseSource(id)
		if err != nil {
			return fmt.Errorf("source filter: %w", err)
		}
		sources = append(sources, s)
	}
	*f = FilterExplicit(sources...)
	return nil
}

// Equal reports whether two filters admit the same sources.
func (f Filter) Equal(other Filter) bool {
	if f.Kind != other.Kind {
		return false
	}
	if f.Kind != ExplicitSources {
		return true
	}
	if len(f.Sources) != len(other.Sources) {
		return false
	}
	for i := range f.Sources {
		if f.Sources[i] != other.Sources[i] {
			return false
		}
	}
	return true
}

// Apply narrows available down to the allow-listed subset.
// Explicit entries are returned as-is even if absent from available;
// the caller decides whether unknown sources are an error.
func (f Filter) Apply(available []Source) []Source {
	switch f.Kind {
	case NoSources:
		return nil
	case ExplicitSources:
		return f.Sources
	default:
		return available
	}
}
