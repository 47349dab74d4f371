package meme

// PickSources decides which sources a request queries.
//
//   - AllSources: sample min(maxSources, len(available)) uniformly at
//     random without replacement.
//   - NoSources: nothing (explicit opt-out).
//   - Explicit: exactly the listed sources. maxSources is ignored; an
//     explicit list already expresses intent.
func PickSources(available []Source, allow Filter, maxSources int, rng Rand) []Source {
	switch allow.Kind {
	case NoSources:
		return nil
	case ExplicitSources:
		return append([]Source(nil), allow.Sources...)
	}

	n := maxSources
	if n <= 0 || n > len(available) {
		n = len(available)
	}
	if n == 0 {
		return nil
	}
	perm := rng.Perm(len(available))
	out := make([]Source, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, available[idx])
	}
	return out
}
