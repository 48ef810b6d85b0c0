package domain

import (
	"iter"
	"strings"
)

// Candidates yields query strings for n, most specific first: for each
// spelling variant, "place, region, country" and then "place, country".
// Empty components are skipped and duplicates are yielded once. The sequence
// is finite and may be iterated any number of times with identical results.
func (n NormalizedLocation) Candidates() iter.Seq[string] {
	return func(yield func(string) bool) {
		if n.Place == "" {
			return
		}
		variants := n.Variants
		if len(variants) == 0 {
			variants = []string{n.Place}
		}

		seen := make(map[string]struct{}, 2*len(variants))
		emit := func(parts ...string) bool {
			q := joinNonEmpty(parts...)
			if q == "" {
				return true
			}
			if _, dup := seen[q]; dup {
				return true
			}
			seen[q] = struct{}{}
			return yield(q)
		}

		for _, v := range variants {
			if !emit(v, n.Region, n.Country) {
				return
			}
			if !emit(v, n.Country) {
				return
			}
		}
	}
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, candidateSeparator)
}
