package service

import "strings"

// MatchFilters reports whether a highlight satisfies every present filter.
// Predicates compose with AND: the query matches case-insensitively as a
// substring of title or content; types/domains/skills each require a
// non-empty intersection with the record's field; OnlyWithMetrics requires a
// non-empty metrics list. Absent fields impose no constraint.
//
// Both store implementations route search through this predicate so the
// semantics cannot diverge between backends.
func MatchFilters(h Highlight, f SearchFilters) bool {
	if q := strings.TrimSpace(f.Query); q != "" {
		needle := strings.ToLower(q)
		if !strings.Contains(strings.ToLower(h.Title), needle) &&
			!strings.Contains(strings.ToLower(h.Content), needle) {
			return false
		}
	}

	if len(f.Types) > 0 && !containsType(f.Types, h.Type) {
		return false
	}

	if len(f.Domains) > 0 && !intersects(h.Domains, f.Domains) {
		return false
	}

	if len(f.Skills) > 0 && !intersects(h.Skills, f.Skills) {
		return false
	}

	if f.OnlyWithMetrics && len(h.Metrics) == 0 {
		return false
	}

	return true
}

// FilterHighlights returns the highlights matching the filters, preserving
// input order.
func FilterHighlights(items []Highlight, f SearchFilters) []Highlight {
	out := make([]Highlight, 0, len(items))
	for _, h := range items {
		if MatchFilters(h, f) {
			out = append(out, h)
		}
	}
	return out
}

func containsType(types []HighlightType, t HighlightType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func intersects(have, want []string) bool {
	if len(have) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(have))
	for _, v := range have {
		set[strings.ToLower(v)] = struct{}{}
	}
	for _, v := range want {
		if _, ok := set[strings.ToLower(v)]; ok {
			return true
		}
	}
	return false
}
