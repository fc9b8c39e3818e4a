package scorer

import (
	"strings"

	"basegraph.app/gapengine/internal/textnorm"
	ahocorasick "github.com/cloudflare/ahocorasick"
)

// termMatcher finds which of a fixed list of terms occur as whole words in a
// normalized text, in one pass over the text.
type termMatcher struct {
	terms   []string // original spelling, deduplicated
	matcher *ahocorasick.Matcher
}

func newTermMatcher(terms []string) *termMatcher {
	seen := make(map[string]bool, len(terms))
	m := &termMatcher{}
	patterns := make([]string, 0, len(terms))

	for _, term := range terms {
		normalized := textnorm.Normalize(term)
		if strings.TrimSpace(normalized) == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		m.terms = append(m.terms, textnorm.Collapse(term))
		patterns = append(patterns, normalized)
	}

	if len(patterns) > 0 {
		m.matcher = ahocorasick.NewStringMatcher(patterns)
	}
	return m
}

func (m *termMatcher) Len() int {
	return len(m.terms)
}

// Missing returns the terms absent from text, in input order. text must come
// from textnorm.Normalize.
func (m *termMatcher) Missing(text string) []string {
	if m.matcher == nil {
		return nil
	}

	found := make([]bool, len(m.terms))
	for _, idx := range m.matcher.Match([]byte(text)) {
		if idx >= 0 && idx < len(found) {
			found[idx] = true
		}
	}

	var missing []string
	for i, term := range m.terms {
		if !found[i] {
			missing = append(missing, term)
		}
	}
	return missing
}
