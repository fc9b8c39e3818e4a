// Package textnorm folds chapter text into a comparable form shared by the
// scorers and the recommendation generator.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC, Unicode case folding, and collapses every run of
// non letter/digit runes into one space. The result is padded with a space on
// both ends so whole-word lookups can search for " term ".
func Normalize(s string) string {
	// Casers carry state and are not safe to share across goroutines.
	folded := cases.Fold().String(norm.NFKC.String(s))

	var b strings.Builder
	b.Grow(len(folded) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// Tokens returns the normalized words of s.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// Collapse trims s and squeezes internal whitespace without folding case.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
