package scorer

import (
	"context"
	"fmt"
	"strings"

	"basegraph.app/gapengine/internal/model"
	"basegraph.app/gapengine/internal/textnorm"
)

const minIntroWords = 40

var (
	introHeadings      = []string{" introduction ", " overview ", " background ", " motivation "}
	conclusionHeadings = []string{" conclusion ", " conclusions ", " summary ", " key takeaways ", " takeaways ", " wrap up ", " recap "}
)

// criticalInformation checks the chapter states every critical term and has
// an opening and a closing section.
type criticalInformation struct{}

func NewCriticalInformation() Scorer {
	return &criticalInformation{}
}

func (s *criticalInformation) Category() model.GapCategory {
	return model.GapCategoryCriticalInformation
}

func (s *criticalInformation) Score(_ context.Context, c Content) model.DimensionResult {
	category := s.Category()
	if res, bad := unreadable(category, c); bad {
		return res
	}
	doc := c.Document

	var gaps []model.Gap
	terms := newTermMatcher(c.Chapter.CriticalTerms)
	missing := terms.Missing(doc.NormalizedText)
	for _, term := range missing {
		gaps = append(gaps, newGap(category, model.GapSeverityCritical,
			fmt.Sprintf("Critical information %q is missing", term),
			term))
	}

	checks := terms.Len() + 2
	passed := terms.Len() - len(missing)

	sections := doc.ProseSections()
	if hasIntroduction(sections) {
		passed++
	} else {
		gaps = append(gaps, newGap(category, model.GapSeverityHigh,
			"Chapter has no introduction", ""))
	}
	if hasConclusion(sections) {
		passed++
	} else {
		gaps = append(gaps, newGap(category, model.GapSeverityMedium,
			"Chapter has no conclusion or summary", ""))
	}

	return scored(category, float64(passed)/float64(checks), gaps)
}

func hasIntroduction(sections []Section) bool {
	if len(sections) == 0 {
		return false
	}
	first := sections[0]
	// Untitled opening prose, or prose directly under the chapter title.
	if (first.Heading == "" || first.Level == 1) && first.Words >= minIntroWords {
		return true
	}
	for _, sec := range sections {
		if headingMatches(sec.Heading, introHeadings) {
			return true
		}
	}
	return false
}

func hasConclusion(sections []Section) bool {
	for _, sec := range sections {
		if headingMatches(sec.Heading, conclusionHeadings) {
			return true
		}
	}
	return false
}

func headingMatches(heading string, candidates []string) bool {
	if heading == "" {
		return false
	}
	normalized := textnorm.Normalize(heading)
	for _, c := range candidates {
		if strings.Contains(normalized, c) {
			return true
		}
	}
	return false
}
