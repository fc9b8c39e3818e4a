package scorer

import (
	"context"
	"fmt"

	"basegraph.app/gapengine/internal/model"
)

const longSectionWords = 300

// sourceCoverage checks that substantive sections are backed by citations.
type sourceCoverage struct {
	minSectionWords int
}

func NewSourceCoverage(minSectionWords int) Scorer {
	return &sourceCoverage{minSectionWords: minSectionWords}
}

func (s *sourceCoverage) Category() model.GapCategory {
	return model.GapCategorySourceCoverage
}

func (s *sourceCoverage) Score(_ context.Context, c Content) model.DimensionResult {
	category := s.Category()
	if res, bad := unreadable(category, c); bad {
		return res
	}
	doc := c.Document

	if len(doc.Citations) == 0 {
		return scored(category, 0, []model.Gap{
			newGap(category, model.GapSeverityHigh, "Chapter cites no sources", fmt.Sprintf("%d words without a citation", doc.Words)),
		})
	}

	var substantive []Section
	for _, sec := range doc.ProseSections() {
		if sec.Words >= s.minSectionWords {
			substantive = append(substantive, sec)
		}
	}
	if len(substantive) == 0 {
		gap := newGap(category, model.GapSeverityLow,
			"Chapter has no section long enough to assess citation coverage",
			fmt.Sprintf("%d citations across %d words", len(doc.Citations), doc.Words))
		return degraded(category, 0.5, []model.Gap{gap}, "no substantive sections")
	}

	var gaps []model.Gap
	cited := 0
	for _, sec := range substantive {
		if len(sec.Citations) > 0 {
			cited++
			continue
		}
		severity := model.GapSeverityMedium
		if sec.Words >= longSectionWords {
			severity = model.GapSeverityHigh
		}
		gaps = append(gaps, newGap(category, severity,
			fmt.Sprintf("Section %q makes claims without citing sources", sectionLabel(sec)),
			fmt.Sprintf("%s: %d words, 0 citations", sectionLabel(sec), sec.Words)))
	}

	return scored(category, float64(cited)/float64(len(substantive)), gaps)
}

func sectionLabel(sec Section) string {
	if sec.Heading == "" {
		return "Introduction"
	}
	return sec.Heading
}
