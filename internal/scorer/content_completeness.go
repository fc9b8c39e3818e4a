package scorer

import (
	"context"
	"fmt"

	"basegraph.app/gapengine/internal/model"
)

// contentCompleteness checks the chapter covers the key concepts from its
// outline and reaches a minimum length.
type contentCompleteness struct {
	minWords int
}

func NewContentCompleteness(minWords int) Scorer {
	return &contentCompleteness{minWords: minWords}
}

func (s *contentCompleteness) Category() model.GapCategory {
	return model.GapCategoryContentCompleteness
}

func (s *contentCompleteness) Score(_ context.Context, c Content) model.DimensionResult {
	category := s.Category()
	if res, bad := unreadable(category, c); bad {
		return res
	}
	doc := c.Document

	var gaps []model.Gap
	lengthScore := clamp01(float64(doc.Words) / float64(s.minWords))
	if doc.Words < s.minWords {
		gaps = append(gaps, newGap(category, model.GapSeverityMedium,
			"Chapter is shorter than expected",
			fmt.Sprintf("%d of %d words", doc.Words, s.minWords)))
	}

	concepts := newTermMatcher(c.Chapter.KeyConcepts)
	if concepts.Len() == 0 {
		gaps = append(gaps, newGap(category, model.GapSeverityLow,
			"No key concepts are defined for this chapter; completeness estimated from length only", ""))
		return degraded(category, lengthScore, gaps, "no key concepts defined")
	}

	missing := concepts.Missing(doc.NormalizedText)
	severity := model.GapSeverityMedium
	if len(missing)*2 > concepts.Len() {
		severity = model.GapSeverityHigh
	}
	for _, concept := range missing {
		gaps = append(gaps, newGap(category, severity,
			fmt.Sprintf("Key concept %q is not covered", concept),
			concept))
	}

	coverage := float64(concepts.Len()-len(missing)) / float64(concepts.Len())
	return scored(category, 0.8*coverage+0.2*lengthScore, gaps)
}
