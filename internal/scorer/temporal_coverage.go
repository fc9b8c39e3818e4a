package scorer

import (
	"context"
	"fmt"

	"basegraph.app/gapengine/internal/model"
)

const minRecentShare = 0.3

// temporalCoverage checks the cited sources are current relative to the
// chapter's own last update. Using the snapshot's timestamp instead of the
// wall clock keeps the score stable for a given version.
type temporalCoverage struct {
	windowYears int
}

func NewTemporalCoverage(windowYears int) Scorer {
	return &temporalCoverage{windowYears: windowYears}
}

func (s *temporalCoverage) Category() model.GapCategory {
	return model.GapCategoryTemporalCoverage
}

func (s *temporalCoverage) Score(_ context.Context, c Content) model.DimensionResult {
	category := s.Category()
	if res, bad := unreadable(category, c); bad {
		return res
	}

	var years []int
	newest := 0
	for _, cite := range c.Document.Citations {
		if y := cite.Newest(); y > 0 {
			years = append(years, y)
			if y > newest {
				newest = y
			}
		}
	}

	if len(years) == 0 {
		gap := newGap(category, model.GapSeverityLow,
			"No dated sources found; recency cannot be assessed",
			fmt.Sprintf("%d citations without a year", len(c.Document.Citations)))
		return degraded(category, 0.5, []model.Gap{gap}, "no dated sources")
	}

	var gaps []model.Gap
	reference := c.Chapter.UpdatedAt.Year()
	fallback := c.Chapter.UpdatedAt.IsZero()
	if fallback {
		reference = newest
	}

	recent := 0
	for _, y := range years {
		if y >= reference-s.windowYears {
			recent++
		}
	}
	share := float64(recent) / float64(len(years))
	age := reference - newest
	if age < 0 {
		age = 0
	}

	if age > 2*s.windowYears {
		gaps = append(gaps, newGap(category, model.GapSeverityHigh,
			fmt.Sprintf("All sources are more than %d years old", 2*s.windowYears),
			fmt.Sprintf("newest source %d, chapter updated %d", newest, reference)))
	} else if share < minRecentShare {
		gaps = append(gaps, newGap(category, model.GapSeverityMedium,
			"Few sources are recent",
			fmt.Sprintf("%d of %d dated sources from the last %d years", recent, len(years), s.windowYears)))
	}

	freshness := 1 - float64(age)/float64(2*s.windowYears)
	score := 0.7*share + 0.3*clamp01(freshness)

	if fallback {
		gaps = append(gaps, newGap(category, model.GapSeverityLow,
			"Chapter has no update date; recency measured against its newest source", ""))
		return degraded(category, score, gaps, "chapter update date missing")
	}
	return scored(category, score, gaps)
}
