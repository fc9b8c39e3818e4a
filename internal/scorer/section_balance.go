package scorer

import (
	"context"
	"fmt"
	"math"

	"basegraph.app/gapengine/internal/model"
)

const (
	underdevelopedRatio = 0.25
	dominantRatio       = 2.5
)

// sectionBalance compares section lengths against the chapter mean.
type sectionBalance struct{}

func NewSectionBalance() Scorer {
	return &sectionBalance{}
}

func (s *sectionBalance) Category() model.GapCategory {
	return model.GapCategorySectionBalance
}

func (s *sectionBalance) Score(_ context.Context, c Content) model.DimensionResult {
	category := s.Category()
	if res, bad := unreadable(category, c); bad {
		return res
	}

	sections := c.Document.ProseSections()
	if len(sections) < 2 {
		gap := newGap(category, model.GapSeverityMedium,
			"Chapter has no section structure",
			fmt.Sprintf("%d section(s)", len(sections)))
		return degraded(category, 0.5, []model.Gap{gap}, "fewer than two sections")
	}

	var total float64
	for _, sec := range sections {
		total += float64(sec.Words)
	}
	mean := total / float64(len(sections))

	var variance float64
	for _, sec := range sections {
		d := float64(sec.Words) - mean
		variance += d * d
	}
	cv := math.Sqrt(variance/float64(len(sections))) / mean

	var gaps []model.Gap
	for _, sec := range sections {
		ratio := float64(sec.Words) / mean
		evidence := fmt.Sprintf("%s: %d words, chapter mean %.0f", sectionLabel(sec), sec.Words, mean)
		switch {
		case ratio < underdevelopedRatio:
			gaps = append(gaps, newGap(category, model.GapSeverityLow,
				fmt.Sprintf("Section %q is underdeveloped", sectionLabel(sec)), evidence))
		case ratio > dominantRatio:
			gaps = append(gaps, newGap(category, model.GapSeverityMedium,
				fmt.Sprintf("Section %q dominates the chapter", sectionLabel(sec)), evidence))
		}
	}

	return scored(category, 1-cv/2, gaps)
}
