// Package aggregate merges per-dimension scorer output into one weighted
// completeness score with gap statistics.
package aggregate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"basegraph.app/gapengine/internal/model"
)

var (
	ErrAllScorersFailed = errors.New("all scorers failed")
	ErrInvalidWeights   = errors.New("invalid dimension weights")
)

const (
	DefaultRevisionThreshold = 0.70

	weightTolerance = 1e-6
	// Fewer usable dimensions than this marks the result low-confidence.
	minConfidentDimensions = 2
)

// Weights holds one positive weight per dimension, summing to 1.
type Weights map[model.GapCategory]float64

func DefaultWeights() Weights {
	return Weights{
		model.GapCategoryContentCompleteness: 0.30,
		model.GapCategorySourceCoverage:      0.25,
		model.GapCategorySectionBalance:      0.15,
		model.GapCategoryTemporalCoverage:    0.15,
		model.GapCategoryCriticalInformation: 0.15,
	}
}

// NewWeights validates raw category weights as read from configuration.
func NewWeights(raw map[string]float64) (Weights, error) {
	w := make(Weights, len(raw))
	for k, v := range raw {
		category := model.GapCategory(k)
		if !category.Valid() {
			return nil, fmt.Errorf("%w: unknown dimension %q", ErrInvalidWeights, k)
		}
		w[category] = v
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w Weights) Validate() error {
	var sum float64
	for _, category := range model.GapCategories {
		v, ok := w[category]
		if !ok {
			return fmt.Errorf("%w: missing weight for %s", ErrInvalidWeights, category)
		}
		if math.IsNaN(v) || v <= 0 {
			return fmt.Errorf("%w: weight for %s must be positive, got %v", ErrInvalidWeights, category, v)
		}
		sum += v
	}
	if len(w) != len(model.GapCategories) {
		return fmt.Errorf("%w: expected %d dimensions, got %d", ErrInvalidWeights, len(model.GapCategories), len(w))
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

type Aggregator struct {
	weights   Weights
	threshold float64
}

func New(weights Weights, revisionThreshold float64) (*Aggregator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(revisionThreshold) || revisionThreshold < 0 || revisionThreshold > 1 {
		return nil, fmt.Errorf("revision threshold %v outside [0,1]", revisionThreshold)
	}
	return &Aggregator{weights: weights, threshold: revisionThreshold}, nil
}

// Summary is the aggregated view of one job's dimension results, before
// recommendations are attached.
type Summary struct {
	CompletenessScore    float64
	TotalGaps            int
	SeverityDistribution map[model.GapSeverity]int
	GapCategoriesSummary map[model.GapCategory]int
	RequiresRevision     bool
	LowConfidence        bool
	DimensionStatuses    map[model.GapCategory]model.DimensionStatus
	Gaps                 []model.Gap
}

// Aggregate computes the weighted mean over non-failed dimensions,
// renormalized by the weight mass that is actually present. A dimension with
// no result at all counts as failed.
func (a *Aggregator) Aggregate(results []model.DimensionResult) (Summary, error) {
	byCategory := make(map[model.GapCategory]model.DimensionResult, len(results))
	for _, r := range results {
		if r.Category.Valid() {
			byCategory[r.Category] = r
		}
	}

	s := Summary{
		SeverityDistribution: map[model.GapSeverity]int{},
		GapCategoriesSummary: map[model.GapCategory]int{},
		DimensionStatuses:    make(map[model.GapCategory]model.DimensionStatus, len(model.GapCategories)),
		Gaps:                 []model.Gap{},
	}

	var weighted, mass float64
	available := 0
	for _, category := range model.GapCategories {
		r, ok := byCategory[category]
		if !ok || r.Status == model.DimensionStatusFailed {
			s.DimensionStatuses[category] = model.DimensionStatusFailed
			continue
		}
		s.DimensionStatuses[category] = r.Status
		available++

		w := a.weights[category]
		weighted += w * clamp01(r.Score)
		mass += w

		for _, g := range r.Gaps {
			s.Gaps = append(s.Gaps, g)
			s.SeverityDistribution[g.Severity]++
			s.GapCategoriesSummary[g.Category]++
		}
	}

	if available == 0 {
		return Summary{}, ErrAllScorersFailed
	}

	s.CompletenessScore = clamp01(weighted / mass)
	s.TotalGaps = len(s.Gaps)
	s.LowConfidence = available < minConfidentDimensions
	s.RequiresRevision = s.SeverityDistribution[model.GapSeverityCritical] > 0 || s.CompletenessScore < a.threshold

	sort.SliceStable(s.Gaps, func(i, j int) bool {
		return s.Gaps[i].Severity.Rank() < s.Gaps[j].Severity.Rank()
	})
	return s, nil
}

func (a *Aggregator) Threshold() float64 {
	return a.threshold
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
