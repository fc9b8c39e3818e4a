package model

// GapCategory is one of the fixed analysis dimensions. Adding a dimension
// means extending this list together with the weight and action tables.
type GapCategory string

const (
	GapCategoryContentCompleteness GapCategory = "content_completeness"
	GapCategorySourceCoverage      GapCategory = "source_coverage"
	GapCategorySectionBalance      GapCategory = "section_balance"
	GapCategoryTemporalCoverage    GapCategory = "temporal_coverage"
	GapCategoryCriticalInformation GapCategory = "critical_information"
)

// GapCategories lists every dimension in declaration order.
var GapCategories = []GapCategory{
	GapCategoryContentCompleteness,
	GapCategorySourceCoverage,
	GapCategorySectionBalance,
	GapCategoryTemporalCoverage,
	GapCategoryCriticalInformation,
}

func (c GapCategory) Valid() bool {
	for _, known := range GapCategories {
		if c == known {
			return true
		}
	}
	return false
}

type GapSeverity string

const (
	GapSeverityCritical GapSeverity = "critical"
	GapSeverityHigh     GapSeverity = "high"
	GapSeverityMedium   GapSeverity = "medium"
	GapSeverityLow      GapSeverity = "low"
)

// GapSeverities is ordered from most to least urgent.
var GapSeverities = []GapSeverity{
	GapSeverityCritical,
	GapSeverityHigh,
	GapSeverityMedium,
	GapSeverityLow,
}

// Rank orders severities: 0 is the most urgent. Unknown values sort last.
func (s GapSeverity) Rank() int {
	for i, known := range GapSeverities {
		if s == known {
			return i
		}
	}
	return len(GapSeverities)
}

// Gap is a single deficiency reported by one scorer. Immutable once produced.
type Gap struct {
	ID          string      `json:"id"`
	Category    GapCategory `json:"category"`
	Severity    GapSeverity `json:"severity"`
	Description string      `json:"description"`
	Evidence    string      `json:"evidence,omitempty"`
}

type DimensionStatus string

const (
	DimensionStatusOK       DimensionStatus = "ok"
	DimensionStatusDegraded DimensionStatus = "degraded"
	DimensionStatusFailed   DimensionStatus = "failed"
)

// DimensionResult is the output of exactly one scorer invocation.
type DimensionResult struct {
	Category GapCategory     `json:"category"`
	Score    float64         `json:"score"`
	Gaps     []Gap           `json:"gaps"`
	Status   DimensionStatus `json:"status"`
	Error    string          `json:"error,omitempty"`
}
