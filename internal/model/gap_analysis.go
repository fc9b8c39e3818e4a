package model

import "time"

// ContentRef identifies the exact chapter snapshot an analysis targets.
type ContentRef struct {
	ContentID      int64 `json:"content_id"`
	ContentVersion int64 `json:"content_version"`
}

type EstimatedEffort string

const (
	EstimatedEffortLow    EstimatedEffort = "low"
	EstimatedEffortMedium EstimatedEffort = "medium"
	EstimatedEffortHigh   EstimatedEffort = "high"
)

type RecommendationAction string

const (
	ActionAddMissingConcepts     RecommendationAction = "add_missing_concepts"
	ActionAddSupportingSources   RecommendationAction = "add_supporting_sources"
	ActionRebalanceSections      RecommendationAction = "rebalance_sections"
	ActionCiteRecentSources      RecommendationAction = "cite_recent_sources"
	ActionAddCriticalInformation RecommendationAction = "add_critical_information"
	ActionReviewContent          RecommendationAction = "review_content"
)

// Recommendation is derived from a result's gaps and only ever persisted
// inside its parent GapAnalysisResult.
type Recommendation struct {
	Priority        int                  `json:"priority"`
	Action          RecommendationAction `json:"action"`
	Category        GapCategory          `json:"category"`
	Severity        GapSeverity          `json:"severity"`
	Description     string               `json:"description"`
	EstimatedEffort EstimatedEffort      `json:"estimated_effort"`
	GapIDs          []string             `json:"gap_ids"`
}

// GapAnalysisResult is written once per successful job and never updated.
type GapAnalysisResult struct {
	ID                   int64                           `json:"id"`
	TaskID               int64                           `json:"task_id"`
	ContentRef           ContentRef                      `json:"content_ref"`
	CompletenessScore    float64                         `json:"completeness_score"`
	TotalGaps            int                             `json:"total_gaps"`
	SeverityDistribution map[GapSeverity]int             `json:"severity_distribution"`
	GapCategoriesSummary map[GapCategory]int             `json:"gap_categories_summary"`
	TopRecommendations   []Recommendation                `json:"top_recommendations"`
	RequiresRevision     bool                            `json:"requires_revision"`
	LowConfidence        bool                            `json:"low_confidence"`
	DimensionStatuses    map[GapCategory]DimensionStatus `json:"dimension_statuses"`
	Gaps                 []Gap                           `json:"gaps"`
	AnalyzedAt           time.Time                       `json:"analyzed_at"`
}
