package dto

import (
	"time"

	"basegraph.app/gapengine/internal/model"
)

type SubmitGapAnalysisResponse struct {
	TaskID         int64          `json:"task_id,string"`
	ContentID      int64          `json:"content_id,string"`
	ContentVersion int64          `json:"content_version"`
	State          model.JobState `json:"state"`
	Deduplicated   bool           `json:"deduplicated"`
}

func ToSubmitGapAnalysisResponse(job *model.Job, created bool) *SubmitGapAnalysisResponse {
	return &SubmitGapAnalysisResponse{
		TaskID:         job.TaskID,
		ContentID:      job.ContentRef.ContentID,
		ContentVersion: job.ContentRef.ContentVersion,
		State:          job.State,
		Deduplicated:   !created,
	}
}

type JobResponse struct {
	TaskID         int64          `json:"task_id,string"`
	ContentID      int64          `json:"content_id,string"`
	ContentVersion int64          `json:"content_version"`
	State          model.JobState `json:"state"`
	Error          *string        `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
}

func ToJobResponse(job *model.Job) *JobResponse {
	return &JobResponse{
		TaskID:         job.TaskID,
		ContentID:      job.ContentRef.ContentID,
		ContentVersion: job.ContentRef.ContentVersion,
		State:          job.State,
		Error:          job.Error,
		CreatedAt:      job.CreatedAt,
		StartedAt:      job.StartedAt,
		FinishedAt:     job.FinishedAt,
	}
}

type GapAnalysisResponse struct {
	ID                   int64                                       `json:"id,string"`
	TaskID               int64                                       `json:"task_id,string"`
	ContentID            int64                                       `json:"content_id,string"`
	ContentVersion       int64                                       `json:"content_version"`
	CompletenessScore    float64                                     `json:"completeness_score"`
	TotalGaps            int                                         `json:"total_gaps"`
	SeverityDistribution map[model.GapSeverity]int                   `json:"severity_distribution"`
	GapCategoriesSummary map[model.GapCategory]int                   `json:"gap_categories_summary"`
	TopRecommendations   []model.Recommendation                      `json:"top_recommendations"`
	RequiresRevision     bool                                        `json:"requires_revision"`
	LowConfidence        bool                                        `json:"low_confidence"`
	DimensionStatuses    map[model.GapCategory]model.DimensionStatus `json:"dimension_statuses"`
	Gaps                 []model.Gap                                 `json:"gaps,omitempty"`
	AnalyzedAt           time.Time                                   `json:"analyzed_at"`
}

// ToGapAnalysisResponse maps a result for the API. The full gap list is only
// included when withGaps is set.
func ToGapAnalysisResponse(r *model.GapAnalysisResult, withGaps bool) *GapAnalysisResponse {
	resp := &GapAnalysisResponse{
		ID:                   r.ID,
		TaskID:               r.TaskID,
		ContentID:            r.ContentRef.ContentID,
		ContentVersion:       r.ContentRef.ContentVersion,
		CompletenessScore:    r.CompletenessScore,
		TotalGaps:            r.TotalGaps,
		SeverityDistribution: r.SeverityDistribution,
		GapCategoriesSummary: r.GapCategoriesSummary,
		TopRecommendations:   r.TopRecommendations,
		RequiresRevision:     r.RequiresRevision,
		LowConfidence:        r.LowConfidence,
		DimensionStatuses:    r.DimensionStatuses,
		AnalyzedAt:           r.AnalyzedAt,
	}
	if resp.TopRecommendations == nil {
		resp.TopRecommendations = []model.Recommendation{}
	}
	if withGaps {
		resp.Gaps = r.Gaps
	}
	return resp
}

type GapAnalysisHistoryResponse struct {
	Results []*GapAnalysisResponse `json:"results"`
}
