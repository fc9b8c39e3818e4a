package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"basegraph.app/gapengine/common/id"
	"basegraph.app/gapengine/core/db/sqlc"
	"basegraph.app/gapengine/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type resultStore struct {
	queries *sqlc.Queries
}

func newResultStore(queries *sqlc.Queries) ResultStore {
	return &resultStore{queries: queries}
}

// Save appends a result row. ID and AnalyzedAt are filled in when zero.
func (s *resultStore) Save(ctx context.Context, result *model.GapAnalysisResult) error {
	if result.ID == 0 {
		result.ID = id.New()
	}
	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = time.Now().UTC()
	}

	params, err := toInsertParams(result)
	if err != nil {
		return err
	}
	row, err := s.queries.InsertGapAnalysisResult(ctx, params)
	if err != nil {
		return err
	}
	saved, err := toResultModel(row)
	if err != nil {
		return err
	}
	*result = *saved
	return nil
}

func (s *resultStore) GetLatest(ctx context.Context, contentID int64) (*model.GapAnalysisResult, error) {
	row, err := s.queries.GetLatestGapAnalysisResult(ctx, contentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toResultModel(row)
}

func (s *resultStore) GetLatestForVersion(ctx context.Context, contentID, version int64) (*model.GapAnalysisResult, error) {
	row, err := s.queries.GetLatestGapAnalysisResultForVersion(ctx, sqlc.GetLatestGapAnalysisResultForVersionParams{
		ContentID:      contentID,
		ContentVersion: version,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toResultModel(row)
}

func (s *resultStore) GetHistory(ctx context.Context, contentID int64, limit int) ([]model.GapAnalysisResult, error) {
	rows, err := s.queries.ListGapAnalysisResultsByContent(ctx, sqlc.ListGapAnalysisResultsByContentParams{
		ContentID: contentID,
		Limit:     int32(limit),
	})
	if err != nil {
		return nil, err
	}
	results := make([]model.GapAnalysisResult, 0, len(rows))
	for _, row := range rows {
		r, err := toResultModel(row)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, nil
}

func toInsertParams(r *model.GapAnalysisResult) (sqlc.InsertGapAnalysisResultParams, error) {
	p := sqlc.InsertGapAnalysisResultParams{
		ID:                r.ID,
		TaskID:            r.TaskID,
		ContentID:         r.ContentRef.ContentID,
		ContentVersion:    r.ContentRef.ContentVersion,
		CompletenessScore: r.CompletenessScore,
		TotalGaps:         int32(r.TotalGaps),
		RequiresRevision:  r.RequiresRevision,
		LowConfidence:     r.LowConfidence,
		AnalyzedAt:        pgtype.Timestamptz{Time: r.AnalyzedAt, Valid: true},
	}

	var err error
	if p.SeverityDistribution, err = encodeJSON("severity_distribution", r.SeverityDistribution); err != nil {
		return p, err
	}
	if p.GapCategoriesSummary, err = encodeJSON("gap_categories_summary", r.GapCategoriesSummary); err != nil {
		return p, err
	}
	if p.TopRecommendations, err = encodeJSON("top_recommendations", r.TopRecommendations); err != nil {
		return p, err
	}
	if p.DimensionStatuses, err = encodeJSON("dimension_statuses", r.DimensionStatuses); err != nil {
		return p, err
	}
	if p.Gaps, err = encodeJSON("gaps", r.Gaps); err != nil {
		return p, err
	}
	return p, nil
}

func toResultModel(row sqlc.GapAnalysisResult) (*model.GapAnalysisResult, error) {
	r := &model.GapAnalysisResult{
		ID:     row.ID,
		TaskID: row.TaskID,
		ContentRef: model.ContentRef{
			ContentID:      row.ContentID,
			ContentVersion: row.ContentVersion,
		},
		CompletenessScore: row.CompletenessScore,
		TotalGaps:         int(row.TotalGaps),
		RequiresRevision:  row.RequiresRevision,
		LowConfidence:     row.LowConfidence,
		AnalyzedAt:        row.AnalyzedAt.Time,
	}

	if err := decodeJSON("severity_distribution", row.SeverityDistribution, &r.SeverityDistribution); err != nil {
		return nil, err
	}
	if err := decodeJSON("gap_categories_summary", row.GapCategoriesSummary, &r.GapCategoriesSummary); err != nil {
		return nil, err
	}
	if err := decodeJSON("top_recommendations", row.TopRecommendations, &r.TopRecommendations); err != nil {
		return nil, err
	}
	if err := decodeJSON("dimension_statuses", row.DimensionStatuses, &r.DimensionStatuses); err != nil {
		return nil, err
	}
	if err := decodeJSON("gaps", row.Gaps, &r.Gaps); err != nil {
		return nil, err
	}

	if r.SeverityDistribution == nil {
		r.SeverityDistribution = map[model.GapSeverity]int{}
	}
	if r.GapCategoriesSummary == nil {
		r.GapCategoriesSummary = map[model.GapCategory]int{}
	}
	if r.TopRecommendations == nil {
		r.TopRecommendations = []model.Recommendation{}
	}
	if r.Gaps == nil {
		r.Gaps = []model.Gap{}
	}
	return r, nil
}

func encodeJSON(column string, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", column, err)
	}
	return b, nil
}

func decodeJSON(column string, data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", column, err)
	}
	return nil
}
