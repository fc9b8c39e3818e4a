package handler_test

import (
	"context"

	"basegraph.app/gapengine/internal/model"
	"basegraph.app/gapengine/internal/service"
)

type mockGapAnalysisService struct {
	submitFn     func(ctx context.Context, contentID int64) (*service.SubmitResult, error)
	getSummaryFn func(ctx context.Context, contentID int64, version *int64) (*model.GapAnalysisResult, error)
	getHistoryFn func(ctx context.Context, contentID int64, limit int) ([]model.GapAnalysisResult, error)
	getJobFn     func(ctx context.Context, taskID int64) (*model.Job, error)
}

func (m *mockGapAnalysisService) Submit(ctx context.Context, contentID int64) (*service.SubmitResult, error) {
	return m.submitFn(ctx, contentID)
}

func (m *mockGapAnalysisService) GetSummary(ctx context.Context, contentID int64, version *int64) (*model.GapAnalysisResult, error) {
	return m.getSummaryFn(ctx, contentID, version)
}

func (m *mockGapAnalysisService) GetHistory(ctx context.Context, contentID int64, limit int) ([]model.GapAnalysisResult, error) {
	return m.getHistoryFn(ctx, contentID, limit)
}

func (m *mockGapAnalysisService) GetJob(ctx context.Context, taskID int64) (*model.Job, error) {
	return m.getJobFn(ctx, taskID)
}
