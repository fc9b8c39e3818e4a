package store

import (
	"context"
	"errors"
	"time"

	"basegraph.app/gapengine/core/db/sqlc"
	"basegraph.app/gapengine/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const uniqueViolation = "23505"

type jobStore struct {
	queries *sqlc.Queries
}

func newJobStore(queries *sqlc.Queries) JobStore {
	return &jobStore{queries: queries}
}

// Create inserts a queued job. The partial unique index on active jobs turns a
// concurrent second insert for the same content into ErrActiveJobExists.
func (s *jobStore) Create(ctx context.Context, job *model.Job) error {
	row, err := s.queries.CreateGapAnalysisJob(ctx, sqlc.CreateGapAnalysisJobParams{
		TaskID:         job.TaskID,
		ContentID:      job.ContentRef.ContentID,
		ContentVersion: job.ContentRef.ContentVersion,
		TraceID:        job.TraceID,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrActiveJobExists
		}
		return err
	}
	*job = *toJobModel(row)
	return nil
}

func (s *jobStore) Get(ctx context.Context, taskID int64) (*model.Job, error) {
	row, err := s.queries.GetGapAnalysisJob(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toJobModel(row), nil
}

func (s *jobStore) GetActiveByContent(ctx context.Context, contentID int64) (*model.Job, error) {
	row, err := s.queries.GetActiveGapAnalysisJobByContent(ctx, contentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toJobModel(row), nil
}

func (s *jobStore) Start(ctx context.Context, taskID int64) (*model.Job, error) {
	return transition(s.queries.StartGapAnalysisJob(ctx, taskID))
}

func (s *jobStore) Succeed(ctx context.Context, taskID int64) (*model.Job, error) {
	return transition(s.queries.SucceedGapAnalysisJob(ctx, taskID))
}

func (s *jobStore) Fail(ctx context.Context, taskID int64, reason string) (*model.Job, error) {
	return transition(s.queries.FailGapAnalysisJob(ctx, sqlc.FailGapAnalysisJobParams{
		TaskID: taskID,
		Error:  &reason,
	}))
}

func (s *jobStore) ListByContent(ctx context.Context, contentID int64, limit int) ([]model.Job, error) {
	rows, err := s.queries.ListGapAnalysisJobsByContent(ctx, sqlc.ListGapAnalysisJobsByContentParams{
		ContentID: contentID,
		Limit:     int32(limit),
	})
	if err != nil {
		return nil, err
	}
	jobs := make([]model.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, *toJobModel(row))
	}
	return jobs, nil
}

// transition maps "no row matched the guarded UPDATE" to ErrInvalidTransition.
func transition(row sqlc.GapAnalysisJob, err error) (*model.Job, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	return toJobModel(row), nil
}

func toJobModel(row sqlc.GapAnalysisJob) *model.Job {
	return &model.Job{
		TaskID: row.TaskID,
		ContentRef: model.ContentRef{
			ContentID:      row.ContentID,
			ContentVersion: row.ContentVersion,
		},
		State:      model.JobState(row.State),
		Error:      row.Error,
		TraceID:    row.TraceID,
		CreatedAt:  row.CreatedAt.Time,
		StartedAt:  timePtr(row.StartedAt),
		FinishedAt: timePtr(row.FinishedAt),
	}
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
