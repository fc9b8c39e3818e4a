package store

import (
	"context"
	"errors"

	"basegraph.app/gapengine/internal/model"
)

var (
	// ErrNotFound is returned when a requested entity does not exist
	ErrNotFound = errors.New("not found")
	// ErrActiveJobExists is returned by JobStore.Create when the content
	// already has a queued or running job.
	ErrActiveJobExists = errors.New("active job exists for content")
	// ErrInvalidTransition is returned when a job is not in the state a
	// transition requires.
	ErrInvalidTransition = errors.New("invalid job state transition")
)

// ChapterStore reads chapters owned by the chapter service. Never written here.
type ChapterStore interface {
	GetByID(ctx context.Context, id int64) (*model.Chapter, error)
}

// JobStore owns the job lifecycle rows. Every transition is a compare-and-set
// on the current state.
type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, taskID int64) (*model.Job, error)
	GetActiveByContent(ctx context.Context, contentID int64) (*model.Job, error)
	Start(ctx context.Context, taskID int64) (*model.Job, error)
	Succeed(ctx context.Context, taskID int64) (*model.Job, error)
	Fail(ctx context.Context, taskID int64, reason string) (*model.Job, error)
	ListByContent(ctx context.Context, contentID int64, limit int) ([]model.Job, error)
}

// ResultStore is append-only. "Latest" is always resolved at read time by
// analyzed_at, never through a stored pointer.
type ResultStore interface {
	Save(ctx context.Context, result *model.GapAnalysisResult) error
	GetLatest(ctx context.Context, contentID int64) (*model.GapAnalysisResult, error)
	GetLatestForVersion(ctx context.Context, contentID, version int64) (*model.GapAnalysisResult, error)
	GetHistory(ctx context.Context, contentID int64, limit int) ([]model.GapAnalysisResult, error)
}
