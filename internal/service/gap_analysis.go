package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/gapengine/common/id"
	"basegraph.app/gapengine/common/logger"
	"basegraph.app/gapengine/core/config"
	"basegraph.app/gapengine/internal/aggregate"
	"basegraph.app/gapengine/internal/model"
	"basegraph.app/gapengine/internal/queue"
	"basegraph.app/gapengine/internal/recommend"
	"basegraph.app/gapengine/internal/registry"
	"basegraph.app/gapengine/internal/scorer"
	"basegraph.app/gapengine/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInvalidContentID = errors.New("invalid content id")
	ErrChapterNotFound  = errors.New("chapter not found")
	ErrResultNotFound   = errors.New("no gap analysis result for chapter")
	ErrJobNotFound      = errors.New("gap analysis job not found")
	ErrJobNotQueued     = errors.New("gap analysis job is not queued")
	ErrJobAbandoned     = errors.New("gap analysis job abandoned by its worker")
	ErrStaleContent     = errors.New("chapter changed while it was being analyzed")
	ErrPersistence      = errors.New("persisting gap analysis result")
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// GapAnalysisService is the public entry point for submitting analyses and
// reading their outcome.
type GapAnalysisService interface {
	Submit(ctx context.Context, contentID int64) (*SubmitResult, error)
	GetSummary(ctx context.Context, contentID int64, version *int64) (*model.GapAnalysisResult, error)
	GetHistory(ctx context.Context, contentID int64, limit int) ([]model.GapAnalysisResult, error)
	GetJob(ctx context.Context, taskID int64) (*model.Job, error)
}

// JobExecutor runs analysis jobs on the worker side.
type JobExecutor interface {
	Execute(ctx context.Context, taskID int64) error
	Recover(ctx context.Context, taskID int64) error
}

type SubmitResult struct {
	Job     *model.Job
	Created bool // false when an active job was returned instead
}

// Enqueuer is the producing half of the task queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg queue.Message) error
}

// ScoreRunner fans a chapter out to the dimension scorers.
type ScoreRunner interface {
	Run(ctx context.Context, content scorer.Content) []model.DimensionResult
}

type GapAnalysisDeps struct {
	Chapters    store.ChapterStore
	Jobs        store.JobStore
	Results     store.ResultStore
	TxRunner    TxRunner
	Enqueuer    Enqueuer
	Runner      ScoreRunner
	Aggregator  *aggregate.Aggregator
	Recommender *recommend.Generator
	StalePolicy config.StaleResultPolicy
	Recorder    Recorder
}

type gapAnalysisService struct {
	chapters    store.ChapterStore
	results     store.ResultStore
	registry    *registry.Registry
	txRunner    TxRunner
	enqueuer    Enqueuer
	runner      ScoreRunner
	aggregator  *aggregate.Aggregator
	recommender *recommend.Generator
	stalePolicy config.StaleResultPolicy
	recorder    Recorder
	now         func() time.Time
}

// GapAnalysis is implemented by the orchestrator and serves both the API and
// the worker.
type GapAnalysis interface {
	GapAnalysisService
	JobExecutor
}

func NewGapAnalysisService(deps GapAnalysisDeps) GapAnalysis {
	recorder := deps.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	policy := deps.StalePolicy
	if policy == "" {
		policy = config.StaleResultPersist
	}
	return &gapAnalysisService{
		chapters:    deps.Chapters,
		results:     deps.Results,
		registry:    registry.New(deps.Jobs),
		txRunner:    deps.TxRunner,
		enqueuer:    deps.Enqueuer,
		runner:      deps.Runner,
		aggregator:  deps.Aggregator,
		recommender: deps.Recommender,
		stalePolicy: policy,
		recorder:    recorder,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit registers an analysis of the chapter's current version, or returns
// the job already queued or running for it. It never waits for scoring.
func (s *gapAnalysisService) Submit(ctx context.Context, contentID int64) (*SubmitResult, error) {
	if contentID <= 0 {
		return nil, ErrInvalidContentID
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{ContentID: logger.Ptr(contentID)})

	chapter, err := s.chapters.GetByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recorder.SubmitOutcome(SubmitNotFound)
			return nil, ErrChapterNotFound
		}
		s.recorder.SubmitOutcome(SubmitError)
		return nil, fmt.Errorf("loading chapter: %w", err)
	}

	var traceID *string
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.HasTraceID() {
		traceID = logger.Ptr(sc.TraceID().String())
	}

	job, created, err := s.registry.Submit(ctx, chapter.Ref(), traceID, func(ctx context.Context, job *model.Job) error {
		return s.enqueuer.Enqueue(ctx, queue.NewMessage(job))
	})
	if err != nil {
		s.recorder.SubmitOutcome(SubmitError)
		slog.ErrorContext(ctx, "failed to submit gap analysis", "error", err)
		return nil, fmt.Errorf("submitting gap analysis: %w", err)
	}

	if created {
		s.recorder.SubmitOutcome(SubmitCreated)
	} else {
		s.recorder.SubmitOutcome(SubmitDeduped)
		slog.InfoContext(ctx, "gap analysis already in flight", "task_id", job.TaskID, "state", job.State)
	}
	return &SubmitResult{Job: job, Created: created}, nil
}

// GetSummary returns the newest result for the chapter, or the newest one for
// an exact version when version is set. Running jobs are never consulted.
func (s *gapAnalysisService) GetSummary(ctx context.Context, contentID int64, version *int64) (*model.GapAnalysisResult, error) {
	if contentID <= 0 {
		return nil, ErrInvalidContentID
	}

	var (
		result *model.GapAnalysisResult
		err    error
	)
	if version != nil {
		result, err = s.results.GetLatestForVersion(ctx, contentID, *version)
	} else {
		result, err = s.results.GetLatest(ctx, contentID)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("loading gap analysis result: %w", err)
	}
	return result, nil
}

func (s *gapAnalysisService) GetHistory(ctx context.Context, contentID int64, limit int) ([]model.GapAnalysisResult, error) {
	if contentID <= 0 {
		return nil, ErrInvalidContentID
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	results, err := s.results.GetHistory(ctx, contentID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading gap analysis history: %w", err)
	}
	if results == nil {
		results = []model.GapAnalysisResult{}
	}
	return results, nil
}

func (s *gapAnalysisService) GetJob(ctx context.Context, taskID int64) (*model.Job, error) {
	job, err := s.registry.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("loading job: %w", err)
	}
	return job, nil
}

// Execute runs a queued job to a terminal state. A nil return means the job
// succeeded or was already terminal; any error has been recorded on the job.
func (s *gapAnalysisService) Execute(ctx context.Context, taskID int64) error {
	job, err := s.GetJob(ctx, taskID)
	if err != nil {
		return err
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TaskID:         logger.Ptr(job.TaskID),
		ContentID:      logger.Ptr(job.ContentRef.ContentID),
		ContentVersion: logger.Ptr(job.ContentRef.ContentVersion),
	})

	if job.State.Terminal() {
		slog.InfoContext(ctx, "job already finished, skipping", "state", job.State)
		return nil
	}

	started, err := s.registry.Start(ctx, job)
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			return fmt.Errorf("%w: task %d is %s", ErrJobNotQueued, job.TaskID, job.State)
		}
		return fmt.Errorf("starting job: %w", err)
	}
	return s.run(ctx, started)
}

// Recover settles a job whose queue message was orphaned by a crashed worker.
// Queued jobs still run. Running ones are failed: their worker died mid-way
// and jobs are never retried automatically.
func (s *gapAnalysisService) Recover(ctx context.Context, taskID int64) error {
	job, err := s.GetJob(ctx, taskID)
	if err != nil {
		return err
	}

	switch job.State {
	case model.JobStateQueued:
		return s.Execute(ctx, taskID)
	case model.JobStateRunning:
		if _, err := s.registry.Fail(ctx, job, ErrJobAbandoned); err != nil && !errors.Is(err, store.ErrInvalidTransition) {
			return fmt.Errorf("failing abandoned job: %w", err)
		}
		s.recorder.JobFinished(model.JobStateFailed, reasonLabel(ErrJobAbandoned), s.elapsed(job))
		slog.WarnContext(ctx, "abandoned gap analysis job failed", "task_id", job.TaskID)
		return nil
	default:
		return nil
	}
}

func (s *gapAnalysisService) run(ctx context.Context, job *model.Job) (err error) {
	span := logger.StartLinkedSpan(ctx, derefString(job.TraceID), "gap_analysis.execute",
		attribute.Int64("task_id", job.TaskID),
		attribute.Int64("content_id", job.ContentRef.ContentID),
	)
	defer func() {
		span.Fail(err)
		span.End()
	}()
	ctx = span.Context()

	slog.InfoContext(ctx, "gap analysis started")

	chapter, err := s.chapters.GetByID(ctx, job.ContentRef.ContentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = ErrChapterNotFound
		} else {
			err = fmt.Errorf("loading chapter: %w", err)
		}
		return s.fail(ctx, job, err)
	}
	if chapter.Version != job.ContentRef.ContentVersion {
		slog.InfoContext(ctx, "chapter moved on since submit, analyzing current version",
			"submitted_version", job.ContentRef.ContentVersion,
			"current_version", chapter.Version)
	}

	content := scorer.NewContent(*chapter)
	dimensions := s.runner.Run(ctx, content)

	summary, err := s.aggregator.Aggregate(dimensions)
	if err != nil {
		return s.fail(ctx, job, err)
	}

	if current, err := s.chapters.GetByID(ctx, chapter.ID); err == nil && current.Version != chapter.Version {
		slog.WarnContext(ctx, "chapter changed during analysis",
			"analyzed_version", chapter.Version,
			"current_version", current.Version,
			"policy", s.stalePolicy)
		if s.stalePolicy == config.StaleResultDiscard {
			return s.fail(ctx, job, fmt.Errorf("%w: analyzed version %d, now %d", ErrStaleContent, chapter.Version, current.Version))
		}
	}

	result := &model.GapAnalysisResult{
		ID:                   id.New(),
		TaskID:               job.TaskID,
		ContentRef:           chapter.Ref(),
		CompletenessScore:    summary.CompletenessScore,
		TotalGaps:            summary.TotalGaps,
		SeverityDistribution: summary.SeverityDistribution,
		GapCategoriesSummary: summary.GapCategoriesSummary,
		TopRecommendations:   s.recommender.Generate(summary.Gaps),
		RequiresRevision:     summary.RequiresRevision,
		LowConfidence:        summary.LowConfidence,
		DimensionStatuses:    summary.DimensionStatuses,
		Gaps:                 summary.Gaps,
		AnalyzedAt:           s.now(),
	}

	err = s.registry.Complete(ctx, job, func(ctx context.Context) error {
		return s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
			if err := stores.Results().Save(ctx, result); err != nil {
				return fmt.Errorf("saving result: %w", err)
			}
			if _, err := stores.Jobs().Succeed(ctx, job.TaskID); err != nil {
				return fmt.Errorf("marking job succeeded: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return s.fail(ctx, job, fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	s.recorder.ResultRecorded(result)
	s.recorder.JobFinished(model.JobStateSucceeded, "", s.elapsed(job))
	if summary.LowConfidence {
		slog.WarnContext(ctx, "gap analysis result has low confidence",
			"dimension_statuses", summary.DimensionStatuses)
	}
	slog.InfoContext(ctx, "gap analysis succeeded",
		"result_id", result.ID,
		"completeness_score", result.CompletenessScore,
		"total_gaps", result.TotalGaps,
		"requires_revision", result.RequiresRevision)
	return nil
}

// fail records cause on the job and returns it so the worker can dead-letter
// the message.
func (s *gapAnalysisService) fail(ctx context.Context, job *model.Job, cause error) error {
	level := slog.LevelWarn
	if errors.Is(cause, ErrPersistence) {
		level = slog.LevelError
	}
	slog.Log(ctx, level, "gap analysis failed", "error", cause)

	if _, err := s.registry.Fail(ctx, job, cause); err != nil {
		slog.ErrorContext(ctx, "failed to record job failure", "error", err)
		return fmt.Errorf("%w (recording failure: %v)", cause, err)
	}
	s.recorder.JobFinished(model.JobStateFailed, reasonLabel(cause), s.elapsed(job))
	return cause
}

func (s *gapAnalysisService) elapsed(job *model.Job) time.Duration {
	if job.StartedAt == nil {
		return 0
	}
	return s.now().Sub(*job.StartedAt)
}

// reasonLabel maps a failure to a bounded metric label.
func reasonLabel(err error) string {
	switch {
	case errors.Is(err, aggregate.ErrAllScorersFailed):
		return "all_scorers_failed"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrChapterNotFound):
		return "chapter_not_found"
	case errors.Is(err, ErrStaleContent):
		return "stale_content"
	case errors.Is(err, ErrJobAbandoned):
		return "abandoned"
	default:
		return "other"
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
