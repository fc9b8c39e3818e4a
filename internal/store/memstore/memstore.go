// Package memstore implements the store interfaces in memory, with the same
// uniqueness and transition rules as the Postgres tables. Used by the offline
// analyzer and by tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"basegraph.app/gapengine/common/id"
	"basegraph.app/gapengine/internal/model"
	"basegraph.app/gapengine/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	chapters map[int64]model.Chapter
	jobs     map[int64]model.Job
	results  []model.GapAnalysisResult
	now      func() time.Time
}

func New() *Store {
	return &Store{
		chapters: make(map[int64]model.Chapter),
		jobs:     make(map[int64]model.Job),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PutChapter inserts or replaces a chapter, standing in for the chapter service.
func (s *Store) PutChapter(ch model.Chapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chapters[ch.ID] = ch
}

func (s *Store) Chapters() store.ChapterStore { return (*chapters)(s) }
func (s *Store) Jobs() store.JobStore         { return (*jobs)(s) }
func (s *Store) Results() store.ResultStore   { return (*results)(s) }

type chapters Store

func (c *chapters) GetByID(_ context.Context, chapterID int64) (*model.Chapter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.chapters[chapterID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &ch, nil
}

type jobs Store

func (j *jobs) Create(_ context.Context, job *model.Job) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, existing := range j.jobs {
		if existing.ContentRef.ContentID == job.ContentRef.ContentID && !existing.State.Terminal() {
			return store.ErrActiveJobExists
		}
	}
	job.State = model.JobStateQueued
	job.CreatedAt = j.now()
	job.StartedAt = nil
	job.FinishedAt = nil
	job.Error = nil
	j.jobs[job.TaskID] = *job
	return nil
}

func (j *jobs) Get(_ context.Context, taskID int64) (*model.Job, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	job, ok := j.jobs[taskID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &job, nil
}

func (j *jobs) GetActiveByContent(_ context.Context, contentID int64) (*model.Job, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	for _, job := range j.jobs {
		if job.ContentRef.ContentID == contentID && !job.State.Terminal() {
			return &job, nil
		}
	}
	return nil, store.ErrNotFound
}

func (j *jobs) Start(_ context.Context, taskID int64) (*model.Job, error) {
	return j.transition(taskID, func(job *model.Job) bool {
		if job.State != model.JobStateQueued {
			return false
		}
		now := j.now()
		job.State = model.JobStateRunning
		job.StartedAt = &now
		return true
	})
}

func (j *jobs) Succeed(_ context.Context, taskID int64) (*model.Job, error) {
	return j.transition(taskID, func(job *model.Job) bool {
		if job.State != model.JobStateRunning {
			return false
		}
		now := j.now()
		job.State = model.JobStateSucceeded
		job.FinishedAt = &now
		return true
	})
}

func (j *jobs) Fail(_ context.Context, taskID int64, reason string) (*model.Job, error) {
	return j.transition(taskID, func(job *model.Job) bool {
		if job.State.Terminal() {
			return false
		}
		now := j.now()
		job.State = model.JobStateFailed
		job.Error = &reason
		job.FinishedAt = &now
		return true
	})
}

func (j *jobs) transition(taskID int64, apply func(*model.Job) bool) (*model.Job, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[taskID]
	if !ok || !apply(&job) {
		return nil, store.ErrInvalidTransition
	}
	j.jobs[taskID] = job
	return &job, nil
}

func (j *jobs) ListByContent(_ context.Context, contentID int64, limit int) ([]model.Job, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []model.Job
	for _, job := range j.jobs {
		if job.ContentRef.ContentID == contentID {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].TaskID > out[b].TaskID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type results Store

func (r *results) Save(_ context.Context, result *model.GapAnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if result.ID == 0 {
		result.ID = id.New()
	}
	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = r.now()
	}
	r.results = append(r.results, *result)
	return nil
}

func (r *results) GetLatest(_ context.Context, contentID int64) (*model.GapAnalysisResult, error) {
	return r.latest(func(res model.GapAnalysisResult) bool {
		return res.ContentRef.ContentID == contentID
	})
}

func (r *results) GetLatestForVersion(_ context.Context, contentID, version int64) (*model.GapAnalysisResult, error) {
	return r.latest(func(res model.GapAnalysisResult) bool {
		return res.ContentRef.ContentID == contentID && res.ContentRef.ContentVersion == version
	})
}

func (r *results) GetHistory(_ context.Context, contentID int64, limit int) ([]model.GapAnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.GapAnalysisResult
	for _, res := range r.results {
		if res.ContentRef.ContentID == contentID {
			out = append(out, res)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return newer(out[a], out[b]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// latest is a max-by scan over analyzed_at, with id breaking ties.
func (r *results) latest(match func(model.GapAnalysisResult) bool) (*model.GapAnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *model.GapAnalysisResult
	for i := range r.results {
		res := r.results[i]
		if !match(res) {
			continue
		}
		if best == nil || newer(res, *best) {
			best = &res
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return best, nil
}

func newer(a, b model.GapAnalysisResult) bool {
	if !a.AnalyzedAt.Equal(b.AnalyzedAt) {
		return a.AnalyzedAt.After(b.AnalyzedAt)
	}
	return a.ID > b.ID
}
