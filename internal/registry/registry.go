// Package registry owns the job lifecycle and guarantees at most one queued or
// running job per content id.
//
// Two layers enforce that. Inside a process a keyed mutex serializes Submit
// and every transition for the same content. Across processes the jobs table
// carries a partial unique index on active jobs, so a losing insert surfaces
// as store.ErrActiveJobExists and is resolved by returning the winner.
//
// The keyed mutex is released once Submit returns, not held until the job
// reaches running. From then on the queued row itself is the lock: while it
// is queued or running, GetActiveByContent finds it and the unique index
// rejects a second insert, so the content stays locked until the job ends.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"basegraph.app/gapengine/common/id"
	"basegraph.app/gapengine/common/logger"
	"basegraph.app/gapengine/internal/model"
	"basegraph.app/gapengine/internal/store"
)

// Submitting races a concurrent job finishing; give up after this many tries.
const maxSubmitAttempts = 3

var ErrSubmitContention = errors.New("could not register job: content job state kept changing")

// EnqueueFunc hands a freshly registered job to the queue.
type EnqueueFunc func(ctx context.Context, job *model.Job) error

type Registry struct {
	jobs  store.JobStore
	locks *KeyedMutex
}

func New(jobs store.JobStore) *Registry {
	return &Registry{jobs: jobs, locks: NewKeyedMutex()}
}

// Submit returns the active job for ref.ContentID if there is one (created is
// false), otherwise registers a queued job and enqueues it. If enqueueing
// fails the job is marked failed so it cannot block later submissions.
func (r *Registry) Submit(ctx context.Context, ref model.ContentRef, traceID *string, enqueue EnqueueFunc) (job *model.Job, created bool, err error) {
	unlock := r.locks.Lock(ref.ContentID)
	defer unlock()

	for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
		active, err := r.jobs.GetActiveByContent(ctx, ref.ContentID)
		if err == nil {
			return active, false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, false, fmt.Errorf("looking up active job: %w", err)
		}

		job = &model.Job{TaskID: id.New(), ContentRef: ref, TraceID: traceID}
		err = r.jobs.Create(ctx, job)
		if errors.Is(err, store.ErrActiveJobExists) {
			// Another replica registered one between our read and insert.
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("creating job: %w", err)
		}

		ctx = logger.WithLogFields(ctx, logger.LogFields{TaskID: logger.Ptr(job.TaskID)})
		if err := enqueue(ctx, job); err != nil {
			reason := fmt.Sprintf("enqueue failed: %v", err)
			if _, failErr := r.jobs.Fail(ctx, job.TaskID, reason); failErr != nil {
				slog.ErrorContext(ctx, "failed to mark unenqueued job failed", "error", failErr)
			}
			return nil, false, fmt.Errorf("enqueueing job: %w", err)
		}
		slog.InfoContext(ctx, "gap analysis job registered")
		return job, true, nil
	}
	return nil, false, ErrSubmitContention
}

func (r *Registry) Get(ctx context.Context, taskID int64) (*model.Job, error) {
	return r.jobs.Get(ctx, taskID)
}

// Start moves a job from queued to running.
func (r *Registry) Start(ctx context.Context, job *model.Job) (*model.Job, error) {
	unlock := r.locks.Lock(job.ContentRef.ContentID)
	defer unlock()
	return r.jobs.Start(ctx, job.TaskID)
}

// Fail moves a queued or running job to failed, recording cause.
func (r *Registry) Fail(ctx context.Context, job *model.Job, cause error) (*model.Job, error) {
	unlock := r.locks.Lock(job.ContentRef.ContentID)
	defer unlock()
	return r.jobs.Fail(ctx, job.TaskID, cause.Error())
}

// Complete runs commit while holding the content lock. commit is expected to
// persist the result and mark the job succeeded atomically.
func (r *Registry) Complete(ctx context.Context, job *model.Job, commit func(ctx context.Context) error) error {
	unlock := r.locks.Lock(job.ContentRef.ContentID)
	defer unlock()
	return commit(ctx)
}
