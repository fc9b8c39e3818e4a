package worker

import (
	"context"
	"time"

	"basegraph.app/gapengine/internal/queue"
)

// Consumer abstracts the task queue for testability.
type Consumer interface {
	Dequeue(ctx context.Context) (*queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Nack(ctx context.Context, msg queue.Message, reason string) error
	ClaimStale(ctx context.Context, minIdle time.Duration, count int64) ([]queue.Message, error)
}

// Executor runs jobs to a terminal state. service.JobExecutor satisfies it.
type Executor interface {
	Execute(ctx context.Context, taskID int64) error
	Recover(ctx context.Context, taskID int64) error
}

// Observer receives pool activity. metrics.Metrics satisfies it.
type Observer interface {
	SetPoolSize(n int)
	WorkerBusy(delta int)
	MessageHandled(outcome string)
	MessageReclaimed()
}

const (
	OutcomeAcked    = "acked"
	OutcomeNacked   = "nacked"
	OutcomeSkipped  = "skipped"
	OutcomeAckError = "ack_error"
)

type nopObserver struct{}

func (nopObserver) SetPoolSize(int)       {}
func (nopObserver) WorkerBusy(int)        {}
func (nopObserver) MessageHandled(string) {}
func (nopObserver) MessageReclaimed()     {}
