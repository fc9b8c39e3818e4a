package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"basegraph.app/gapengine/common/logger"
	"basegraph.app/gapengine/internal/queue"
	"basegraph.app/gapengine/internal/service"
)

type Config struct {
	// Number of jobs executed concurrently.
	PoolSize int
	// Pause after a failed dequeue before polling again.
	ErrorBackoff time.Duration
}

// Pool runs a fixed number of workers pulling tasks off the queue. Each
// worker drives one job at a time to a terminal state, then acks the message.
// Failed jobs are nacked to the dead letter stream and never retried.
type Pool struct {
	consumer Consumer
	executor Executor
	observer Observer
	cfg      Config

	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

type Option func(*Pool)

func WithObserver(o Observer) Option {
	return func(p *Pool) {
		if o != nil {
			p.observer = o
		}
	}
}

func New(consumer Consumer, executor Executor, cfg Config, opts ...Option) *Pool {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}
	p := &Pool{
		consumer:  consumer,
		executor:  executor,
		observer:  nopObserver{},
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks until ctx is cancelled or Stop is called and every worker has
// finished its current job.
func (p *Pool) Run(ctx context.Context) error {
	defer close(p.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "gapengine.worker",
	})

	p.observer.SetPoolSize(p.cfg.PoolSize)
	slog.InfoContext(ctx, "worker pool started", "pool_size", p.cfg.PoolSize)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.PoolSize; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p.loop(ctx, n)
		}(i)
	}
	wg.Wait()

	slog.InfoContext(ctx, "worker pool stopped")
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Stop signals all workers to stop and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.stoppedCh
}

func (p *Pool) loop(ctx context.Context, n int) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		default:
		}

		msg, err := p.consumer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.ErrorContext(ctx, "dequeue failed", "error", err, "worker", n)
			p.sleep(ctx, p.cfg.ErrorBackoff)
			continue
		}
		if msg == nil {
			continue
		}

		p.observer.WorkerBusy(1)
		p.handle(ctx, *msg)
		p.observer.WorkerBusy(-1)
	}
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-p.stopCh:
	case <-t.C:
	}
}

func (p *Pool) handle(ctx context.Context, msg queue.Message) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID:      logger.Ptr(msg.ID),
		TaskID:         logger.Ptr(msg.TaskID),
		ContentID:      logger.Ptr(msg.ContentID),
		ContentVersion: logger.Ptr(msg.ContentVersion),
	})

	start := time.Now()
	err := p.processMessageSafe(ctx, msg, p.executor.Execute)
	p.settle(ctx, msg, err)

	slog.InfoContext(ctx, "message handled",
		"duration_ms", time.Since(start).Milliseconds(),
		"success", err == nil)
}

func (p *Pool) processMessageSafe(ctx context.Context, msg queue.Message, run func(context.Context, int64) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return run(ctx, msg.TaskID)
}

// settle acks or nacks msg according to the job outcome. A job another
// worker already owns is acked without touching the dead letter stream.
func (p *Pool) settle(ctx context.Context, msg queue.Message, err error) {
	switch {
	case err == nil:
		if ackErr := p.consumer.Ack(ctx, msg); ackErr != nil {
			slog.WarnContext(ctx, "failed to ACK message", "error", ackErr)
			p.observer.MessageHandled(OutcomeAckError)
			return
		}
		p.observer.MessageHandled(OutcomeAcked)
	case errors.Is(err, service.ErrJobNotQueued):
		slog.InfoContext(ctx, "job not claimable, skipping", "reason", err.Error())
		if ackErr := p.consumer.Ack(ctx, msg); ackErr != nil {
			slog.WarnContext(ctx, "failed to ACK message", "error", ackErr)
			p.observer.MessageHandled(OutcomeAckError)
			return
		}
		p.observer.MessageHandled(OutcomeSkipped)
	default:
		slog.ErrorContext(ctx, "job failed, sending to DLQ", "error", err, "attempt", msg.Attempt)
		if nackErr := p.consumer.Nack(ctx, msg, err.Error()); nackErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", nackErr)
			p.observer.MessageHandled(OutcomeAckError)
			return
		}
		p.observer.MessageHandled(OutcomeNacked)
	}
}
