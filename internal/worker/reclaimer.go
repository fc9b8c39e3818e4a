package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"basegraph.app/gapengine/common/logger"
	"basegraph.app/gapengine/internal/queue"
)

type ReclaimerConfig struct {
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
}

// Reclaimer periodically claims messages a crashed worker read but never
// acked and settles their jobs through Executor.Recover.
type Reclaimer struct {
	consumer Consumer
	executor Executor
	observer Observer
	cfg      ReclaimerConfig

	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewReclaimer(consumer Consumer, executor Executor, cfg ReclaimerConfig, observer Observer) *Reclaimer {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.MinIdle <= 0 {
		cfg.MinIdle = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}

	if observer == nil {
		observer = nopObserver{}
	}

	return &Reclaimer{
		consumer:  consumer,
		executor:  executor,
		observer:  observer,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run starts the reclaimer loop. Blocks until Stop is called or ctx ends.
func (r *Reclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "gapengine.worker.reclaimer",
	})

	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if err := r.ReclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
			}
		}
	}
}

func (r *Reclaimer) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.stoppedCh
}

// ReclaimOnce performs one reclaim cycle.
func (r *Reclaimer) ReclaimOnce(ctx context.Context) error {
	messages, err := r.consumer.ClaimStale(ctx, r.cfg.MinIdle, r.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("claiming stale messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "found stale pending messages", "count", len(messages))

	for _, msg := range messages {
		r.observer.MessageReclaimed()
		if err := r.reclaim(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "failed to reclaim message",
				"error", err,
				"message_id", msg.ID)
		}
	}
	return nil
}

func (r *Reclaimer) reclaim(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: logger.Ptr(msg.ID),
		TaskID:    logger.Ptr(msg.TaskID),
		ContentID: logger.Ptr(msg.ContentID),
	})

	slog.InfoContext(ctx, "reclaiming stale message", "attempt", msg.Attempt)

	start := time.Now()
	if err := r.executor.Recover(ctx, msg.TaskID); err != nil {
		if nackErr := r.consumer.Nack(ctx, msg, err.Error()); nackErr != nil {
			return fmt.Errorf("nacking reclaimed message: %w", nackErr)
		}
		r.observer.MessageHandled(OutcomeNacked)
		return nil
	}

	if err := r.consumer.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking reclaimed message: %w", err)
	}
	r.observer.MessageHandled(OutcomeAcked)

	slog.InfoContext(ctx, "reclaimed message settled",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
