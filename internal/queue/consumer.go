package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/gapengine/common/logger"
	"github.com/redis/go-redis/v9"
)

type ConsumerConfig struct {
	Stream    string        // Redis stream name
	Group     string        // Redis consumer group name
	Consumer  string        // Redis consumer name
	DLQStream string        // Dead letter stream for nacked messages
	Block     time.Duration // How long Dequeue blocks waiting for a message
}

type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig
}

func NewRedisConsumer(ctx context.Context, client *redis.Client, cfg ConsumerConfig) (*RedisConsumer, error) {
	consumer := &RedisConsumer{
		client: client,
		cfg:    cfg,
	}

	if err := consumer.ensureGroup(ctx); err != nil {
		return nil, err
	}

	return consumer, nil
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// Starting from "0" instead of "$" means a recreated group still sees
	// tasks already on the stream.
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

// Dequeue blocks up to cfg.Block for the next undelivered task. It returns
// nil, nil when nothing arrived. Malformed entries are acknowledged and
// skipped.
func (c *RedisConsumer) Dequeue(ctx context.Context) (*Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "gapengine.queue.consumer",
	})

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		// ">" only delivers messages never handed to any consumer. Stale
		// pending ones belong to the reclaimer.
		Streams: []string{c.cfg.Stream, ">"},
		Count:   1,
		Block:   c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	for _, stream := range streams {
		for _, raw := range stream.Messages {
			msg, parseErr := ParseMessage(raw)
			if parseErr != nil {
				slog.ErrorContext(ctx, "failed to parse message",
					"error", parseErr,
					"raw_message_id", raw.ID,
					"stream", c.cfg.Stream)
				_ = c.Ack(ctx, Message{ID: raw.ID, Raw: raw})
				continue
			}
			return &msg, nil
		}
	}
	return nil, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}

	slog.DebugContext(ctx, "message acknowledged", "stream", c.cfg.Stream, "task_id", msg.TaskID)
	return nil
}

// Nack acknowledges msg on the work stream and parks it on the dead letter
// stream with reason. Tasks are never redelivered automatically.
func (c *RedisConsumer) Nack(ctx context.Context, msg Message, reason string) error {
	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking failed message for dlq: %w", err)
	}

	values := messageValues(msg)
	values["error"] = reason
	values["source_message_id"] = msg.ID

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.DLQStream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd dlq (stream=%s): %w", c.cfg.DLQStream, err)
	}

	slog.WarnContext(ctx, "message sent to DLQ",
		"task_id", msg.TaskID,
		"final_error", reason,
		"dlq_stream", c.cfg.DLQStream)
	return nil
}

// ClaimStale takes over messages another consumer read but never acked
// within minIdle, typically because its worker crashed.
func (c *RedisConsumer) ClaimStale(ctx context.Context, minIdle time.Duration, count int64) ([]Message, error) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Idle:   minIdle,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xpending: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}

	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xclaim: %w", err)
	}

	messages := make([]Message, 0, len(claimed))
	for _, raw := range claimed {
		msg, parseErr := ParseMessage(raw)
		if parseErr != nil {
			slog.ErrorContext(ctx, "failed to parse reclaimed message, acknowledging to prevent loop",
				"error", parseErr,
				"raw_message_id", raw.ID)
			_ = c.Ack(ctx, Message{ID: raw.ID, Raw: raw})
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Pending reports how many delivered messages still await an ack.
func (c *RedisConsumer) Pending(ctx context.Context) (int64, error) {
	res, err := c.client.XPending(ctx, c.cfg.Stream, c.cfg.Group).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending summary: %w", err)
	}
	return res.Count, nil
}
