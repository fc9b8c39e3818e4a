package queue

import (
	"fmt"
	"strconv"

	"basegraph.app/gapengine/internal/model"
	"github.com/redis/go-redis/v9"
)

// Message is one analysis task on the stream. ID is the stream entry id; the
// job itself is addressed by TaskID.
type Message struct {
	ID             string
	TaskID         int64
	ContentID      int64
	ContentVersion int64
	Attempt        int
	TraceID        string
	Raw            redis.XMessage
}

func NewMessage(job *model.Job) Message {
	msg := Message{
		TaskID:         job.TaskID,
		ContentID:      job.ContentRef.ContentID,
		ContentVersion: job.ContentRef.ContentVersion,
		Attempt:        1,
	}
	if job.TraceID != nil {
		msg.TraceID = *job.TraceID
	}
	return msg
}

func (m Message) ContentRef() model.ContentRef {
	return model.ContentRef{ContentID: m.ContentID, ContentVersion: m.ContentVersion}
}

func ParseMessage(msg redis.XMessage) (Message, error) {
	taskID, err := parseInt64(msg.Values, "task_id")
	if err != nil {
		return Message{}, err
	}
	contentID, err := parseInt64(msg.Values, "content_id")
	if err != nil {
		return Message{}, err
	}
	contentVersion, err := parseOptionalInt64(msg.Values, "content_version")
	if err != nil {
		return Message{}, err
	}
	attempt, err := parseOptionalInt(msg.Values, "attempt")
	if err != nil {
		return Message{}, err
	}
	if attempt == 0 {
		attempt = 1
	}
	traceID, err := parseOptionalString(msg.Values, "trace_id")
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID:             msg.ID,
		TaskID:         taskID,
		ContentID:      contentID,
		ContentVersion: contentVersion,
		Attempt:        attempt,
		TraceID:        traceID,
		Raw:            msg,
	}, nil
}

func messageValues(msg Message) map[string]any {
	attempt := msg.Attempt
	if attempt <= 0 {
		attempt = 1
	}
	values := map[string]any{
		"task_id":         msg.TaskID,
		"content_id":      msg.ContentID,
		"content_version": msg.ContentVersion,
		"attempt":         attempt,
	}
	if msg.TraceID != "" {
		values["trace_id"] = msg.TraceID
	}
	return values
}

func parseInt64(values map[string]any, key string) (int64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	str := fmt.Sprint(raw)
	num, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalInt64(values map[string]any, key string) (int64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	str := fmt.Sprint(raw)
	num, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	str := fmt.Sprint(raw)
	num, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", nil
	}
	return fmt.Sprint(raw), nil
}
