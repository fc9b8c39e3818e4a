package model

import "time"

type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
)

func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// Job is one execution attempt of the analysis pipeline. Terminal jobs are
// kept for audit and never change again.
type Job struct {
	TaskID     int64      `json:"task_id"`
	ContentRef ContentRef `json:"content_ref"`
	State      JobState   `json:"state"`
	Error      *string    `json:"error,omitempty"`
	TraceID    *string    `json:"trace_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
