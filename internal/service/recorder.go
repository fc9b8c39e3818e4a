package service

import (
	"time"

	"basegraph.app/gapengine/internal/model"
)

// Submit outcomes reported to the Recorder.
const (
	SubmitCreated  = "created"
	SubmitDeduped  = "deduped"
	SubmitNotFound = "chapter_not_found"
	SubmitError    = "error"
)

// Recorder receives service level measurements. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	SubmitOutcome(outcome string)
	JobFinished(state model.JobState, reason string, elapsed time.Duration)
	ResultRecorded(result *model.GapAnalysisResult)
}

type nopRecorder struct{}

func (nopRecorder) SubmitOutcome(string) {}
func (nopRecorder) JobFinished(model.JobState, string, time.Duration) {}
func (nopRecorder) ResultRecorded(*model.GapAnalysisResult) {}
