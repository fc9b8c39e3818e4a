// Package metrics exposes Prometheus metrics for the API and the worker.
package metrics

import (
	"time"

	"basegraph.app/gapengine/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all engine metrics.
	Namespace = "gapengine"
)

// Metrics implements service.Recorder, scorer.Observer, worker.Observer and
// middleware.PanicObserver.
type Metrics struct {
	// Submission and job metrics
	SubmissionsTotal   *prometheus.CounterVec
	HTTPPanicsTotal    *prometheus.CounterVec
	JobsFinishedTotal  *prometheus.CounterVec
	JobDurationSeconds *prometheus.HistogramVec

	// Result metrics
	CompletenessScore     prometheus.Histogram
	RequiresRevisionTotal *prometheus.CounterVec
	LowConfidenceTotal    prometheus.Counter

	// Scorer metrics
	ScorerDurationSeconds *prometheus.HistogramVec
	ScorerResultsTotal    *prometheus.CounterVec

	// Worker pool metrics
	WorkerPoolSize         prometheus.Gauge
	WorkersBusy            prometheus.Gauge
	MessagesHandledTotal   *prometheus.CounterVec
	MessagesReclaimedTotal prometheus.Counter
}

// New creates and registers all metrics on reg, or on the default registerer
// when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initJobMetrics(factory)
	m.initResultMetrics(factory)
	m.initScorerMetrics(factory)
	m.initWorkerMetrics(factory)

	return m
}

func (m *Metrics) initJobMetrics(factory promauto.Factory) {
	m.SubmissionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "api",
			Name:      "submissions_total",
			Help:      "Gap analysis submissions by outcome",
		},
		[]string{"outcome"},
	)

	m.HTTPPanicsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "api",
			Name:      "panics_total",
			Help:      "Recovered handler panics by route",
		},
		[]string{"route"},
	)

	m.JobsFinishedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Jobs reaching a terminal state",
		},
		[]string{"state", "reason"},
	)

	m.JobDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Time from job start to terminal state",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
		[]string{"state"},
	)
}

func (m *Metrics) initResultMetrics(factory promauto.Factory) {
	m.CompletenessScore = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "results",
			Name:      "completeness_score",
			Help:      "Distribution of persisted completeness scores",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	m.RequiresRevisionTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "results",
			Name:      "total",
			Help:      "Persisted results by revision verdict",
		},
		[]string{"requires_revision"},
	)

	m.LowConfidenceTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "results",
			Name:      "low_confidence_total",
			Help:      "Results computed from fewer than two usable dimensions",
		},
	)
}

func (m *Metrics) initScorerMetrics(factory promauto.Factory) {
	m.ScorerDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "scorer",
			Name:      "duration_seconds",
			Help:      "Scorer invocation latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"dimension"},
	)

	m.ScorerResultsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "scorer",
			Name:      "results_total",
			Help:      "Scorer invocations by dimension and status",
		},
		[]string{"dimension", "status"},
	)
}

func (m *Metrics) initWorkerMetrics(factory promauto.Factory) {
	m.WorkerPoolSize = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "worker",
			Name:      "pool_size",
			Help:      "Configured number of workers",
		},
	)

	m.WorkersBusy = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "worker",
			Name:      "busy",
			Help:      "Workers currently executing a job",
		},
	)

	m.MessagesHandledTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "worker",
			Name:      "messages_total",
			Help:      "Queue messages handled by outcome",
		},
		[]string{"outcome"},
	)

	m.MessagesReclaimedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "worker",
			Name:      "messages_reclaimed_total",
			Help:      "Stale pending messages claimed from crashed consumers",
		},
	)
}

func (m *Metrics) SubmitOutcome(outcome string) {
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RequestPanicked(route string) {
	m.HTTPPanicsTotal.WithLabelValues(route).Inc()
}

func (m *Metrics) JobFinished(state model.JobState, reason string, elapsed time.Duration) {
	if reason == "" {
		reason = "none"
	}
	m.JobsFinishedTotal.WithLabelValues(string(state), reason).Inc()
	if elapsed > 0 {
		m.JobDurationSeconds.WithLabelValues(string(state)).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ResultRecorded(result *model.GapAnalysisResult) {
	m.CompletenessScore.Observe(result.CompletenessScore)
	verdict := "false"
	if result.RequiresRevision {
		verdict = "true"
	}
	m.RequiresRevisionTotal.WithLabelValues(verdict).Inc()
	if result.LowConfidence {
		m.LowConfidenceTotal.Inc()
	}
}

func (m *Metrics) ObserveScorer(category model.GapCategory, status model.DimensionStatus, elapsed time.Duration) {
	m.ScorerDurationSeconds.WithLabelValues(string(category)).Observe(elapsed.Seconds())
	m.ScorerResultsTotal.WithLabelValues(string(category), string(status)).Inc()
}

func (m *Metrics) SetPoolSize(n int) {
	m.WorkerPoolSize.Set(float64(n))
}

func (m *Metrics) WorkerBusy(delta int) {
	m.WorkersBusy.Add(float64(delta))
}

func (m *Metrics) MessageHandled(outcome string) {
	m.MessagesHandledTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) MessageReclaimed() {
	m.MessagesReclaimedTotal.Inc()
}
