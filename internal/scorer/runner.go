package scorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"basegraph.app/gapengine/common/logger"
	"basegraph.app/gapengine/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

// Observer is told about every finished scorer invocation.
type Observer interface {
	ObserveScorer(category model.GapCategory, status model.DimensionStatus, elapsed time.Duration)
}

// Runner fans a chapter out to every scorer and joins their results.
type Runner struct {
	scorers  map[model.GapCategory]Scorer
	timeout  time.Duration
	observer Observer
}

type RunnerOption func(*Runner)

func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		r.observer = o
	}
}

func NewRunner(scorers []Scorer, timeout time.Duration, opts ...RunnerOption) *Runner {
	r := &Runner{
		scorers: make(map[model.GapCategory]Scorer, len(scorers)),
		timeout: timeout,
	}
	for _, s := range scorers {
		r.scorers[s.Category()] = s
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type outcome struct {
	index  int
	result model.DimensionResult
}

// Run returns one result per model.GapCategories entry, in that order. It
// never returns early: a scorer that hangs past the timeout is reported as
// failed and its goroutine is abandoned.
func (r *Runner) Run(ctx context.Context, content Content) []model.DimensionResult {
	results := make([]model.DimensionResult, len(model.GapCategories))
	done := make(chan outcome, len(model.GapCategories))
	pending := 0

	for i, category := range model.GapCategories {
		s, ok := r.scorers[category]
		if !ok {
			results[i] = failed(category, ErrNotRegistered)
			continue
		}
		pending++
		go func(i int, s Scorer) {
			done <- outcome{index: i, result: r.runOne(ctx, s, content)}
		}(i, s)
	}

	for ; pending > 0; pending-- {
		o := <-done
		results[o.index] = o.result
	}
	return results
}

func (r *Runner) runOne(ctx context.Context, s Scorer, content Content) model.DimensionResult {
	category := s.Category()
	ctx = logger.WithLogFields(ctx, logger.LogFields{Dimension: logger.Ptr(string(category))})

	span := logger.StartSpan(ctx, "scorer."+string(category), attribute.String("dimension", string(category)))
	defer span.End()

	scoreCtx, cancel := context.WithTimeout(span.Context(), r.timeout)
	defer cancel()

	start := time.Now()
	resultCh := make(chan model.DimensionResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.ErrorContext(scoreCtx, "scorer panicked",
					"panic", rec,
					"stack", string(debug.Stack()))
				resultCh <- failed(category, fmt.Errorf("%w: %v", ErrCrashed, rec))
			}
		}()
		resultCh <- s.Score(scoreCtx, content)
	}()

	var res model.DimensionResult
	select {
	case res = <-resultCh:
		res = normalize(category, res)
	case <-scoreCtx.Done():
		res = failed(category, ErrTimeout)
		slog.WarnContext(span.Context(), "scorer timed out", "timeout", r.timeout)
	}

	elapsed := time.Since(start)
	if res.Status == model.DimensionStatusFailed {
		span.Fail(errors.New(res.Error))
	}
	span.SetAttributes(
		attribute.String("status", string(res.Status)),
		attribute.Float64("score", res.Score),
		attribute.Int("gaps", len(res.Gaps)),
	)
	slog.DebugContext(span.Context(), "scorer finished",
		"status", res.Status,
		"score", res.Score,
		"gaps", len(res.Gaps),
		"duration_ms", elapsed.Milliseconds())

	if r.observer != nil {
		r.observer.ObserveScorer(category, res.Status, elapsed)
	}
	return res
}

// normalize forces a scorer's output onto its own dimension and into range so
// a misbehaving plugin cannot skew aggregation.
func normalize(category model.GapCategory, res model.DimensionResult) model.DimensionResult {
	res.Category = category
	switch res.Status {
	case model.DimensionStatusOK, model.DimensionStatusDegraded, model.DimensionStatusFailed:
	default:
		if res.Error == "" {
			res.Error = fmt.Sprintf("unknown status %q", res.Status)
		}
		res.Status = model.DimensionStatusDegraded
	}
	if res.Status == model.DimensionStatusFailed {
		return failed(category, errors.New(res.Error))
	}

	res.Score = clamp01(res.Score)
	gaps := make([]model.Gap, 0, len(res.Gaps))
	for _, g := range res.Gaps {
		g.Category = category
		if g.Severity.Rank() == len(model.GapSeverities) {
			g.Severity = model.GapSeverityLow
		}
		if g.ID == "" {
			g.ID = gapID(category, string(g.Severity)+"\x00"+g.Description+"\x00"+g.Evidence)
		}
		gaps = append(gaps, g)
	}
	res.Gaps = gaps
	return res
}
