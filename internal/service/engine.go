package service

import (
	"fmt"

	"basegraph.app/gapengine/core/config"
	"basegraph.app/gapengine/internal/aggregate"
	"basegraph.app/gapengine/internal/recommend"
	"basegraph.app/gapengine/internal/scorer"
)

// Engine bundles the pure analysis stages built from configuration.
type Engine struct {
	Runner      *scorer.Runner
	Aggregator  *aggregate.Aggregator
	Recommender *recommend.Generator
}

// NewEngine validates the analysis settings and builds the scorer set,
// aggregator and recommendation generator. Invalid weights fail here so a
// misconfigured process never starts.
func NewEngine(cfg config.AnalysisConfig, observer scorer.Observer) (*Engine, error) {
	weights, err := aggregate.NewWeights(cfg.DimensionWeights)
	if err != nil {
		return nil, fmt.Errorf("dimension weights: %w", err)
	}
	agg, err := aggregate.New(weights, cfg.RevisionThreshold)
	if err != nil {
		return nil, fmt.Errorf("aggregator: %w", err)
	}

	opts := scorer.DefaultOptions()
	opts.RecencyWindowYears = cfg.RecencyWindowYears

	var runnerOpts []scorer.RunnerOption
	if observer != nil {
		runnerOpts = append(runnerOpts, scorer.WithObserver(observer))
	}

	return &Engine{
		Runner:      scorer.NewRunner(scorer.NewSet(opts), cfg.ScorerTimeout, runnerOpts...),
		Aggregator:  agg,
		Recommender: recommend.NewGenerator(recommend.DefaultLimit),
	}, nil
}
