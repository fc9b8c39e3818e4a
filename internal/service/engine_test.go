package service_test

import (
	"time"

	"basegraph.app/gapengine/core/config"
	"basegraph.app/gapengine/internal/aggregate"
	"basegraph.app/gapengine/internal/service"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NewEngine", func() {
	analysisConfig := func() config.AnalysisConfig {
		weights := make(map[string]float64, len(config.DefaultDimensionWeights))
		for k, v := range config.DefaultDimensionWeights {
			weights[k] = v
		}
		return config.AnalysisConfig{
			RevisionThreshold:  0.7,
			DimensionWeights:   weights,
			ScorerTimeout:      time.Second,
			WorkerPoolSize:     1,
			StaleResultPolicy:  config.StaleResultPersist,
			RecencyWindowYears: 5,
		}
	}

	It("builds every stage from valid settings", func() {
		engine, err := service.NewEngine(analysisConfig(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(engine.Runner).NotTo(BeNil())
		Expect(engine.Aggregator.Threshold()).To(Equal(0.7))
		Expect(engine.Recommender).NotTo(BeNil())
	})

	It("rejects weights missing a dimension", func() {
		cfg := analysisConfig()
		delete(cfg.DimensionWeights, "section_balance")
		cfg.DimensionWeights["content_completeness"] += 0.15

		_, err := service.NewEngine(cfg, nil)
		Expect(err).To(MatchError(aggregate.ErrInvalidWeights))
	})
})
