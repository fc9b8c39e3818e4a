package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/gapengine/core/config"
	"basegraph.app/gapengine/internal/aggregate"
	"basegraph.app/gapengine/internal/model"
	"basegraph.app/gapengine/internal/queue"
	"basegraph.app/gapengine/internal/recommend"
	"basegraph.app/gapengine/internal/scorer"
	"basegraph.app/gapengine/internal/service"
	"basegraph.app/gapengine/internal/store/memstore"
)

func uniform(score float64) []model.DimensionResult {
	results := make([]model.DimensionResult, 0, len(model.GapCategories))
	for _, c := range model.GapCategories {
		results = append(results, model.DimensionResult{Category: c, Score: score, Status: model.DimensionStatusOK, Gaps: []model.Gap{}})
	}
	return results
}

func allFailed() []model.DimensionResult {
	results := make([]model.DimensionResult, 0, len(model.GapCategories))
	for _, c := range model.GapCategories {
		results = append(results, model.DimensionResult{Category: c, Status: model.DimensionStatusFailed, Error: scorer.ErrTimeout.Error(), Gaps: []model.Gap{}})
	}
	return results
}

var _ = Describe("GapAnalysisService", func() {
	var (
		ctx      context.Context
		mem      *memstore.Store
		enqueuer *mockEnqueuer
		runner   *mockRunner
		recorder *mockRecorder
		txRunner service.TxRunner
		policy   config.StaleResultPolicy
		svc      service.GapAnalysis
	)

	const chapterID = int64(42)

	build := func() {
		agg, err := aggregate.New(aggregate.DefaultWeights(), aggregate.DefaultRevisionThreshold)
		Expect(err).NotTo(HaveOccurred())
		svc = service.NewGapAnalysisService(service.GapAnalysisDeps{
			Chapters:    mem.Chapters(),
			Jobs:        mem.Jobs(),
			Results:     mem.Results(),
			TxRunner:    txRunner,
			Enqueuer:    enqueuer,
			Runner:      runner,
			Aggregator:  agg,
			Recommender: recommend.NewGenerator(recommend.DefaultLimit),
			StalePolicy: policy,
			Recorder:    recorder,
		})
	}

	submitAndRun := func() *model.Job {
		res, err := svc.Submit(ctx, chapterID)
		Expect(err).NotTo(HaveOccurred())
		_ = svc.Execute(ctx, res.Job.TaskID)
		job, err := svc.GetJob(ctx, res.Job.TaskID)
		Expect(err).NotTo(HaveOccurred())
		return job
	}

	BeforeEach(func() {
		ctx = context.Background()
		mem = memstore.New()
		mem.PutChapter(model.Chapter{ID: chapterID, Version: 3, Title: "Cells", Body: "<p>Cells divide.</p>"})
		enqueuer = &mockEnqueuer{}
		runner = &mockRunner{runFn: func(context.Context, scorer.Content) []model.DimensionResult { return uniform(1.0) }}
		recorder = newMockRecorder()
		txRunner = service.NewDirectTxRunner(mem)
		policy = config.StaleResultPersist
		build()
	})

	Describe("Submit", func() {
		It("registers a queued job for the chapter's current version and enqueues it", func() {
			res, err := svc.Submit(ctx, chapterID)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Created).To(BeTrue())
			Expect(res.Job.State).To(Equal(model.JobStateQueued))
			Expect(res.Job.ContentRef).To(Equal(model.ContentRef{ContentID: chapterID, ContentVersion: 3}))

			sent := enqueuer.sent()
			Expect(sent).To(HaveLen(1))
			Expect(sent[0].TaskID).To(Equal(res.Job.TaskID))
			Expect(sent[0].ContentVersion).To(Equal(int64(3)))
			Expect(recorder.outcomes).To(Equal([]string{service.SubmitCreated}))
		})

		It("returns the same task id for repeated submissions while a job is active", func() {
			first, err := svc.Submit(ctx, chapterID)
			Expect(err).NotTo(HaveOccurred())
			second, err := svc.Submit(ctx, chapterID)
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Created).To(BeFalse())
			Expect(second.Job.TaskID).To(Equal(first.Job.TaskID))
			Expect(enqueuer.sent()).To(HaveLen(1))
			Expect(recorder.outcomes).To(Equal([]string{service.SubmitCreated, service.SubmitDeduped}))
		})

		It("rejects unknown chapters", func() {
			_, err := svc.Submit(ctx, 999)
			Expect(err).To(MatchError(service.ErrChapterNotFound))
			Expect(enqueuer.sent()).To(BeEmpty())
		})

		It("rejects non-positive ids", func() {
			_, err := svc.Submit(ctx, 0)
			Expect(err).To(MatchError(service.ErrInvalidContentID))
		})

		It("surfaces enqueue failures and leaves no active job behind", func() {
			enqueuer.enqueueFn = func(context.Context, queue.Message) error { return errors.New("redis unavailable") }

			_, err := svc.Submit(ctx, chapterID)
			Expect(err).To(HaveOccurred())

			enqueuer.enqueueFn = nil
			res, err := svc.Submit(ctx, chapterID)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Created).To(BeTrue())
		})
	})

	Describe("GetSummary", func() {
		It("returns not found before the job completes and the result after", func() {
			res, err := svc.Submit(ctx, chapterID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.GetSummary(ctx, chapterID, nil)
			Expect(err).To(MatchError(service.ErrResultNotFound))

			Expect(svc.Execute(ctx, res.Job.TaskID)).To(Succeed())

			summary, err := svc.GetSummary(ctx, chapterID, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.TaskID).To(Equal(res.Job.TaskID))
			Expect(summary.CompletenessScore).To(Equal(1.0))
			Expect(summary.TotalGaps).To(BeZero())
			Expect(summary.RequiresRevision).To(BeFalse())
		})

		It("answers version-exact queries", func() {
			submitAndRun()
			mem.PutChapter(model.Chapter{ID: chapterID, Version: 4, Body: "<p>Updated.</p>"})
			runner.runFn = func(context.Context, scorer.Content) []model.DimensionResult { return uniform(0.5) }
			submitAndRun()

			v3, err := svc.GetSummary(ctx, chapterID, ptr(int64(3)))
			Expect(err).NotTo(HaveOccurred())
			Expect(v3.CompletenessScore).To(Equal(1.0))

			latest, err := svc.GetSummary(ctx, chapterID, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.ContentRef.ContentVersion).To(Equal(int64(4)))

			_, err = svc.GetSummary(ctx, chapterID, ptr(int64(9)))
			Expect(err).To(MatchError(service.ErrResultNotFound))
		})
	})

	Describe("Execute", func() {
		It("persists the aggregated result with recommendations", func() {
			runner.runFn = func(context.Context, scorer.Content) []model.DimensionResult {
				results := uniform(0.9)
				results[4].Gaps = []model.Gap{{
					ID: "crit", Category: model.GapCategoryCriticalInformation, Severity: model.GapSeverityCritical,
					Description: "Dosage is missing", Evidence: "dosage",
				}}
				return results
			}

			job := submitAndRun()

			Expect(job.State).To(Equal(model.JobStateSucceeded))
			Expect(job.StartedAt).NotTo(BeNil())
			Expect(job.FinishedAt).NotTo(BeNil())

			summary, err := svc.GetSummary(ctx, chapterID, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.SeverityDistribution).To(Equal(map[model.GapSeverity]int{model.GapSeverityCritical: 1}))
			Expect(summary.RequiresRevision).To(BeTrue())
			Expect(summary.TopRecommendations).To(HaveLen(1))
			Expect(summary.TopRecommendations[0].Action).To(Equal(model.ActionAddCriticalInformation))
			Expect(summary.Gaps).To(HaveLen(1))
			Expect(recorder.results).To(Equal(1))
			Expect(recorder.finished[model.JobStateSucceeded]).To(HaveLen(1))
		})

		It("renormalizes when a scorer times out", func() {
			runner.runFn = func(context.Context, scorer.Content) []model.DimensionResult {
				results := uniform(1.0)
				results[1] = model.DimensionResult{Category: model.GapCategorySourceCoverage, Status: model.DimensionStatusFailed, Error: scorer.ErrTimeout.Error()}
				return results
			}

			Expect(submitAndRun().State).To(Equal(model.JobStateSucceeded))

			summary, err := svc.GetSummary(ctx, chapterID, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.DimensionStatuses[model.GapCategorySourceCoverage]).To(Equal(model.DimensionStatusFailed))
			Expect(summary.CompletenessScore).To(BeNumerically("~", 1.0, 1e-9))
		})

		Context("when every scorer fails", func() {
			BeforeEach(func() {
				runner.runFn = func(context.Context, scorer.Content) []model.DimensionResult { return allFailed() }
			})

			It("fails the job and persists nothing", func() {
				res, err := svc.Submit(ctx, chapterID)
				Expect(err).NotTo(HaveOccurred())

				err = svc.Execute(ctx, res.Job.TaskID)
				Expect(err).To(MatchError(aggregate.ErrAllScorersFailed))

				job, _ := svc.GetJob(ctx, res.Job.TaskID)
				Expect(job.State).To(Equal(model.JobStateFailed))
				Expect(*job.Error).To(Equal(aggregate.ErrAllScorersFailed.Error()))

				_, err = svc.GetSummary(ctx, chapterID, nil)
				Expect(err).To(MatchError(service.ErrResultNotFound))
				Expect(recorder.finished[model.JobStateFailed]).To(Equal([]string{"all_scorers_failed"}))
			})

			It("keeps serving the prior result", func() {
				runner.runFn = func(context.Context, scorer.Content) []model.DimensionResult { return uniform(0.8) }
				submitAndRun()
				prior, err := svc.GetSummary(ctx, chapterID, nil)
				Expect(err).NotTo(HaveOccurred())

				runner.runFn = func(context.Context, scorer.Content) []model.DimensionResult { return allFailed() }
				Expect(submitAndRun().State).To(Equal(model.JobStateFailed))

				after, err := svc.GetSummary(ctx, chapterID, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(after.ID).To(Equal(prior.ID))

				history, err := svc.GetHistory(ctx, chapterID, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(history).To(HaveLen(1))
			})
		})

		Context("when the chapter changes mid-analysis", func() {
			BeforeEach(func() {
				runner.runFn = func(_ context.Context, c scorer.Content) []model.DimensionResult {
					mem.PutChapter(model.Chapter{ID: chapterID, Version: c.Chapter.Version + 1})
					return uniform(0.95)
				}
			})

			It("persists the result tagged with the analyzed version by default", func() {
				Expect(submitAndRun().State).To(Equal(model.JobStateSucceeded))

				summary, err := svc.GetSummary(ctx, chapterID, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.ContentRef.ContentVersion).To(Equal(int64(3)))

				_, err = svc.GetSummary(ctx, chapterID, ptr(int64(4)))
				Expect(err).To(MatchError(service.ErrResultNotFound))
			})

			It("discards the result when configured to", func() {
				policy = config.StaleResultDiscard
				build()

				job := submitAndRun()

				Expect(job.State).To(Equal(model.JobStateFailed))
				Expect(*job.Error).To(ContainSubstring(service.ErrStaleContent.Error()))
				_, err := svc.GetSummary(ctx, chapterID, nil)
				Expect(err).To(MatchError(service.ErrResultNotFound))
			})
		})

		It("fails the job with a persistence error when saving fails", func() {
			txRunner = &mockTxRunner{withTxFn: func(context.Context, func(service.StoreProvider) error) error {
				return errors.New("connection reset")
			}}
			build()

			res, err := svc.Submit(ctx, chapterID)
			Expect(err).NotTo(HaveOccurred())
			err = svc.Execute(ctx, res.Job.TaskID)

			Expect(err).To(MatchError(service.ErrPersistence))
			job, _ := svc.GetJob(ctx, res.Job.TaskID)
			Expect(job.State).To(Equal(model.JobStateFailed))
			Expect(*job.Error).To(ContainSubstring("connection reset"))
		})

		It("fails the job when the chapter disappeared", func() {
			res, err := svc.Submit(ctx, chapterID)
			Expect(err).NotTo(HaveOccurred())
			fresh := memstore.New()
			// Same jobs, no chapters: rebuild over a store sharing nothing but the job.
			Expect(fresh.Jobs().Create(ctx, &model.Job{TaskID: res.Job.TaskID, ContentRef: res.Job.ContentRef})).To(Succeed())
			mem = fresh
			txRunner = service.NewDirectTxRunner(mem)
			build()

			err = svc.Execute(ctx, res.Job.TaskID)

			Expect(err).To(MatchError(service.ErrChapterNotFound))
			job, _ := svc.GetJob(ctx, res.Job.TaskID)
			Expect(job.State).To(Equal(model.JobStateFailed))
		})

		It("is a no-op for terminal jobs", func() {
			job := submitAndRun()
			Expect(svc.Execute(ctx, job.TaskID)).To(Succeed())
			Expect(recorder.results).To(Equal(1))
		})

		It("refuses to run a job that is already running", func() {
			res, _ := svc.Submit(ctx, chapterID)
			_, err := mem.Jobs().Start(ctx, res.Job.TaskID)
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.Execute(ctx, res.Job.TaskID)).To(MatchError(service.ErrJobNotQueued))
		})

		It("reports unknown tasks", func() {
			Expect(svc.Execute(ctx, 12345)).To(MatchError(service.ErrJobNotFound))
		})
	})

	Describe("Recover", func() {
		It("runs queued jobs", func() {
			res, _ := svc.Submit(ctx, chapterID)
			Expect(svc.Recover(ctx, res.Job.TaskID)).To(Succeed())

			job, _ := svc.GetJob(ctx, res.Job.TaskID)
			Expect(job.State).To(Equal(model.JobStateSucceeded))
		})

		It("fails jobs abandoned mid-run", func() {
			res, _ := svc.Submit(ctx, chapterID)
			_, err := mem.Jobs().Start(ctx, res.Job.TaskID)
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.Recover(ctx, res.Job.TaskID)).To(Succeed())

			job, _ := svc.GetJob(ctx, res.Job.TaskID)
			Expect(job.State).To(Equal(model.JobStateFailed))
			Expect(*job.Error).To(Equal(service.ErrJobAbandoned.Error()))

			next, err := svc.Submit(ctx, chapterID)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Created).To(BeTrue())
		})

		It("ignores finished jobs", func() {
			job := submitAndRun()
			Expect(svc.Recover(ctx, job.TaskID)).To(Succeed())
		})
	})

	Describe("GetHistory", func() {
		It("lists results newest first", func() {
			submitAndRun()
			time.Sleep(time.Millisecond)
			runner.runFn = func(context.Context, scorer.Content) []model.DimensionResult { return uniform(0.4) }
			submitAndRun()

			history, err := svc.GetHistory(ctx, chapterID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))
			Expect(history[0].CompletenessScore).To(BeNumerically("~", 0.4, 1e-9))
			Expect(history[0].RequiresRevision).To(BeTrue())
		})

		It("returns an empty list for chapters never analyzed", func() {
			history, err := svc.GetHistory(ctx, chapterID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())
			Expect(history).NotTo(BeNil())
		})
	})

	Describe("GetJob", func() {
		It("returns ErrJobNotFound for unknown tasks", func() {
			_, err := svc.GetJob(ctx, 1)
			Expect(err).To(MatchError(service.ErrJobNotFound))
		})
	})
})

func ptr[T any](v T) *T {
	return &v
}
