package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/gapengine/internal/http/handler"
	"basegraph.app/gapengine/internal/model"
	"basegraph.app/gapengine/internal/service"
)

var _ = Describe("GapAnalysisHandler", func() {
	var (
		router *gin.Engine
		svc    *mockGapAnalysisService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockGapAnalysisService{}
		h := handler.NewGapAnalysisHandler(svc)
		router.POST("/chapters/:content_id/gap-analysis", h.Submit)
		router.GET("/chapters/:content_id/gap-analysis/summary", h.Summary)
		router.GET("/chapters/:content_id/gap-analysis/history", h.History)
		router.GET("/gap-analysis/tasks/:task_id", h.Job)
	})

	do := func(method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
		req := httptest.NewRequest(method, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		var body map[string]interface{}
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		return w, body
	}

	queued := func(taskID int64) *model.Job {
		return &model.Job{
			TaskID:     taskID,
			ContentRef: model.ContentRef{ContentID: 42, ContentVersion: 3},
			State:      model.JobStateQueued,
			CreatedAt:  time.Now(),
		}
	}

	Describe("Submit", func() {
		It("returns 202 with the new task id", func() {
			svc.submitFn = func(_ context.Context, contentID int64) (*service.SubmitResult, error) {
				Expect(contentID).To(Equal(int64(42)))
				return &service.SubmitResult{Job: queued(1900000000000000001), Created: true}, nil
			}

			w, body := do(http.MethodPost, "/chapters/42/gap-analysis")

			Expect(w.Code).To(Equal(http.StatusAccepted))
			Expect(body["task_id"]).To(Equal("1900000000000000001"))
			Expect(body["state"]).To(Equal("queued"))
			Expect(body["deduplicated"]).To(BeFalse())
		})

		It("returns 200 with the existing task id when deduplicated", func() {
			svc.submitFn = func(_ context.Context, _ int64) (*service.SubmitResult, error) {
				job := queued(7)
				job.State = model.JobStateRunning
				return &service.SubmitResult{Job: job, Created: false}, nil
			}

			w, body := do(http.MethodPost, "/chapters/42/gap-analysis")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(body["task_id"]).To(Equal("7"))
			Expect(body["deduplicated"]).To(BeTrue())
		})

		It("returns 404 for an unknown chapter", func() {
			svc.submitFn = func(_ context.Context, _ int64) (*service.SubmitResult, error) {
				return nil, service.ErrChapterNotFound
			}

			w, _ := do(http.MethodPost, "/chapters/42/gap-analysis")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a malformed content id", func() {
			w, body := do(http.MethodPost, "/chapters/abc/gap-analysis")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(body["error"]).To(Equal("invalid content_id"))
		})

		It("returns 500 on service error", func() {
			svc.submitFn = func(_ context.Context, _ int64) (*service.SubmitResult, error) {
				return nil, errors.New("redis down")
			}

			w, body := do(http.MethodPost, "/chapters/42/gap-analysis")
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(body["error"]).NotTo(ContainSubstring("redis"))
		})
	})

	Describe("Summary", func() {
		result := func() *model.GapAnalysisResult {
			return &model.GapAnalysisResult{
				ID:                10,
				TaskID:            7,
				ContentRef:        model.ContentRef{ContentID: 42, ContentVersion: 3},
				CompletenessScore: 0.64,
				TotalGaps:         1,
				SeverityDistribution: map[model.GapSeverity]int{
					model.GapSeverityHigh: 1,
				},
				GapCategoriesSummary: map[model.GapCategory]int{
					model.GapCategorySourceCoverage: 1,
				},
				RequiresRevision: true,
				DimensionStatuses: map[model.GapCategory]model.DimensionStatus{
					model.GapCategorySourceCoverage: model.DimensionStatusOK,
				},
				Gaps: []model.Gap{{ID: "g1", Category: model.GapCategorySourceCoverage, Severity: model.GapSeverityHigh}},
			}
		}

		It("returns 200 with the latest result", func() {
			svc.getSummaryFn = func(_ context.Context, _ int64, version *int64) (*model.GapAnalysisResult, error) {
				Expect(version).To(BeNil())
				return result(), nil
			}

			w, body := do(http.MethodGet, "/chapters/42/gap-analysis/summary")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(body["completeness_score"]).To(BeNumerically("~", 0.64))
			Expect(body["requires_revision"]).To(BeTrue())
			Expect(body["top_recommendations"]).To(BeEmpty())
			Expect(body).NotTo(HaveKey("gaps"))
		})

		It("includes the gap list on request", func() {
			svc.getSummaryFn = func(_ context.Context, _ int64, _ *int64) (*model.GapAnalysisResult, error) {
				return result(), nil
			}

			_, body := do(http.MethodGet, "/chapters/42/gap-analysis/summary?include=gaps")
			Expect(body["gaps"]).To(HaveLen(1))
		})

		It("passes an exact version through", func() {
			svc.getSummaryFn = func(_ context.Context, _ int64, version *int64) (*model.GapAnalysisResult, error) {
				Expect(version).NotTo(BeNil())
				Expect(*version).To(Equal(int64(2)))
				return result(), nil
			}

			w, _ := do(http.MethodGet, "/chapters/42/gap-analysis/summary?version=2")
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("returns 400 for a malformed version", func() {
			w, _ := do(http.MethodGet, "/chapters/42/gap-analysis/summary?version=x")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 when the chapter has no result yet", func() {
			svc.getSummaryFn = func(_ context.Context, _ int64, _ *int64) (*model.GapAnalysisResult, error) {
				return nil, service.ErrResultNotFound
			}

			w, _ := do(http.MethodGet, "/chapters/42/gap-analysis/summary")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("History", func() {
		It("returns results newest first with the requested limit", func() {
			svc.getHistoryFn = func(_ context.Context, _ int64, limit int) ([]model.GapAnalysisResult, error) {
				Expect(limit).To(Equal(2))
				return []model.GapAnalysisResult{{ID: 2}, {ID: 1}}, nil
			}

			w, body := do(http.MethodGet, "/chapters/42/gap-analysis/history?limit=2")

			Expect(w.Code).To(Equal(http.StatusOK))
			results := body["results"].([]interface{})
			Expect(results).To(HaveLen(2))
			Expect(results[0].(map[string]interface{})["id"]).To(Equal("2"))
		})

		It("uses the default limit", func() {
			svc.getHistoryFn = func(_ context.Context, _ int64, limit int) ([]model.GapAnalysisResult, error) {
				Expect(limit).To(Equal(service.DefaultHistoryLimit))
				return []model.GapAnalysisResult{}, nil
			}

			w, body := do(http.MethodGet, "/chapters/42/gap-analysis/history")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(body["results"]).To(BeEmpty())
		})

		It("returns 400 for a bad limit", func() {
			w, _ := do(http.MethodGet, "/chapters/42/gap-analysis/history?limit=-1")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Job", func() {
		It("returns the job state and failure reason", func() {
			svc.getJobFn = func(_ context.Context, taskID int64) (*model.Job, error) {
				job := queued(taskID)
				job.State = model.JobStateFailed
				reason := "all scorers failed"
				job.Error = &reason
				return job, nil
			}

			w, body := do(http.MethodGet, "/gap-analysis/tasks/9")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(body["state"]).To(Equal("failed"))
			Expect(body["error"]).To(Equal("all scorers failed"))
		})

		It("returns 404 for an unknown task", func() {
			svc.getJobFn = func(_ context.Context, _ int64) (*model.Job, error) {
				return nil, service.ErrJobNotFound
			}

			w, _ := do(http.MethodGet, "/gap-analysis/tasks/9")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
