package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"basegraph.app/gapengine/internal/http/dto"
	"basegraph.app/gapengine/internal/service"
	"github.com/gin-gonic/gin"
)

type GapAnalysisHandler struct {
	svc service.GapAnalysisService
}

func NewGapAnalysisHandler(svc service.GapAnalysisService) *GapAnalysisHandler {
	return &GapAnalysisHandler{svc: svc}
}

// Submit starts an analysis of the chapter's current version. A new job is
// answered with 202; an analysis already queued or running with 200 and its
// task id.
func (h *GapAnalysisHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()

	contentID, ok := parseID(c, "content_id")
	if !ok {
		return
	}

	res, err := h.svc.Submit(ctx, contentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidContentID):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content_id"})
		case errors.Is(err, service.ErrChapterNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
		default:
			slog.ErrorContext(ctx, "failed to submit gap analysis", "error", err, "content_id", contentID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit gap analysis"})
		}
		return
	}

	status := http.StatusAccepted
	if !res.Created {
		status = http.StatusOK
	}
	c.JSON(status, dto.ToSubmitGapAnalysisResponse(res.Job, res.Created))
}

// Summary returns the newest persisted result, optionally for an exact
// chapter version. In-flight jobs never affect it.
func (h *GapAnalysisHandler) Summary(c *gin.Context) {
	ctx := c.Request.Context()

	contentID, ok := parseID(c, "content_id")
	if !ok {
		return
	}

	var version *int64
	if raw := c.Query("version"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
			return
		}
		version = &v
	}

	result, err := h.svc.GetSummary(ctx, contentID, version)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidContentID):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content_id"})
		case errors.Is(err, service.ErrResultNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "chapter has not been analyzed yet"})
		default:
			slog.ErrorContext(ctx, "failed to load gap analysis summary", "error", err, "content_id", contentID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load gap analysis summary"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToGapAnalysisResponse(result, c.Query("include") == "gaps"))
}

func (h *GapAnalysisHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	contentID, ok := parseID(c, "content_id")
	if !ok {
		return
	}

	limit := service.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = l
	}

	results, err := h.svc.GetHistory(ctx, contentID, limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidContentID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content_id"})
			return
		}
		slog.ErrorContext(ctx, "failed to load gap analysis history", "error", err, "content_id", contentID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load gap analysis history"})
		return
	}

	resp := dto.GapAnalysisHistoryResponse{
		Results: make([]*dto.GapAnalysisResponse, len(results)),
	}
	for i := range results {
		resp.Results[i] = dto.ToGapAnalysisResponse(&results[i], false)
	}
	c.JSON(http.StatusOK, resp)
}

// Job reports the state of one analysis job, including the failure reason
// of a failed one.
func (h *GapAnalysisHandler) Job(c *gin.Context) {
	ctx := c.Request.Context()

	taskID, ok := parseID(c, "task_id")
	if !ok {
		return
	}

	job, err := h.svc.GetJob(ctx, taskID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load gap analysis job", "error", err, "task_id", taskID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
		return
	}

	c.JSON(http.StatusOK, dto.ToJobResponse(job))
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return id, true
}
