package router

import (
	"basegraph.app/gapengine/internal/http/handler"
	"github.com/gin-gonic/gin"
)

func GapAnalysisRouter(rg *gin.RouterGroup, h *handler.GapAnalysisHandler) {
	chapters := rg.Group("/chapters/:content_id/gap-analysis")
	{
		chapters.POST("", h.Submit)
		chapters.GET("/summary", h.Summary)
		chapters.GET("/history", h.History)
	}

	rg.GET("/gap-analysis/tasks/:task_id", h.Job)
}
