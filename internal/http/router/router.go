package router

import (
	"net/http"

	"basegraph.app/gapengine/internal/http/handler"
	"basegraph.app/gapengine/internal/service"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	// Served at /metrics when set.
	MetricsHandler http.Handler
}

func SetupRoutes(router *gin.Engine, svc service.GapAnalysisService, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	GapAnalysisRouter(router.Group(""), handler.NewGapAnalysisHandler(svc))
}
