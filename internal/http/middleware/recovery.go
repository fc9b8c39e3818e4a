package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"

	"basegraph.app/gapengine/common/logger"
	"github.com/gin-gonic/gin"
)

// PanicObserver is told about every recovered handler panic.
type PanicObserver interface {
	RequestPanicked(route string)
}

// Recovery turns a handler panic into a 500 with the usual error body. The
// log line carries the chapter or task the request was about, taken from the
// route params. observer may be nil.
func Recovery(observer PanicObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			ctx := logger.WithLogFields(c.Request.Context(), paramFields(c))
			slog.ErrorContext(ctx, "panic recovered",
				"error", rec,
				"method", c.Request.Method,
				"route", route,
				"stack", string(debug.Stack()),
			)
			if observer != nil {
				observer.RequestPanicked(route)
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "internal server error",
			})
		}()
		c.Next()
	}
}

func paramFields(c *gin.Context) logger.LogFields {
	var fields logger.LogFields
	if v, err := strconv.ParseInt(c.Param("content_id"), 10, 64); err == nil {
		fields.ContentID = &v
	}
	if v, err := strconv.ParseInt(c.Param("task_id"), 10, 64); err == nil {
		fields.TaskID = &v
	}
	return fields
}
