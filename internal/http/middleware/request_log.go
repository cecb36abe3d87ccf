package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-roadmap/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

// RequestLogger writes one line per request once the handler returns. Probe
// routes log at debug; learner ids are hashed by the logger.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()

		ctx := c.Request.Context()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(began).Milliseconds(),
			"request_id", ctxutil.RequestID(ctx),
			"trace_id", ctxutil.TraceID(ctx),
		}
		if id := ctxutil.LearnerID(ctx); id != "" {
			kv = append(kv, "learner_id", id)
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", kv...)
		case status >= 400:
			log.Warn("HTTP request", kv...)
		case unmeteredRoutes[route]:
			log.Debug("HTTP request", kv...)
		default:
			log.Info("HTTP request", kv...)
		}
	}
}
