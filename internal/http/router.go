package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/neurobridge-roadmap/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-roadmap/internal/http/middleware"
	"github.com/yungbote/neurobridge-roadmap/internal/observability"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	RoadmapHandler  *httpH.RoadmapHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Roadmap
		if cfg.RoadmapHandler != nil {
			protected.POST("/roadmap/bootstrap", cfg.RoadmapHandler.Bootstrap)
			protected.GET("/roadmap", cfg.RoadmapHandler.GetRoadmap)
			protected.POST("/roadmap/slots/:slot_id/start", cfg.RoadmapHandler.StartSlot)
			protected.POST("/roadmap/submissions", cfg.RoadmapHandler.Submit)
			protected.GET("/roadmap/next", cfg.RoadmapHandler.NextTask)
			protected.GET("/learning-state", cfg.RoadmapHandler.LearningState)
			protected.GET("/decision-context", cfg.RoadmapHandler.DecisionContext)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/roadmap/events", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}
