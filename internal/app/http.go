package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-roadmap/internal/http"
	httpH "github.com/yungbote/neurobridge-roadmap/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-roadmap/internal/http/middleware"
	"github.com/yungbote/neurobridge-roadmap/internal/observability"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
	"github.com/yungbote/neurobridge-roadmap/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Roadmap  *httpH.RoadmapHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services, hub *realtime.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Roadmap:  httpH.NewRoadmapHandler(log, services.Roadmap),
		Realtime: httpH.NewRealtimeHandler(log, hub),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         metrics,
		AuthMiddleware:  middleware.Auth,
		RoadmapHandler:  handlers.Roadmap,
		RealtimeHandler: handlers.Realtime,
		HealthHandler:   handlers.Health,
	})
}
