package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-roadmap/internal/observability"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

func TestMetricsSkipsProbeRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("METRICS_ENABLED", "true")
	m := observability.Init(logger.Nop())
	if m == nil {
		t.Fatalf("metrics not enabled")
	}

	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/healthcheck", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/roadmap/next", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/healthcheck", "/api/roadmap/next", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `route="/api/roadmap/next",status="200"`) {
		t.Fatalf("api route not recorded:\n%s", out)
	}
	if !strings.Contains(out, `route="unmatched",status="404"`) {
		t.Fatalf("unmatched route not recorded:\n%s", out)
	}
	if strings.Contains(out, `route="/healthcheck"`) {
		t.Fatalf("probe route recorded:\n%s", out)
	}
}

func TestMetricsNilIsPassThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("status: want=%d got=%d", http.StatusTeapot, w.Code)
	}
}
