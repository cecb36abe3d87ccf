package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-roadmap/internal/platform/ctxutil"
)

func TestRespondErrorEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/api/roadmap", nil)
	c.Request = req.WithContext(ctxutil.WithTraceData(req.Context(), &ctxutil.TraceData{RequestID: "req-1"}))

	RespondError(c, http.StatusLocked, "roadmap_locked", errors.New("roadmap is locked"))

	if w.Code != http.StatusLocked {
		t.Fatalf("status: want=%d got=%d", http.StatusLocked, w.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "roadmap_locked" || env.Error.RequestID != "req-1" || env.Error.Message != "roadmap is locked" {
		t.Fatalf("envelope: %+v", env.Error)
	}
}

func TestRespondErrorWithoutCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondError(c, http.StatusServiceUnavailable, "db_unavailable", nil)

	var env ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Message != http.StatusText(http.StatusServiceUnavailable) || env.Error.RequestID != "" {
		t.Fatalf("envelope: %+v", env.Error)
	}
}
