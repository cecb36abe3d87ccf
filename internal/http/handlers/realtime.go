package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-roadmap/internal/http/response"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
	"github.com/yungbote/neurobridge-roadmap/internal/realtime"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *realtime.Hub

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.Client
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		Log:     log.With("handler", "RealtimeHandler"),
		Hub:     hub,
		clients: make(map[uuid.UUID]*realtime.Client),
	}
}

// GET /api/roadmap/events
//
// Every stream is subscribed to the learner's channel; concurrent tabs each
// get their own client.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	learnerID := ctxutil.LearnerID(c.Request.Context())
	if learnerID == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errMissingLearner)
		return
	}

	client := h.Hub.NewClient(learnerID)
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.Log.Info("SSE stream open", "learner_id", learnerID, "client_id", client.ID.String())
	h.Hub.AddChannel(client, realtime.LearnerChannel(learnerID))
	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	delete(h.clients, client.ID)
	h.mu.Unlock()
	h.Hub.CloseClient(client)
}

// Open reports the number of streams currently served.
func (h *RealtimeHandler) Open() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
