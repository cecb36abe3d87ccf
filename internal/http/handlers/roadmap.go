package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/http/response"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/decision"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/governance"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/market"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/remediation"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/apierr"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
	"github.com/yungbote/neurobridge-roadmap/internal/services"
)

type RoadmapHandler struct {
	log     *logger.Logger
	roadmap services.RoadmapService
}

func NewRoadmapHandler(log *logger.Logger, svc services.RoadmapService) *RoadmapHandler {
	return &RoadmapHandler{log: log.With("handler", "RoadmapHandler"), roadmap: svc}
}

var errMissingLearner = errors.New("missing learner identity")

func learnerFrom(c *gin.Context) (string, bool) {
	id := ctxutil.LearnerID(c.Request.Context())
	if id == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errMissingLearner)
		return "", false
	}
	return id, true
}

type bootstrapRequest struct {
	Reset bool `json:"reset"`
}

type roadmapResponse struct {
	Roadmap *roadmap.Roadmap `json:"roadmap"`
	Created bool             `json:"created,omitempty"`
}

// POST /api/roadmap/bootstrap
func (h *RoadmapHandler) Bootstrap(c *gin.Context) {
	learnerID, ok := learnerFrom(c)
	if !ok {
		return
	}
	var req bootstrapRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	r, created, err := h.roadmap.Bootstrap(c.Request.Context(), learnerID, req.Reset)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, roadmapResponse{Roadmap: r, Created: created})
}

// GET /api/roadmap
func (h *RoadmapHandler) GetRoadmap(c *gin.Context) {
	learnerID, ok := learnerFrom(c)
	if !ok {
		return
	}
	r, err := h.roadmap.Get(c.Request.Context(), learnerID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, roadmapResponse{Roadmap: r})
}

type startSlotRequest struct {
	TaskTemplateID string `json:"task_template_id"`
	TaskInstanceID string `json:"task_instance_id"`
}

type startSlotResponse struct {
	Roadmap  *roadmap.Roadmap        `json:"roadmap"`
	Instance roadmap.TaskInstance    `json:"task_instance"`
	Template curriculum.TaskTemplate `json:"task_template"`
}

// POST /api/roadmap/slots/:slot_id/start
func (h *RoadmapHandler) StartSlot(c *gin.Context) {
	learnerID, ok := learnerFrom(c)
	if !ok {
		return
	}
	var req startSlotRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	res, err := h.roadmap.StartSlot(c.Request.Context(), services.StartSlotRequest{
		LearnerID:      learnerID,
		SlotID:         strings.TrimSpace(c.Param("slot_id")),
		TemplateID:     req.TaskTemplateID,
		TaskInstanceID: req.TaskInstanceID,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, startSlotResponse{Roadmap: res.Roadmap, Instance: res.Instance, Template: res.Template})
}

type submitRequest struct {
	TaskInstanceID string         `json:"task_instance_id" binding:"required"`
	Payload        map[string]any `json:"payload"`
}

type outcomeView struct {
	Passed              bool   `json:"passed"`
	RemediationRequired bool   `json:"remediation_required"`
	Terminal            bool   `json:"terminal"`
	UnlockedSlotID      string `json:"unlocked_slot_id,omitempty"`
	PhaseCompleted      bool   `json:"phase_completed,omitempty"`
	RoadmapCompleted    bool   `json:"roadmap_completed,omitempty"`
}

type submitResponse struct {
	SubmissionID string                   `json:"submission_id"`
	Evaluation   mastery.EvaluationResult `json:"evaluation"`
	Outcome      outcomeView              `json:"outcome"`
	TaskInstance roadmap.TaskInstance     `json:"task_instance"`
	Remediation  *remediation.Plan        `json:"remediation,omitempty"`
	Unlocked     []string                 `json:"unlocked,omitempty"`
	SkillDeltas  map[string]float64       `json:"skill_deltas"`
	State        *mastery.State           `json:"learning_state"`
	Roadmap      *roadmap.Roadmap         `json:"roadmap"`
}

// POST /api/roadmap/submissions
func (h *RoadmapHandler) Submit(c *gin.Context) {
	learnerID, ok := learnerFrom(c)
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondServiceError(c, apierr.InvalidRequest(err))
		return
	}
	res, err := h.roadmap.Submit(c.Request.Context(), services.SubmitRequest{
		LearnerID:      learnerID,
		TaskInstanceID: req.TaskInstanceID,
		Payload:        req.Payload,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if res.Attempts > 1 {
		h.log.Info("Submission committed after retry", "learner_id", learnerID, "attempts", res.Attempts)
	}
	response.RespondOK(c, submitResponse{
		SubmissionID: res.SubmissionID,
		Evaluation:   res.Evaluation,
		Outcome: outcomeView{
			Passed:              res.Outcome.Passed,
			RemediationRequired: res.Outcome.RemediationRequired,
			Terminal:            res.Outcome.Terminal,
			UnlockedSlotID:      res.Outcome.UnlockedSlotID,
			PhaseCompleted:      res.Outcome.PhaseCompleted,
			RoadmapCompleted:    res.Outcome.RoadmapCompleted,
		},
		TaskInstance: res.Outcome.Instance,
		Remediation:  res.Remediation,
		Unlocked:     res.Unlocked,
		SkillDeltas:  res.Deltas,
		State:        res.State,
		Roadmap:      res.Roadmap,
	})
}

type nextTaskResponse struct {
	Mode       string                   `json:"mode"`
	Slot       *roadmap.Slot            `json:"slot,omitempty"`
	Template   *curriculum.TaskTemplate `json:"task_template,omitempty"`
	Decision   *market.Decision         `json:"market_decision,omitempty"`
	Governance governance.Report        `json:"governance"`
	Context    *decision.Context        `json:"decision_context"`
	Roadmap    *roadmap.Roadmap         `json:"roadmap"`
}

// GET /api/roadmap/next
func (h *RoadmapHandler) NextTask(c *gin.Context) {
	learnerID, ok := learnerFrom(c)
	if !ok {
		return
	}
	res, err := h.roadmap.NextTask(c.Request.Context(), learnerID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, nextTaskResponse{
		Mode:       res.Mode,
		Slot:       res.Slot,
		Template:   res.Template,
		Decision:   res.Decision,
		Governance: res.Governance,
		Context:    res.Context,
		Roadmap:    res.Roadmap,
	})
}

// GET /api/learning-state
func (h *RoadmapHandler) LearningState(c *gin.Context) {
	learnerID, ok := learnerFrom(c)
	if !ok {
		return
	}
	st, err := h.roadmap.LearningState(c.Request.Context(), learnerID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"learning_state": st, "as_of": time.Now().UTC()})
}

// GET /api/decision-context
func (h *RoadmapHandler) DecisionContext(c *gin.Context) {
	learnerID, ok := learnerFrom(c)
	if !ok {
		return
	}
	dctx, err := h.roadmap.DecisionContext(c.Request.Context(), learnerID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"decision_context": dctx})
}
