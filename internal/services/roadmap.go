package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-roadmap/internal/data/repos"
	domainagg "github.com/yungbote/neurobridge-roadmap/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/catalog"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/decision"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/evaluation"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/governance"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/market"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/orchestrator"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/remediation"
	"github.com/yungbote/neurobridge-roadmap/internal/observability"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
	"github.com/yungbote/neurobridge-roadmap/internal/realtime"
	"github.com/yungbote/neurobridge-roadmap/internal/realtime/bus"
)

const (
	DefaultSubmitMaxRetries = 3
	submissionWindow        = 50
	historyFanout           = 4

	ModeInFlight    = "in_flight"
	ModeRemediation = "remediation"
	ModeMarket      = "market"
	ModeLocal       = "local"
	ModeNone        = "none"
)

var tracer = observability.Tracer("neurobridge-roadmap/services")

// ErrInvalidRequest marks caller mistakes caught before the domain runs.
var ErrInvalidRequest = errors.New("invalid request")

type RoadmapService interface {
	Bootstrap(ctx context.Context, learnerID string, reset bool) (*roadmap.Roadmap, bool, error)
	Get(ctx context.Context, learnerID string) (*roadmap.Roadmap, error)
	StartSlot(ctx context.Context, req StartSlotRequest) (*StartSlotResponse, error)
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)
	NextTask(ctx context.Context, learnerID string) (*NextTaskResponse, error)
	LearningState(ctx context.Context, learnerID string) (*mastery.State, error)
	DecisionContext(ctx context.Context, learnerID string) (*decision.Context, error)
}

type StartSlotRequest struct {
	LearnerID      string
	SlotID         string
	TemplateID     string
	TaskInstanceID string
}

type StartSlotResponse struct {
	Roadmap  *roadmap.Roadmap
	Instance roadmap.TaskInstance
	Template curriculum.TaskTemplate
}

type SubmitRequest struct {
	LearnerID      string
	TaskInstanceID string
	Payload        map[string]any
}

type SubmitResponse struct {
	Roadmap      *roadmap.Roadmap
	Evaluation   mastery.EvaluationResult
	Outcome      roadmap.Outcome
	Remediation  *remediation.Plan
	Unlocked     []string
	Deltas       map[string]float64
	State        *mastery.State
	SubmissionID string
	Attempts     int
}

type NextTaskResponse struct {
	Roadmap    *roadmap.Roadmap
	Slot       *roadmap.Slot
	Template   *curriculum.TaskTemplate
	Decision   *market.Decision
	Context    *decision.Context
	Governance governance.Report
	Mode       string
}

type RoadmapServiceDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Aggregate   domainagg.RoadmapAggregate
	Roadmaps    repos.RoadmapRepo
	States      repos.LearningStateRepo
	History     repos.SkillHistoryRepo
	Submissions repos.SubmissionRepo

	Curriculum   *curriculum.Curriculum
	Catalog      *catalog.Catalog
	Evaluator    evaluation.Evaluator
	Orchestrator *orchestrator.Orchestrator
	Decisions    decision.Builder
	Bus          bus.Bus

	RemediationCap   int
	SubmitMaxRetries int
	RetryBackoff     time.Duration
}

type roadmapService struct {
	deps RoadmapServiceDeps
	log  *logger.Logger
}

func NewRoadmapService(deps RoadmapServiceDeps) (RoadmapService, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Aggregate == nil || deps.Roadmaps == nil || deps.States == nil || deps.History == nil || deps.Submissions == nil {
		return nil, fmt.Errorf("roadmap aggregate and repos required")
	}
	if deps.Curriculum == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("curriculum and catalog required")
	}
	if deps.Evaluator == nil {
		deps.Evaluator = evaluation.NewRouter(nil)
	}
	if deps.Orchestrator == nil {
		deps.Orchestrator = orchestrator.New(market.New(deps.Catalog, market.DefaultInterventionThreshold), nil)
	}
	if deps.Decisions.Lookback <= 0 {
		deps.Decisions = decision.NewBuilder(0)
	}
	if deps.SubmitMaxRetries < 0 {
		deps.SubmitMaxRetries = 0
	}
	if deps.RetryBackoff <= 0 {
		deps.RetryBackoff = 25 * time.Millisecond
	}
	return &roadmapService{
		deps: deps,
		log:  deps.Log.With("service", "RoadmapService"),
	}, nil
}

func requireLearner(learnerID string) error {
	if strings.TrimSpace(learnerID) == "" {
		return fmt.Errorf("%w: missing learner id", ErrInvalidRequest)
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *roadmapService) Bootstrap(ctx context.Context, learnerID string, reset bool) (*roadmap.Roadmap, bool, error) {
	ctx, span := tracer.Start(ctx, "RoadmapService.Bootstrap", trace.WithAttributes(attribute.Bool("reset", reset)))
	var err error
	defer func() { endSpan(span, err) }()

	if err = requireLearner(learnerID); err != nil {
		return nil, false, err
	}
	var res domainagg.BootstrapResult
	res, err = s.deps.Aggregate.Bootstrap(ctx, domainagg.BootstrapInput{
		LearnerID:      learnerID,
		Curriculum:     s.deps.Curriculum,
		RemediationCap: s.deps.RemediationCap,
		Reset:          reset,
	})
	if err != nil {
		return nil, false, err
	}
	if res.Created {
		s.log.Info("Roadmap bootstrapped", "learner_id", learnerID, "roadmap_id", res.Roadmap.ID, "track_id", res.Roadmap.TrackID)
		s.emit(ctx, learnerID, realtime.EventRoadmapBootstrapped, map[string]any{
			"roadmap_id": res.Roadmap.ID,
			"track_id":   res.Roadmap.TrackID,
		})
	}
	return res.Roadmap, res.Created, nil
}

func (s *roadmapService) Get(ctx context.Context, learnerID string) (*roadmap.Roadmap, error) {
	if err := requireLearner(learnerID); err != nil {
		return nil, err
	}
	return s.load(ctx, learnerID)
}

func (s *roadmapService) load(ctx context.Context, learnerID string) (*roadmap.Roadmap, error) {
	rec, err := s.deps.Roadmaps.GetByLearnerID(dbctx.New(ctx), learnerID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, roadmap.NewError(roadmap.KindNotFound, "RoadmapService.load", "no roadmap for learner", nil)
	}
	return rec.Roadmap()
}

func (s *roadmapService) StartSlot(ctx context.Context, req StartSlotRequest) (*StartSlotResponse, error) {
	ctx, span := tracer.Start(ctx, "RoadmapService.StartSlot", trace.WithAttributes(attribute.String("slot_id", req.SlotID)))
	var err error
	defer func() { endSpan(span, err) }()

	if err = requireLearner(req.LearnerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.SlotID) == "" {
		err = fmt.Errorf("%w: missing slot_id", ErrInvalidRequest)
		return nil, err
	}
	var r *roadmap.Roadmap
	if r, err = s.load(ctx, req.LearnerID); err != nil {
		return nil, err
	}
	slot, ok := r.Slot(req.SlotID)
	if !ok {
		err = roadmap.NewError(roadmap.KindNotFound, "RoadmapService.StartSlot", "slot "+req.SlotID+" not found", nil)
		return nil, err
	}
	var tpl curriculum.TaskTemplate
	if tpl, err = s.resolveTemplate(r, slot, req.TemplateID); err != nil {
		return nil, err
	}

	var res domainagg.StartSlotResult
	res, err = s.deps.Aggregate.StartSlot(ctx, domainagg.StartSlotInput{
		LearnerID:      req.LearnerID,
		SlotID:         slot.SlotID,
		Template:       tpl,
		TaskInstanceID: req.TaskInstanceID,
	})
	if err != nil {
		return nil, err
	}
	observability.Current().IncTransition("started")
	s.log.Info("Slot started",
		"learner_id", req.LearnerID,
		"slot_id", slot.SlotID,
		"task_instance_id", res.Instance.TaskInstanceID,
		"task_template_id", tpl.TaskTemplateID,
		"remediation", res.Instance.Remediation,
	)
	s.emit(ctx, req.LearnerID, realtime.EventSlotStarted, map[string]any{
		"slot_id":          slot.SlotID,
		"task_instance_id": res.Instance.TaskInstanceID,
		"task_template_id": tpl.TaskTemplateID,
		"remediation":      res.Instance.Remediation,
	})
	return &StartSlotResponse{Roadmap: res.Roadmap, Instance: res.Instance, Template: tpl}, nil
}

// resolveTemplate honors an explicit template id. Otherwise the slot's last
// base template (or its default) is resolved, which selects the remediation
// variant for a slot awaiting remediation.
func (s *roadmapService) resolveTemplate(r *roadmap.Roadmap, slot roadmap.Slot, templateID string) (curriculum.TaskTemplate, error) {
	if id := strings.TrimSpace(templateID); id != "" {
		return s.deps.Catalog.GetTemplate(id)
	}
	baseID := ""
	for i := len(r.TaskInstances) - 1; i >= 0; i-- {
		if inst := r.TaskInstances[i]; inst.SlotID == slot.SlotID && inst.BaseTemplateID != "" {
			baseID = inst.BaseTemplateID
			break
		}
	}
	if baseID == "" {
		id, ok := s.deps.Catalog.DefaultBaseID(slot.SlotID)
		if !ok {
			return curriculum.TaskTemplate{}, roadmap.NewError(roadmap.KindTemplateResolution, "RoadmapService.resolveTemplate",
				"no templates for slot "+slot.SlotID, nil)
		}
		baseID = id
	}
	id, err := s.deps.Catalog.ResolveTemplateID(slot, baseID, true)
	if err != nil {
		return curriculum.TaskTemplate{}, err
	}
	return s.deps.Catalog.GetTemplate(id)
}

func (s *roadmapService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	ctx, span := tracer.Start(ctx, "RoadmapService.Submit", trace.WithAttributes(attribute.String("task_instance_id", req.TaskInstanceID)))
	var err error
	defer func() { endSpan(span, err) }()

	if err = requireLearner(req.LearnerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.TaskInstanceID) == "" {
		err = fmt.Errorf("%w: missing task_instance_id", ErrInvalidRequest)
		return nil, err
	}
	if len(req.Payload) == 0 {
		err = fmt.Errorf("%w: empty payload", evaluation.ErrInvalidPayload)
		return nil, err
	}

	// Reject stale or foreign instances before paying for a grade.
	var r *roadmap.Roadmap
	if r, err = s.load(ctx, req.LearnerID); err != nil {
		return nil, err
	}
	var (
		inst roadmap.TaskInstance
		slot roadmap.Slot
	)
	if inst, slot, err = r.CheckSubmission(req.TaskInstanceID); err != nil {
		return nil, err
	}

	tpl, tplErr := s.deps.Catalog.GetTemplate(inst.TaskTemplateID)
	if tplErr != nil {
		s.log.Warn("Submitted instance references unknown template; grading from slot",
			"task_template_id", inst.TaskTemplateID, "slot_id", slot.SlotID)
		tpl = curriculum.TaskTemplate{
			TaskTemplateID: inst.TaskTemplateID,
			SlotID:         slot.SlotID,
			Skill:          slot.Skill,
			Difficulty:     slot.Difficulty,
			QuestionType:   slot.QuestionType,
		}
	}
	qt := tpl.QuestionType
	if qt == "" {
		qt = slot.QuestionType
	}
	span.SetAttributes(attribute.String("question_type", string(qt)))

	var result mastery.EvaluationResult
	result, err = s.deps.Evaluator.Evaluate(ctx, qt, evaluation.Payload(req.Payload), evaluation.ContextFor(inst.TaskInstanceID, tpl))
	if err != nil {
		return nil, err
	}
	observability.Current().ObserveEvaluation(string(qt), result.Passed, result.Score)

	in := domainagg.CommitEvaluationInput{
		LearnerID:      req.LearnerID,
		TaskInstanceID: inst.TaskInstanceID,
		QuestionType:   qt,
		Payload:        req.Payload,
		Result:         result,
		Curriculum:     s.deps.Curriculum,
		EvaluatedAt:    time.Now().UTC(),
	}
	var (
		res      domainagg.CommitEvaluationResult
		attempts int
	)
	for {
		attempts++
		res, err = s.deps.Aggregate.CommitEvaluation(ctx, in)
		if err == nil {
			break
		}
		if !domainagg.IsCode(err, domainagg.CodeRetryable) || attempts > s.deps.SubmitMaxRetries {
			return nil, err
		}
		s.log.Warn("Submission commit retrying", "task_instance_id", inst.TaskInstanceID, "attempt", attempts, "error", err)
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return nil, err
		case <-time.After(time.Duration(attempts) * s.deps.RetryBackoff):
		}
	}

	s.recordOutcome(ctx, req.LearnerID, slot, res)
	return &SubmitResponse{
		Roadmap:      res.Roadmap,
		Evaluation:   result,
		Outcome:      res.Outcome,
		Remediation:  res.Remediation,
		Unlocked:     res.Unlocked,
		Deltas:       res.Deltas,
		State:        res.State,
		SubmissionID: res.SubmissionID,
		Attempts:     attempts,
	}, nil
}

func (s *roadmapService) recordOutcome(ctx context.Context, learnerID string, slot roadmap.Slot, res domainagg.CommitEvaluationResult) {
	m := observability.Current()
	out := res.Outcome
	switch {
	case out.Passed:
		m.IncTransition("passed")
	case out.Terminal:
		m.IncTransition("terminal_failure")
	case out.RemediationRequired:
		m.IncTransition("remediation_required")
	}
	s.log.Info("Evaluation committed",
		"learner_id", learnerID,
		"slot_id", slot.SlotID,
		"task_instance_id", out.Instance.TaskInstanceID,
		"passed", out.Passed,
		"remediation_required", out.RemediationRequired,
		"terminal", out.Terminal,
	)
	s.emit(ctx, learnerID, realtime.EventEvaluationCommitted, map[string]any{
		"slot_id":          slot.SlotID,
		"task_instance_id": out.Instance.TaskInstanceID,
		"passed":           out.Passed,
		"deltas":           res.Deltas,
		"unlocked_slot_id": out.UnlockedSlotID,
		"unlocked":         res.Unlocked,
	})
	if res.Remediation != nil {
		s.emit(ctx, learnerID, realtime.EventRemediationInjected, res.Remediation)
	}
	if out.PhaseCompleted {
		s.emit(ctx, learnerID, realtime.EventPhaseCompleted, map[string]any{"current_phase": res.Roadmap.CurrentPhase})
	}
	if out.RoadmapCompleted {
		s.emit(ctx, learnerID, realtime.EventRoadmapCompleted, map[string]any{"roadmap_id": res.Roadmap.ID})
	}
	if out.Terminal {
		s.emit(ctx, learnerID, realtime.EventRoadmapLocked, map[string]any{
			"roadmap_id": res.Roadmap.ID,
			"reason":     res.Roadmap.LockedReason,
		})
	}
}

type learnerSnapshot struct {
	roadmap     *roadmap.Roadmap
	state       *mastery.State
	history     []mastery.SkillEvent
	submissions []mastery.SubmissionRef
}

func (s *roadmapService) snapshot(ctx context.Context, learnerID string) (*learnerSnapshot, error) {
	snap := &learnerSnapshot{state: mastery.NewState(learnerID)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.load(gctx, learnerID)
		snap.roadmap = r
		return err
	})
	g.Go(func() error {
		row, err := s.deps.States.GetByLearnerID(dbctx.New(gctx), learnerID)
		if err != nil || row == nil {
			return err
		}
		st, err := row.State()
		if err != nil {
			return err
		}
		snap.state = st
		return nil
	})
	g.Go(func() error {
		rows, err := s.deps.Submissions.ListRecent(dbctx.New(gctx), learnerID, submissionWindow)
		if err != nil {
			return err
		}
		out := make([]mastery.SubmissionRef, 0, len(rows))
		for _, sub := range rows {
			out = append(out, sub.Ref())
		}
		snap.submissions = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	history, err := s.skillHistory(ctx, learnerID, snap.state)
	if err != nil {
		return nil, err
	}
	snap.history = history
	return snap, nil
}

// skillHistory reads the last Lookback events of each tracked skill, oldest
// first.
func (s *roadmapService) skillHistory(ctx context.Context, learnerID string, st *mastery.State) ([]mastery.SkillEvent, error) {
	if st == nil || len(st.Skills) == 0 {
		return nil, nil
	}
	skills := make([]string, 0, len(st.Skills))
	for skill := range st.Skills {
		skills = append(skills, skill)
	}
	sort.Strings(skills)

	perSkill := make([][]mastery.SkillEvent, len(skills))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyFanout)
	for i, skill := range skills {
		g.Go(func() error {
			rows, err := s.deps.History.ListBySkill(dbctx.New(gctx), learnerID, skill, s.deps.Decisions.Lookback)
			if err != nil {
				return err
			}
			events := make([]mastery.SkillEvent, 0, len(rows))
			for _, h := range rows {
				events = append(events, h.Event())
			}
			perSkill[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []mastery.SkillEvent
	for _, events := range perSkill {
		out = append(out, events...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

func (s *roadmapService) buildContext(learnerID string, snap *learnerSnapshot) *decision.Context {
	return s.deps.Decisions.Build(decision.Input{
		LearnerID:   learnerID,
		TrackID:     snap.roadmap.TrackID,
		State:       snap.state,
		History:     snap.history,
		Submissions: snap.submissions,
	})
}

func (s *roadmapService) LearningState(ctx context.Context, learnerID string) (*mastery.State, error) {
	if err := requireLearner(learnerID); err != nil {
		return nil, err
	}
	row, err := s.deps.States.GetByLearnerID(dbctx.New(ctx), learnerID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return mastery.NewState(learnerID), nil
	}
	return row.State()
}

func (s *roadmapService) DecisionContext(ctx context.Context, learnerID string) (*decision.Context, error) {
	if err := requireLearner(learnerID); err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return s.buildContext(learnerID, snap), nil
}

func (s *roadmapService) NextTask(ctx context.Context, learnerID string) (*NextTaskResponse, error) {
	ctx, span := tracer.Start(ctx, "RoadmapService.NextTask")
	var err error
	defer func() { endSpan(span, err) }()

	if err = requireLearner(learnerID); err != nil {
		return nil, err
	}
	var snap *learnerSnapshot
	if snap, err = s.snapshot(ctx, learnerID); err != nil {
		return nil, err
	}
	dctx := s.buildContext(learnerID, snap)
	observability.Current().ObservePressure(dctx.BottleneckPressure())
	span.SetAttributes(
		attribute.String("global_bottleneck", dctx.GlobalBottleneck),
		attribute.Float64("bottleneck_pressure", dctx.BottleneckPressure()),
	)

	r := snap.roadmap
	out := &NextTaskResponse{Roadmap: r, Context: dctx, Mode: ModeNone}
	if r.Status == roadmap.StatusActive {
		var gov domainagg.ApplyGovernanceResult
		gov, err = s.deps.Aggregate.ApplyGovernance(ctx, domainagg.ApplyGovernanceInput{
			LearnerID:  learnerID,
			Curriculum: s.deps.Curriculum,
			Context:    dctx,
		})
		if err != nil {
			return nil, err
		}
		r = gov.Roadmap
		out.Roadmap = r
		out.Governance = gov.Report
		s.recordGovernance(ctx, learnerID, gov.Report)
	}

	slot, ok := r.NextActionableSlot()
	if !ok {
		return out, nil
	}
	if err = s.plan(r, slot, dctx, out); err != nil {
		return nil, err
	}
	observability.Current().IncDecision(out.Mode)
	span.SetAttributes(attribute.String("mode", out.Mode))
	if out.Template != nil {
		s.emit(ctx, learnerID, realtime.EventNextTaskRecommended, map[string]any{
			"slot_id":          out.Slot.SlotID,
			"task_template_id": out.Template.TaskTemplateID,
			"mode":             out.Mode,
		})
	}
	return out, nil
}

// plan fills the recommendation for slot. A market probe is only
// recommended when its own slot can be started now; otherwise the slot's
// local candidates are used.
func (s *roadmapService) plan(r *roadmap.Roadmap, slot roadmap.Slot, dctx *decision.Context, out *NextTaskResponse) error {
	setSlot := func(sl roadmap.Slot, tpl curriculum.TaskTemplate, mode string) {
		out.Slot = &sl
		out.Template = &tpl
		out.Mode = mode
	}

	switch slot.Status {
	case roadmap.SlotInProgress:
		inst, ok := r.TaskInstance(slot.ActiveTaskInstanceID)
		if !ok {
			return roadmap.NewError(roadmap.KindInvariantViolation, "RoadmapService.plan", "slot "+slot.SlotID+" has no active instance", nil)
		}
		tpl, err := s.deps.Catalog.GetTemplate(inst.TaskTemplateID)
		if err != nil {
			return err
		}
		setSlot(slot, tpl, ModeInFlight)
		return nil
	case roadmap.SlotRemediationRequired:
		tpl, err := s.resolveTemplate(r, slot, "")
		if err != nil {
			return err
		}
		setSlot(slot, tpl, ModeRemediation)
		return nil
	}

	candidates := s.deps.Catalog.TemplatesForSlot(slot.SlotID)
	startable := func(t curriculum.TaskTemplate) bool {
		if _, ok := s.startableInActivePhase(r, t.SlotID); ok {
			return true
		}
		s.log.Debug("Market probe not startable; planning locally",
			"probe_id", t.TaskTemplateID, "probe_slot_id", t.SlotID, "slot_id", slot.SlotID)
		return false
	}
	p, err := s.deps.Orchestrator.PlanWhere(dctx, slot, candidates, startable)
	if err != nil {
		return err
	}
	if p.Decision != nil {
		target, _ := s.startableInActivePhase(r, p.Template.SlotID)
		out.Decision = p.Decision
		setSlot(target, p.Template, ModeMarket)
		return nil
	}
	setSlot(slot, p.Template, ModeLocal)
	return nil
}

func (s *roadmapService) startableInActivePhase(r *roadmap.Roadmap, slotID string) (roadmap.Slot, bool) {
	if slotID == "" {
		return roadmap.Slot{}, false
	}
	phase, ok := r.ActivePhase()
	if !ok {
		return roadmap.Slot{}, false
	}
	for _, sl := range phase.Slots {
		if sl.SlotID == slotID {
			return sl, sl.Status.Startable()
		}
	}
	return roadmap.Slot{}, false
}

func (s *roadmapService) recordGovernance(ctx context.Context, learnerID string, rep governance.Report) {
	if !rep.Changed() {
		return
	}
	m := observability.Current()
	m.AddGovernanceChanges("skip", len(rep.Skipped))
	m.AddGovernanceChanges("reinforce", len(rep.Reinforced))
	m.AddGovernanceChanges("promote", len(rep.Promoted))
	m.AddGovernanceChanges("unlock", len(rep.Unlocked))
	m.AddGovernanceChanges("lock", len(rep.Locked))
	s.log.Info("Governance applied",
		"learner_id", learnerID,
		"skipped", rep.Skipped,
		"reinforced", rep.Reinforced,
		"promoted", rep.Promoted,
		"unlocked", rep.Unlocked,
		"locked", rep.Locked,
	)
	s.emit(ctx, learnerID, realtime.EventGovernanceApplied, rep)
}

// emit is best effort; a failed publish is logged and never fails the call.
func (s *roadmapService) emit(ctx context.Context, learnerID string, ev realtime.Event, data any) {
	if s.deps.Bus == nil {
		return
	}
	if err := s.deps.Bus.Publish(ctx, realtime.NewLearnerMessage(learnerID, ev, data)); err != nil {
		s.log.Warn("Event publish failed", "event", ev, "learner_id", learnerID, "error", err)
	}
}
