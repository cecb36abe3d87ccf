package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-roadmap/internal/data/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/data/repos"
	repotest "github.com/yungbote/neurobridge-roadmap/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-roadmap/internal/domain"
	domainagg "github.com/yungbote/neurobridge-roadmap/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/catalog"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/decision"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/evaluation"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/market"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/orchestrator"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-roadmap/internal/realtime"
	"github.com/yungbote/neurobridge-roadmap/internal/realtime/bus"
)

type recordingBus struct {
	mu   sync.Mutex
	msgs []realtime.Message
	fail error
}

func (b *recordingBus) Publish(_ context.Context, msg realtime.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *recordingBus) StartForwarder(context.Context, func(realtime.Message)) error { return nil }
func (b *recordingBus) Close() error                                              { return nil }

func (b *recordingBus) events() []realtime.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]realtime.Event, 0, len(b.msgs))
	for _, m := range b.msgs {
		out = append(out, m.Event)
	}
	return out
}

func (b *recordingBus) has(ev realtime.Event) bool {
	for _, e := range b.events() {
		if e == ev {
			return true
		}
	}
	return false
}

var _ bus.Bus = (*recordingBus)(nil)

// countingEvaluator wraps the MCQ router and counts calls.
type countingEvaluator struct {
	inner evaluation.Evaluator
	calls atomic.Int32
}

func (e *countingEvaluator) Evaluate(ctx context.Context, qt curriculum.QuestionType, p evaluation.Payload, ec evaluation.EvalContext) (mastery.EvaluationResult, error) {
	e.calls.Add(1)
	return e.inner.Evaluate(ctx, qt, p, ec)
}

// flakyAggregate fails CommitEvaluation with a retryable error n times.
type flakyAggregate struct {
	domainagg.RoadmapAggregate
	failures atomic.Int32
}

func (f *flakyAggregate) CommitEvaluation(ctx context.Context, in domainagg.CommitEvaluationInput) (domainagg.CommitEvaluationResult, error) {
	if f.failures.Add(-1) >= 0 {
		return domainagg.CommitEvaluationResult{}, domainagg.NewError(domainagg.CodeRetryable, "test", "version moved", nil)
	}
	return f.RoadmapAggregate.CommitEvaluation(ctx, in)
}

type serviceHarness struct {
	svc  RoadmapService
	agg  domainagg.RoadmapAggregate
	bus  *recordingBus
	eval *countingEvaluator
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cur := repotest.Curriculum()
	r := roadmap.New("seed", cur)
	var templates []curriculum.TaskTemplate
	for _, p := range r.Phases {
		for _, s := range p.Slots {
			std := repotest.Template(s)
			rem := std
			rem.TaskTemplateID = std.TaskTemplateID + curriculum.RemediationSuffix
			rem.BaseTemplateID = std.TaskTemplateID
			templates = append(templates, std, rem)
		}
	}
	c, err := catalog.New(templates)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func newServiceHarness(t *testing.T, wrap func(domainagg.RoadmapAggregate) domainagg.RoadmapAggregate) *serviceHarness {
	t.Helper()
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	log := repotest.Logger(t)

	roadmaps := repos.NewRoadmapRepo(tx, log)
	states := repos.NewLearningStateRepo(tx, log)
	history := repos.NewSkillHistoryRepo(tx, log)
	submissions := repos.NewSubmissionRepo(tx, log)

	var agg domainagg.RoadmapAggregate = aggregates.NewRoadmapAggregate(aggregates.RoadmapAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:       tx,
			Log:      log,
			Runner:   aggregates.NewGormTxRunner(tx),
			CASGuard: aggregates.NewCASGuard(tx),
		},
		Roadmaps:    roadmaps,
		States:      states,
		History:     history,
		Submissions: submissions,
	})
	if wrap != nil {
		agg = wrap(agg)
	}

	h := &serviceHarness{
		agg:  agg,
		bus:  &recordingBus{},
		eval: &countingEvaluator{inner: evaluation.NewRouter(nil)},
	}
	svc, err := NewRoadmapService(RoadmapServiceDeps{
		DB:               tx,
		Log:              log,
		Aggregate:        agg,
		Roadmaps:         roadmaps,
		States:           states,
		History:          history,
		Submissions:      submissions,
		Curriculum:       repotest.Curriculum(),
		Catalog:          testCatalog(t),
		Evaluator:        h.eval,
		Bus:              h.bus,
		SubmitMaxRetries: 3,
		RetryBackoff:     1,
	})
	if err != nil {
		t.Fatalf("NewRoadmapService: %v", err)
	}
	h.svc = svc
	return h
}

func TestBootstrapEmitsOnce(t *testing.T) {
	h := newServiceHarness(t, nil)
	ctx := context.Background()

	r, created, err := h.svc.Bootstrap(ctx, "learner-1", false)
	if err != nil || !created {
		t.Fatalf("Bootstrap: created=%v err=%v", created, err)
	}
	if r.CurrentPhase != "p1" {
		t.Fatalf("current phase: want=p1 got=%s", r.CurrentPhase)
	}
	if _, created, err = h.svc.Bootstrap(ctx, "learner-1", false); err != nil || created {
		t.Fatalf("second Bootstrap: created=%v err=%v", created, err)
	}
	if n := len(h.bus.events()); n != 1 {
		t.Fatalf("events: want=1 got=%d (%v)", n, h.bus.events())
	}
}

func TestBootstrapRequiresLearner(t *testing.T) {
	h := newServiceHarness(t, nil)
	if _, _, err := h.svc.Bootstrap(context.Background(), "  ", false); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("want ErrInvalidRequest, got=%v", err)
	}
}

func TestStartSlotResolvesDefaultTemplate(t *testing.T) {
	h := newServiceHarness(t, nil)
	ctx := context.Background()
	if _, _, err := h.svc.Bootstrap(ctx, "learner-1", false); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	res, err := h.svc.StartSlot(ctx, StartSlotRequest{LearnerID: "learner-1", SlotID: "p1_s1"})
	if err != nil {
		t.Fatalf("StartSlot: %v", err)
	}
	if res.Template.TaskTemplateID != "p1_s1_v1" {
		t.Fatalf("template: want=p1_s1_v1 got=%s", res.Template.TaskTemplateID)
	}
	if !h.bus.has(realtime.EventSlotStarted) {
		t.Fatalf("missing SlotStarted event: %v", h.bus.events())
	}

	_, err = h.svc.StartSlot(ctx, StartSlotRequest{LearnerID: "learner-1", SlotID: "p1_s1"})
	if !roadmap.IsKind(err, roadmap.KindInvalidTransition) {
		t.Fatalf("restart in-flight slot: want invalid transition, got=%v", err)
	}
}

func TestSubmitPassAndRemediationFlow(t *testing.T) {
	h := newServiceHarness(t, nil)
	ctx := context.Background()
	if _, _, err := h.svc.Bootstrap(ctx, "learner-1", false); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	start, err := h.svc.StartSlot(ctx, StartSlotRequest{LearnerID: "learner-1", SlotID: "p1_s1"})
	if err != nil {
		t.Fatalf("StartSlot: %v", err)
	}

	res, err := h.svc.Submit(ctx, SubmitRequest{
		LearnerID:      "learner-1",
		TaskInstanceID: start.Instance.TaskInstanceID,
		Payload:        map[string]any{"answer": "A"},
	})
	if err != nil {
		t.Fatalf("Submit wrong answer: %v", err)
	}
	if res.Evaluation.Passed || !res.Outcome.RemediationRequired || res.Remediation == nil {
		t.Fatalf("want remediation, got eval=%+v outcome=%+v", res.Evaluation, res.Outcome)
	}
	if !h.bus.has(realtime.EventRemediationInjected) {
		t.Fatalf("missing RemediationInjected: %v", h.bus.events())
	}

	retry, err := h.svc.StartSlot(ctx, StartSlotRequest{LearnerID: "learner-1", SlotID: "p1_s1"})
	if err != nil {
		t.Fatalf("StartSlot retry: %v", err)
	}
	if retry.Template.TaskTemplateID != "p1_s1_v1__remediation" || !retry.Instance.Remediation {
		t.Fatalf("retry template: got=%s remediation=%v", retry.Template.TaskTemplateID, retry.Instance.Remediation)
	}

	res, err = h.svc.Submit(ctx, SubmitRequest{
		LearnerID:      "learner-1",
		TaskInstanceID: retry.Instance.TaskInstanceID,
		Payload:        map[string]any{"answer": "B"},
	})
	if err != nil {
		t.Fatalf("Submit right answer: %v", err)
	}
	if !res.Outcome.Passed || res.Outcome.UnlockedSlotID != "p1_s2" || res.Attempts != 1 {
		t.Fatalf("pass outcome: %+v attempts=%d", res.Outcome, res.Attempts)
	}
	if res.State == nil || res.State.Skills["variables"].Level <= 0 {
		t.Fatalf("state after pass: %+v", res.State)
	}
}

func TestSubmitRejectsStaleInstanceBeforeGrading(t *testing.T) {
	h := newServiceHarness(t, nil)
	ctx := context.Background()
	if _, _, err := h.svc.Bootstrap(ctx, "learner-1", false); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	_, err := h.svc.Submit(ctx, SubmitRequest{
		LearnerID:      "learner-1",
		TaskInstanceID: "never-started",
		Payload:        map[string]any{"answer": "B"},
	})
	if !roadmap.IsKind(err, roadmap.KindNotFound) {
		t.Fatalf("want not found, got=%v", err)
	}
	if n := h.eval.calls.Load(); n != 0 {
		t.Fatalf("evaluator should not run, calls=%d", n)
	}
}

func TestSubmitRejectsEmptyPayload(t *testing.T) {
	h := newServiceHarness(t, nil)
	_, err := h.svc.Submit(context.Background(), SubmitRequest{LearnerID: "learner-1", TaskInstanceID: "x"})
	if !errors.Is(err, evaluation.ErrInvalidPayload) {
		t.Fatalf("want ErrInvalidPayload, got=%v", err)
	}
}

func TestSubmitRetriesRetryableCommit(t *testing.T) {
	var flaky *flakyAggregate
	h := newServiceHarness(t, func(a domainagg.RoadmapAggregate) domainagg.RoadmapAggregate {
		flaky = &flakyAggregate{RoadmapAggregate: a}
		flaky.failures.Store(2)
		return flaky
	})
	ctx := context.Background()
	if _, _, err := h.svc.Bootstrap(ctx, "learner-1", false); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	start, err := h.svc.StartSlot(ctx, StartSlotRequest{LearnerID: "learner-1", SlotID: "p1_s1"})
	if err != nil {
		t.Fatalf("StartSlot: %v", err)
	}
	res, err := h.svc.Submit(ctx, SubmitRequest{
		LearnerID:      "learner-1",
		TaskInstanceID: start.Instance.TaskInstanceID,
		Payload:        map[string]any{"answer": "B"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Attempts != 3 {
		t.Fatalf("attempts: want=3 got=%d", res.Attempts)
	}
	if n := h.eval.calls.Load(); n != 1 {
		t.Fatalf("evaluator calls: want=1 got=%d", n)
	}
}

func TestSubmitGivesUpAfterMaxRetries(t *testing.T) {
	h := newServiceHarness(t, func(a domainagg.RoadmapAggregate) domainagg.RoadmapAggregate {
		f := &flakyAggregate{RoadmapAggregate: a}
		f.failures.Store(10)
		return f
	})
	ctx := context.Background()
	if _, _, err := h.svc.Bootstrap(ctx, "learner-1", false); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	start, err := h.svc.StartSlot(ctx, StartSlotRequest{LearnerID: "learner-1", SlotID: "p1_s1"})
	if err != nil {
		t.Fatalf("StartSlot: %v", err)
	}
	_, err = h.svc.Submit(ctx, SubmitRequest{
		LearnerID:      "learner-1",
		TaskInstanceID: start.Instance.TaskInstanceID,
		Payload:        map[string]any{"answer": "B"},
	})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("want retryable, got=%v", err)
	}
}

func TestNextTaskModes(t *testing.T) {
	h := newServiceHarness(t, nil)
	ctx := context.Background()
	if _, _, err := h.svc.Bootstrap(ctx, "learner-1", false); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	next, err := h.svc.NextTask(ctx, "learner-1")
	if err != nil {
		t.Fatalf("NextTask: %v", err)
	}
	if next.Mode != ModeLocal || next.Slot == nil || next.Slot.SlotID != "p1_s1" {
		t.Fatalf("fresh roadmap: mode=%s slot=%v", next.Mode, next.Slot)
	}
	if next.Template == nil || next.Template.TaskTemplateID != "p1_s1_v1" {
		t.Fatalf("fresh template: %v", next.Template)
	}
	if next.Context == nil || next.Context.LearnerID != "learner-1" {
		t.Fatalf("context: %+v", next.Context)
	}

	start, err := h.svc.StartSlot(ctx, StartSlotRequest{LearnerID: "learner-1", SlotID: "p1_s1"})
	if err != nil {
		t.Fatalf("StartSlot: %v", err)
	}
	next, err = h.svc.NextTask(ctx, "learner-1")
	if err != nil {
		t.Fatalf("NextTask in flight: %v", err)
	}
	if next.Mode != ModeInFlight || next.Template.TaskTemplateID != start.Template.TaskTemplateID {
		t.Fatalf("in flight: mode=%s template=%v", next.Mode, next.Template)
	}

	if _, err := h.svc.Submit(ctx, SubmitRequest{
		LearnerID:      "learner-1",
		TaskInstanceID: start.Instance.TaskInstanceID,
		Payload:        map[string]any{"answer": "C"},
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	next, err = h.svc.NextTask(ctx, "learner-1")
	if err != nil {
		t.Fatalf("NextTask after fail: %v", err)
	}
	if next.Mode != ModeRemediation || next.Template.TaskTemplateID != "p1_s1_v1__remediation" {
		t.Fatalf("remediation: mode=%s template=%v", next.Mode, next.Template)
	}
}

type ledgerSpy struct {
	mu      sync.Mutex
	entries []orchestrator.LedgerEntry
}

func (l *ledgerSpy) Record(e orchestrator.LedgerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

func (l *ledgerSpy) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type probePool []curriculum.TaskTemplate

func (p probePool) AllTemplates() []curriculum.TaskTemplate { return p }

func TestPlanSkipsProbeOutsideActivePhase(t *testing.T) {
	h := newServiceHarness(t, nil)
	led := &ledgerSpy{}
	probe := curriculum.TaskTemplate{
		TaskTemplateID: "fn_diag", SlotID: "p2_s1", Skill: "functions",
		Difficulty: curriculum.DifficultyEasy, Role: curriculum.RoleDiagnostic, ProbeCost: 0.5,
	}
	svc := *h.svc.(*roadmapService)
	svc.deps.Orchestrator = orchestrator.New(market.New(probePool{probe}, 0), led)

	r := roadmap.New("learner-1", repotest.Curriculum())
	slot, ok := r.NextActionableSlot()
	if !ok || slot.SlotID != "p1_s1" {
		t.Fatalf("next slot: ok=%v slot=%+v", ok, slot)
	}
	dctx := &decision.Context{
		LearnerID:         "learner-1",
		GlobalBottleneck:  "functions",
		WeakestInvariants: []decision.InvariantScore{{InvariantID: "functions", Pressure: 1.8}},
	}

	out := &NextTaskResponse{Roadmap: r, Context: dctx, Mode: ModeNone}
	if err := svc.plan(r, slot, dctx, out); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if out.Mode != ModeLocal || out.Decision != nil {
		t.Fatalf("mode=%s decision=%+v", out.Mode, out.Decision)
	}
	if out.Slot == nil || out.Slot.SlotID != "p1_s1" || out.Template.TaskTemplateID != "p1_s1_v1" {
		t.Fatalf("slot=%v template=%v", out.Slot, out.Template)
	}
	if n := led.len(); n != 0 {
		t.Fatalf("ledger recorded %d interventions for a discarded probe", n)
	}

	// Once p2 is active the same probe is taken and audited.
	for i := range r.Phases[0].Slots {
		r.Phases[0].Slots[i].Status = roadmap.SlotCompleted
	}
	r.ResolveActivePhase()
	if r.CurrentPhase != "p2" {
		t.Fatalf("current phase: %s", r.CurrentPhase)
	}
	out = &NextTaskResponse{Roadmap: r, Context: dctx, Mode: ModeNone}
	slot = roadmap.Slot{SlotID: "p2_x", Skill: "variables"}
	if err := svc.plan(r, slot, dctx, out); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if out.Mode != ModeMarket || out.Decision == nil || out.Slot.SlotID != "p2_s1" {
		t.Fatalf("mode=%s decision=%v slot=%v", out.Mode, out.Decision, out.Slot)
	}
	if n := led.len(); n != 1 {
		t.Fatalf("ledger entries: want=1 got=%d", n)
	}
}

func TestEmitFailureDoesNotFailCall(t *testing.T) {
	h := newServiceHarness(t, nil)
	h.bus.fail = errors.New("redis down")
	if _, _, err := h.svc.Bootstrap(context.Background(), "learner-1", false); err != nil {
		t.Fatalf("Bootstrap with failing bus: %v", err)
	}
}

func TestLearningStateDefaultsEmpty(t *testing.T) {
	h := newServiceHarness(t, nil)
	st, err := h.svc.LearningState(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("LearningState: %v", err)
	}
	if st.LearnerID != "nobody" || len(st.Skills) != 0 {
		t.Fatalf("state: %+v", st)
	}
}

func TestSkillHistoryKeepsRareSkills(t *testing.T) {
	h := newServiceHarness(t, nil)
	svc := h.svc.(*roadmapService)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var rows []*types.SkillHistory
	for i := range 2 {
		rows = append(rows, &types.SkillHistory{LearnerID: "learner-1", Skill: "arrays", NewLevel: 0.3 + float64(i)/10, TaskInstanceID: "old", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	for i := range 300 {
		rows = append(rows, &types.SkillHistory{LearnerID: "learner-1", Skill: "loops", NewLevel: 0.5, TaskInstanceID: "busy", CreatedAt: base.Add(time.Hour + time.Duration(i)*time.Minute)})
	}
	if _, err := svc.deps.History.Create(dbctx.New(ctx), rows); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	st := mastery.NewState("learner-1")
	st.Skills["arrays"] = mastery.SkillEntry{Level: 0.4}
	st.Skills["loops"] = mastery.SkillEntry{Level: 0.5}
	events, err := svc.skillHistory(ctx, "learner-1", st)
	if err != nil {
		t.Fatalf("skillHistory: %v", err)
	}
	counts := map[string]int{}
	for i, ev := range events {
		counts[ev.Skill]++
		if i > 0 && ev.At.Before(events[i-1].At) {
			t.Fatalf("events not oldest first at %d", i)
		}
	}
	if counts["arrays"] != 2 || counts["loops"] != svc.deps.Decisions.Lookback {
		t.Fatalf("per-skill counts: %v (lookback %d)", counts, svc.deps.Decisions.Lookback)
	}
}
