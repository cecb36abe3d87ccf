package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-roadmap/internal/data/repos"
	repotest "github.com/yungbote/neurobridge-roadmap/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-roadmap/internal/domain"
	domainagg "github.com/yungbote/neurobridge-roadmap/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

type roadmapHarness struct {
	tx    *gorm.DB
	agg   *roadmapAggregate
	hooks *spyHooks
	repos struct {
		roadmaps    repos.RoadmapRepo
		states      repos.LearningStateRepo
		history     repos.SkillHistoryRepo
		submissions repos.SubmissionRepo
	}
}

func newRoadmapHarness(t *testing.T) *roadmapHarness {
	t.Helper()
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	log := repotest.Logger(t)

	h := &roadmapHarness{tx: tx, hooks: &spyHooks{}}
	h.repos.roadmaps = repos.NewRoadmapRepo(tx, log)
	h.repos.states = repos.NewLearningStateRepo(tx, log)
	h.repos.history = repos.NewSkillHistoryRepo(tx, log)
	h.repos.submissions = repos.NewSubmissionRepo(tx, log)

	h.agg = NewRoadmapAggregate(RoadmapAggregateDeps{
		Base: BaseDeps{
			DB:       tx,
			Runner:   NewGormTxRunner(tx),
			Hooks:    h.hooks,
			CASGuard: NewCASGuard(tx),
		},
		Roadmaps:    h.repos.roadmaps,
		States:      h.repos.states,
		History:     h.repos.history,
		Submissions: h.repos.submissions,
	}).(*roadmapAggregate)
	return h
}

func (h *roadmapHarness) bootstrap(t *testing.T, learnerID string, remediationCap int) *roadmap.Roadmap {
	t.Helper()
	res, err := h.agg.Bootstrap(context.Background(), domainagg.BootstrapInput{
		LearnerID:      learnerID,
		Curriculum:     repotest.Curriculum(),
		RemediationCap: remediationCap,
	})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return res.Roadmap
}

func (h *roadmapHarness) start(t *testing.T, learnerID, slotID, instanceID string) roadmap.TaskInstance {
	t.Helper()
	r := h.stored(t, learnerID)
	slot, ok := r.Slot(slotID)
	if !ok {
		t.Fatalf("slot %s missing", slotID)
	}
	res, err := h.agg.StartSlot(context.Background(), domainagg.StartSlotInput{
		LearnerID:      learnerID,
		SlotID:         slotID,
		Template:       repotest.Template(slot),
		TaskInstanceID: instanceID,
	})
	if err != nil {
		t.Fatalf("StartSlot %s: %v", slotID, err)
	}
	return res.Instance
}

func (h *roadmapHarness) commit(learnerID, instanceID string, passed bool, score float64) (domainagg.CommitEvaluationResult, error) {
	return h.agg.CommitEvaluation(context.Background(), domainagg.CommitEvaluationInput{
		LearnerID:      learnerID,
		TaskInstanceID: instanceID,
		Payload:        map[string]any{"selected_option": "B"},
		Result:         mastery.EvaluationResult{Passed: passed, Score: score, Feedback: "graded"},
		Curriculum:     repotest.Curriculum(),
	})
}

func (h *roadmapHarness) stored(t *testing.T, learnerID string) *roadmap.Roadmap {
	t.Helper()
	rec, err := h.repos.roadmaps.GetByLearnerID(dbctx.New(context.Background()), learnerID)
	if err != nil || rec == nil {
		t.Fatalf("GetByLearnerID: rec=%v err=%v", rec, err)
	}
	r, err := rec.Roadmap()
	if err != nil {
		t.Fatalf("decode roadmap: %v", err)
	}
	return r
}

func TestRoadmapAggregateBootstrapIsIdempotent(t *testing.T) {
	h := newRoadmapHarness(t)
	first := h.bootstrap(t, "learner-1", 0)
	if first.Version != 1 {
		t.Fatalf("version: want=1 got=%d", first.Version)
	}
	if s, _ := first.Slot("p1_s1"); s.Status != roadmap.SlotAvailable {
		t.Fatalf("p1_s1: want available got=%s", s.Status)
	}

	res, err := h.agg.Bootstrap(context.Background(), domainagg.BootstrapInput{
		LearnerID:  "learner-1",
		Curriculum: repotest.Curriculum(),
	})
	if err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	if res.Created || res.Roadmap.ID != first.ID {
		t.Fatalf("second bootstrap should return the stored roadmap: created=%v id=%s", res.Created, res.Roadmap.ID)
	}

	reset, err := h.agg.Bootstrap(context.Background(), domainagg.BootstrapInput{
		LearnerID:  "learner-1",
		Curriculum: repotest.Curriculum(),
		Reset:      true,
	})
	if err != nil {
		t.Fatalf("reset Bootstrap: %v", err)
	}
	if !reset.Created || reset.Roadmap.ID == first.ID {
		t.Fatalf("reset should create a new roadmap")
	}
}

func TestRoadmapAggregateBootstrapValidatesInput(t *testing.T) {
	h := newRoadmapHarness(t)
	_, err := h.agg.Bootstrap(context.Background(), domainagg.BootstrapInput{LearnerID: " "})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("want validation, got=%v", err)
	}
}

func TestRoadmapAggregatePassUnlocksNextSlot(t *testing.T) {
	h := newRoadmapHarness(t)
	h.bootstrap(t, "learner-1", 0)
	h.start(t, "learner-1", "p1_s1", "inst-1")

	res, err := h.commit("learner-1", "inst-1", true, 1.0)
	if err != nil {
		t.Fatalf("CommitEvaluation: %v", err)
	}
	if !res.Outcome.Passed || res.Outcome.UnlockedSlotID != "p1_s2" {
		t.Fatalf("outcome: %+v", res.Outcome)
	}
	if res.Roadmap.Version != 3 {
		t.Fatalf("version: want=3 got=%d", res.Roadmap.Version)
	}
	if res.Deltas["variables"] <= 0 {
		t.Fatalf("deltas: %+v", res.Deltas)
	}
	if res.State == nil || res.State.Skills["variables"].Level <= 0 {
		t.Fatalf("state: %+v", res.State)
	}

	stored := h.stored(t, "learner-1")
	if s, _ := stored.Slot("p1_s1"); s.Status != roadmap.SlotCompleted {
		t.Fatalf("stored p1_s1: %s", s.Status)
	}
	if s, _ := stored.Slot("p1_s2"); s.Status != roadmap.SlotAvailable {
		t.Fatalf("stored p1_s2: %s", s.Status)
	}

	dbc := dbctx.New(context.Background())
	st, err := h.repos.states.GetByLearnerID(dbc, "learner-1")
	if err != nil || st == nil {
		t.Fatalf("learning state: st=%v err=%v", st, err)
	}
	seen := map[string]bool{}
	var hist int
	for _, ev := range res.SkillEvents {
		if seen[ev.Skill] {
			continue
		}
		seen[ev.Skill] = true
		rows, err := h.repos.history.ListBySkill(dbc, "learner-1", ev.Skill, 10)
		if err != nil {
			t.Fatalf("ListBySkill %s: %v", ev.Skill, err)
		}
		hist += len(rows)
	}
	if hist != len(res.SkillEvents) || hist == 0 {
		t.Fatalf("history rows: want=%d got=%d", len(res.SkillEvents), hist)
	}
	sub, err := h.repos.submissions.GetByTaskInstance(dbc, "learner-1", "inst-1")
	if err != nil || sub == nil {
		t.Fatalf("submission: sub=%v err=%v", sub, err)
	}
	if !sub.Passed || sub.SlotID != "p1_s1" || sub.QuestionType != "mcq" {
		t.Fatalf("submission row: %+v", sub)
	}
	if sub.ID.String() != res.SubmissionID {
		t.Fatalf("submission id: want=%s got=%s", res.SubmissionID, sub.ID)
	}
}

func TestRoadmapAggregateFailureInjectsRemediation(t *testing.T) {
	h := newRoadmapHarness(t)
	h.bootstrap(t, "learner-1", 0)
	h.start(t, "learner-1", "p1_s1", "inst-1")

	res, err := h.commit("learner-1", "inst-1", false, 0.2)
	if err != nil {
		t.Fatalf("CommitEvaluation fail: %v", err)
	}
	if !res.Outcome.RemediationRequired || res.Remediation == nil {
		t.Fatalf("want remediation, got outcome=%+v plan=%v", res.Outcome, res.Remediation)
	}
	stored := h.stored(t, "learner-1")
	if s, _ := stored.Slot("p1_s1"); s.Status != roadmap.SlotRemediationRequired {
		t.Fatalf("p1_s1 after fail: %s", s.Status)
	}

	retry := h.start(t, "learner-1", "p1_s1", "inst-2")
	if !retry.Remediation {
		t.Fatalf("retry should be a remediation instance")
	}
	res, err = h.commit("learner-1", "inst-2", true, 0.9)
	if err != nil {
		t.Fatalf("CommitEvaluation retry: %v", err)
	}
	if !res.Outcome.Passed || res.Outcome.UnlockedSlotID != "p1_s2" {
		t.Fatalf("retry outcome: %+v", res.Outcome)
	}
}

func TestRoadmapAggregateTerminalFailureLocksRoadmap(t *testing.T) {
	h := newRoadmapHarness(t)
	h.bootstrap(t, "learner-1", 1)
	h.start(t, "learner-1", "p1_s1", "inst-1")
	if _, err := h.commit("learner-1", "inst-1", false, 0); err != nil {
		t.Fatalf("first fail: %v", err)
	}
	h.start(t, "learner-1", "p1_s1", "inst-2")
	res, err := h.commit("learner-1", "inst-2", false, 0)
	if err != nil {
		t.Fatalf("second fail: %v", err)
	}
	if !res.Outcome.Terminal {
		t.Fatalf("want terminal outcome, got=%+v", res.Outcome)
	}
	if res.Roadmap.Status != roadmap.StatusLocked {
		t.Fatalf("roadmap status: %s", res.Roadmap.Status)
	}

	_, err = h.commit("learner-1", "inst-2", true, 1)
	if !domainagg.IsCode(err, domainagg.CodeLocked) {
		t.Fatalf("submit on locked roadmap: want locked, got=%v", err)
	}
	if !roadmap.IsKind(err, roadmap.KindRoadmapLocked) {
		t.Fatalf("kind: got=%s", roadmap.KindOf(err))
	}
}

func TestRoadmapAggregateRejectsStaleInstance(t *testing.T) {
	h := newRoadmapHarness(t)
	h.bootstrap(t, "learner-1", 0)
	h.start(t, "learner-1", "p1_s1", "inst-1")
	if _, err := h.commit("learner-1", "inst-1", true, 1); err != nil {
		t.Fatalf("commit: %v", err)
	}
	_, err := h.commit("learner-1", "inst-1", true, 1)
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("resubmit: want precondition_failed, got=%v", err)
	}
}

func TestRoadmapAggregateStartSlotConflicts(t *testing.T) {
	h := newRoadmapHarness(t)
	h.bootstrap(t, "learner-1", 0)

	_, err := h.agg.StartSlot(context.Background(), domainagg.StartSlotInput{
		LearnerID: "missing",
		SlotID:    "p1_s1",
	})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing roadmap: want not_found, got=%v", err)
	}

	h.start(t, "learner-1", "p1_s1", "inst-1")
	r := h.stored(t, "learner-1")
	s2, _ := r.Slot("p1_s2")
	_, err = h.agg.StartSlot(context.Background(), domainagg.StartSlotInput{
		LearnerID: "learner-1",
		SlotID:    "p1_s2",
		Template:  repotest.Template(s2),
	})
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("locked slot: want precondition_failed, got=%v", err)
	}
}

func TestRoadmapAggregateDuplicateSubmissionRollsBack(t *testing.T) {
	h := newRoadmapHarness(t)
	h.bootstrap(t, "learner-1", 0)
	h.start(t, "learner-1", "p1_s1", "inst-1")
	before := h.stored(t, "learner-1")

	repotest.SeedSubmission(t, context.Background(), h.tx, &types.Submission{
		LearnerID:        "learner-1",
		TaskInstanceID:   "inst-1",
		TaskTemplateID:   "p1_s1_v1",
		SlotID:           "p1_s1",
		QuestionType:     "mcq",
		Payload:          []byte(`{}`),
		Mistakes:         []byte(`[]`),
		DetectedConcepts: []byte(`[]`),
	})

	_, err := h.commit("learner-1", "inst-1", true, 1)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("want conflict, got=%v", err)
	}
	if len(h.hooks.Conflicts) != 1 {
		t.Fatalf("conflict hooks: %+v", h.hooks.Conflicts)
	}
	after := h.stored(t, "learner-1")
	if after.Version != before.Version {
		t.Fatalf("roadmap should roll back: before=%d after=%d", before.Version, after.Version)
	}
	if s, _ := after.Slot("p1_s1"); s.Status != roadmap.SlotInProgress {
		t.Fatalf("p1_s1 after rollback: %s", s.Status)
	}
}

func TestRoadmapAggregateSaveDetectsStaleVersion(t *testing.T) {
	h := newRoadmapHarness(t)
	h.bootstrap(t, "learner-1", 0)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: h.tx}
	rec, r, err := h.agg.load(dbc, "test", "learner-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := h.tx.Model(&types.RoadmapRecord{}).Where("id = ?", rec.ID).Update("version", rec.Version+1).Error; err != nil {
		t.Fatalf("bump version: %v", err)
	}

	err = h.agg.save(dbc, rec, r.Clone())
	if !roadmap.IsKind(err, roadmap.KindConcurrencyConflict) {
		t.Fatalf("want concurrency conflict, got=%v", err)
	}
	if !domainagg.IsCode(MapError("test", err), domainagg.CodeRetryable) {
		t.Fatalf("mapped code: got=%s", domainagg.CodeOf(MapError("test", err)))
	}
}

func TestRoadmapAggregateApplyGovernanceNoopKeepsVersion(t *testing.T) {
	h := newRoadmapHarness(t)
	h.bootstrap(t, "learner-1", 0)

	res, err := h.agg.ApplyGovernance(context.Background(), domainagg.ApplyGovernanceInput{
		LearnerID:  "learner-1",
		Curriculum: repotest.Curriculum(),
	})
	if err != nil {
		t.Fatalf("ApplyGovernance: %v", err)
	}
	if res.Report.Changed() {
		t.Fatalf("empty context should not change anything: %+v", res.Report)
	}
	if got := h.stored(t, "learner-1").Version; got != 1 {
		t.Fatalf("version: want=1 got=%d", got)
	}
}

func TestRoadmapAggregateRunnerFailureIsMapped(t *testing.T) {
	hooks := &spyHooks{}
	agg := NewRoadmapAggregate(RoadmapAggregateDeps{
		Base: BaseDeps{
			Runner: failingTxRunner{err: errors.New("database is locked")},
			Hooks:  hooks,
		},
		Roadmaps:    repos.NewRoadmapRepo(nil, logger.Nop()),
		States:      repos.NewLearningStateRepo(nil, logger.Nop()),
		History:     repos.NewSkillHistoryRepo(nil, logger.Nop()),
		Submissions: repos.NewSubmissionRepo(nil, logger.Nop()),
		Now:         func() time.Time { return time.Unix(0, 0).UTC() },
	})
	_, err := agg.StartSlot(context.Background(), domainagg.StartSlotInput{LearnerID: "l", SlotID: "p1_s1"})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("want retryable, got=%v", err)
	}
	if len(hooks.Retries) != 1 || hooks.Retries[0] != "Learning.Roadmap.StartSlot" {
		t.Fatalf("retry hooks: %+v", hooks.Retries)
	}
}

type failingTxRunner struct{ err error }

func (r failingTxRunner) InTx(context.Context, func(dbctx.Context) error) error { return r.err }
