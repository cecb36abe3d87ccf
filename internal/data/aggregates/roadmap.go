package aggregates

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-roadmap/internal/data/repos"
	types "github.com/yungbote/neurobridge-roadmap/internal/domain"
	domainagg "github.com/yungbote/neurobridge-roadmap/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/progress"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/governance"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/remediation"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/skillvector"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
)

type RoadmapAggregateDeps struct {
	Base BaseDeps

	Roadmaps    repos.RoadmapRepo
	States      repos.LearningStateRepo
	History     repos.SkillHistoryRepo
	Submissions repos.SubmissionRepo

	Engine skillvector.Engine
	Now    func() time.Time
}

type roadmapAggregate struct {
	deps RoadmapAggregateDeps
}

func NewRoadmapAggregate(deps RoadmapAggregateDeps) domainagg.RoadmapAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Engine == (skillvector.Engine{}) {
		deps.Engine = skillvector.NewEngine()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &roadmapAggregate{deps: deps}
}

func (a *roadmapAggregate) Contract() domainagg.Contract {
	return domainagg.RoadmapAggregateContract
}

func (a *roadmapAggregate) ready(op string) error {
	if a.deps.Roadmaps == nil || a.deps.States == nil || a.deps.History == nil || a.deps.Submissions == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "roadmap aggregate repos not configured", nil)
	}
	return nil
}

func requireLearner(op, learnerID string) error {
	if strings.TrimSpace(learnerID) == "" {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing learner_id", nil)
	}
	return nil
}

func (a *roadmapAggregate) load(dbc dbctx.Context, op, learnerID string) (*types.RoadmapRecord, *roadmap.Roadmap, error) {
	rec, err := a.deps.Roadmaps.GetByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, roadmap.NewError(roadmap.KindNotFound, op, "no roadmap for learner", nil)
	}
	r, err := rec.Roadmap()
	if err != nil {
		return nil, nil, InvariantError(err.Error())
	}
	return rec, r, nil
}

// save validates next and swaps it in only if the row still carries the
// version that was loaded.
func (a *roadmapAggregate) save(dbc dbctx.Context, rec *types.RoadmapRecord, next *roadmap.Roadmap) error {
	if err := next.Validate(); err != nil {
		return err
	}
	expected := rec.Version
	next.Version = expected + 1
	enc, err := progress.NewRoadmapRecord(next)
	if err != nil {
		return err
	}
	return a.deps.Base.CASGuard.SwapVersion(dbc, types.RoadmapRecord{}.TableName(), rec.ID, expected, map[string]any{
		"document":   enc.Document,
		"status":     enc.Status,
		"updated_at": a.deps.Now(),
	})
}

func (a *roadmapAggregate) Bootstrap(ctx context.Context, in domainagg.BootstrapInput) (domainagg.BootstrapResult, error) {
	const op = "Learning.Roadmap.Bootstrap"
	var out domainagg.BootstrapResult
	if err := requireLearner(op, in.LearnerID); err != nil {
		return out, err
	}
	if in.Curriculum == nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing curriculum", nil)
	}
	if err := a.ready(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rec, err := a.deps.Roadmaps.GetByLearnerID(dbc, in.LearnerID)
		if err != nil {
			return err
		}
		if rec != nil && !in.Reset {
			r, err := rec.Roadmap()
			if err != nil {
				return InvariantError(err.Error())
			}
			out = domainagg.BootstrapResult{Roadmap: r}
			return nil
		}
		if rec != nil {
			if err := a.deps.Roadmaps.DeleteByLearnerID(dbc, in.LearnerID); err != nil {
				return err
			}
		}

		r := roadmap.New(in.LearnerID, in.Curriculum)
		if in.RemediationCap > 0 {
			r.RemediationCap = in.RemediationCap
		}
		r.Version = 1
		if err := r.Validate(); err != nil {
			return err
		}
		row, err := progress.NewRoadmapRecord(r)
		if err != nil {
			return err
		}
		if err := a.deps.Roadmaps.Create(dbc, row); err != nil {
			return err
		}
		out = domainagg.BootstrapResult{Roadmap: r, Created: true}
		return nil
	})
	return out, err
}

func (a *roadmapAggregate) StartSlot(ctx context.Context, in domainagg.StartSlotInput) (domainagg.StartSlotResult, error) {
	const op = "Learning.Roadmap.StartSlot"
	var out domainagg.StartSlotResult
	if err := requireLearner(op, in.LearnerID); err != nil {
		return out, err
	}
	if strings.TrimSpace(in.SlotID) == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing slot_id", nil)
	}
	if err := a.ready(op); err != nil {
		return out, err
	}
	at := in.StartedAt
	if at.IsZero() {
		at = a.deps.Now()
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rec, r, err := a.load(dbc, op, in.LearnerID)
		if err != nil {
			return err
		}
		next := r.Clone()
		inst, err := next.StartSlot(roadmap.StartInput{
			SlotID:         in.SlotID,
			Template:       in.Template,
			TaskInstanceID: in.TaskInstanceID,
			At:             at,
		})
		if err != nil {
			return err
		}
		if err := a.save(dbc, rec, next); err != nil {
			return err
		}
		out = domainagg.StartSlotResult{Roadmap: next, Instance: inst}
		return nil
	})
	return out, err
}

func (a *roadmapAggregate) CommitEvaluation(ctx context.Context, in domainagg.CommitEvaluationInput) (domainagg.CommitEvaluationResult, error) {
	const op = "Learning.Roadmap.CommitEvaluation"
	var out domainagg.CommitEvaluationResult
	if err := requireLearner(op, in.LearnerID); err != nil {
		return out, err
	}
	if strings.TrimSpace(in.TaskInstanceID) == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing task_instance_id", nil)
	}
	if err := a.ready(op); err != nil {
		return out, err
	}
	at := in.EvaluatedAt
	if at.IsZero() {
		at = a.deps.Now()
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rec, r, err := a.load(dbc, op, in.LearnerID)
		if err != nil {
			return err
		}
		inst, slot, err := r.CheckSubmission(in.TaskInstanceID)
		if err != nil {
			return err
		}

		next := r.Clone()
		outcome, err := next.ApplyEvaluation(inst.TaskInstanceID, in.Result, at)
		if err != nil {
			return err
		}
		res := domainagg.CommitEvaluationResult{Outcome: outcome}
		switch {
		case outcome.Passed:
			unlocked, err := remediation.UnlockDependentsAfterRemediation(next, slot.SlotID)
			if err != nil {
				return err
			}
			if len(unlocked) > 0 {
				next.ResolveActivePhase()
			}
			res.Unlocked = slices.Concat(outcome.ReleasedSlotIDs, unlocked)
		case outcome.RemediationRequired:
			plan, err := remediation.BuildPlan(next, inst.TaskInstanceID, in.Curriculum)
			if err != nil {
				return err
			}
			if err := remediation.ApplyPlan(next, plan); err != nil {
				return err
			}
			res.Remediation = &plan
		}

		qt := in.QuestionType
		if qt == "" {
			qt = slot.QuestionType
		}
		deltas, err := skillvector.ComputeDelta(in.Result, slot.Difficulty, slot.Skill, qt)
		if err != nil {
			return err
		}
		stRow, err := a.deps.States.GetByLearnerID(dbc, in.LearnerID)
		if err != nil {
			return err
		}
		state := mastery.NewState(in.LearnerID)
		if stRow != nil {
			if state, err = stRow.State(); err != nil {
				return InvariantError(err.Error())
			}
		}
		events := a.deps.Engine.Apply(state, deltas, skillvector.Observation{
			TaskInstanceID: inst.TaskInstanceID,
			Score:          in.Result.Score,
			Weight:         skillvector.TrustWeight(qt),
			At:             at,
		})

		if err := a.save(dbc, rec, next); err != nil {
			return err
		}

		newState, err := progress.NewLearningState(state)
		if err != nil {
			return err
		}
		if err := a.deps.States.Upsert(dbc, newState); err != nil {
			return err
		}
		history := make([]*types.SkillHistory, 0, len(events))
		for _, ev := range events {
			history = append(history, progress.SkillHistoryFromEvent(in.LearnerID, ev))
		}
		if _, err := a.deps.History.Create(dbc, history); err != nil {
			return err
		}

		sub, err := submissionRow(in, rec.ID, inst, slot, qt, at)
		if err != nil {
			return err
		}
		if err := a.deps.Submissions.Create(dbc, sub); err != nil {
			return err
		}

		res.Roadmap = next
		res.Deltas = deltas
		res.SkillEvents = events
		res.State = state
		res.SubmissionID = sub.ID.String()
		out = res
		return nil
	})
	return out, err
}

func submissionRow(in domainagg.CommitEvaluationInput, roadmapID uuid.UUID, inst roadmap.TaskInstance, slot roadmap.Slot, qt curriculum.QuestionType, at time.Time) (*types.Submission, error) {
	payload := in.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, ValidationError("payload is not JSON encodable: " + err.Error())
	}
	mistakes := in.Result.Mistakes
	if mistakes == nil {
		mistakes = []string{}
	}
	mb, _ := json.Marshal(mistakes)
	concepts := in.Result.DetectedConcepts
	if concepts == nil {
		concepts = []string{}
	}
	cb, _ := json.Marshal(concepts)
	return &types.Submission{
		ID:               uuid.New(),
		LearnerID:        in.LearnerID,
		RoadmapID:        roadmapID,
		TaskInstanceID:   inst.TaskInstanceID,
		TaskTemplateID:   inst.TaskTemplateID,
		SlotID:           slot.SlotID,
		QuestionType:     string(qt),
		Payload:          datatypes.JSON(pb),
		Passed:           in.Result.Passed,
		Score:            in.Result.Score,
		Feedback:         in.Result.Feedback,
		Mistakes:         datatypes.JSON(mb),
		DetectedConcepts: datatypes.JSON(cb),
		CreatedAt:        at,
	}, nil
}

func (a *roadmapAggregate) ApplyGovernance(ctx context.Context, in domainagg.ApplyGovernanceInput) (domainagg.ApplyGovernanceResult, error) {
	const op = "Learning.Roadmap.ApplyGovernance"
	var out domainagg.ApplyGovernanceResult
	if err := requireLearner(op, in.LearnerID); err != nil {
		return out, err
	}
	if err := a.ready(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rec, r, err := a.load(dbc, op, in.LearnerID)
		if err != nil {
			return err
		}
		next := r.Clone()
		rep, err := governance.Apply(next, in.Curriculum, in.Context)
		if err != nil {
			return err
		}
		if !rep.Changed() {
			out = domainagg.ApplyGovernanceResult{Roadmap: r, Report: rep}
			return nil
		}
		if err := a.save(dbc, rec, next); err != nil {
			return err
		}
		out = domainagg.ApplyGovernanceResult{Roadmap: next, Report: rep}
		return nil
	})
	return out, err
}
