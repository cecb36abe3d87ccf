package aggregates

import (
	"context"
	"time"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/decision"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/governance"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/remediation"
)

var RoadmapAggregateContract = Contract{
	Name:      "Learning.RoadmapAggregate",
	Tables:    []string{"learner_roadmap", "learning_state", "skill_history", "submission"},
	Versioned: true,
}

// RoadmapAggregate owns a learner's roadmap progression.
//
// Every write reloads the roadmap inside its transaction, mutates a clone,
// validates it, and swaps it in by version. Domain failures keep their
// *roadmap.Error as the cause, so roadmap.KindOf works on the returned error.
type RoadmapAggregate interface {
	Aggregate

	// Bootstrap creates the learner's roadmap from a curriculum. An existing
	// roadmap is returned untouched unless Reset is set.
	Bootstrap(ctx context.Context, in BootstrapInput) (BootstrapResult, error)

	// StartSlot opens a task instance on a slot.
	StartSlot(ctx context.Context, in StartSlotInput) (StartSlotResult, error)

	// CommitEvaluation closes the in-flight task with a graded result and runs
	// the remediation and skill-vector cascade in the same transaction.
	CommitEvaluation(ctx context.Context, in CommitEvaluationInput) (CommitEvaluationResult, error)

	// ApplyGovernance runs the governance rules over the active phase.
	ApplyGovernance(ctx context.Context, in ApplyGovernanceInput) (ApplyGovernanceResult, error)
}

type BootstrapInput struct {
	LearnerID      string
	Curriculum     *curriculum.Curriculum
	RemediationCap int
	Reset          bool
}

type BootstrapResult struct {
	Roadmap *roadmap.Roadmap
	Created bool
}

type StartSlotInput struct {
	LearnerID      string
	SlotID         string
	Template       curriculum.TaskTemplate
	TaskInstanceID string
	StartedAt      time.Time
}

type StartSlotResult struct {
	Roadmap  *roadmap.Roadmap
	Instance roadmap.TaskInstance
}

type CommitEvaluationInput struct {
	LearnerID      string
	TaskInstanceID string
	QuestionType   curriculum.QuestionType
	Payload        map[string]any
	Result         mastery.EvaluationResult
	Curriculum     *curriculum.Curriculum
	EvaluatedAt    time.Time
}

type CommitEvaluationResult struct {
	Roadmap      *roadmap.Roadmap
	Outcome      roadmap.Outcome
	Remediation  *remediation.Plan
	Unlocked     []string
	Deltas       map[string]float64
	SkillEvents  []mastery.SkillEvent
	State        *mastery.State
	SubmissionID string
}

type ApplyGovernanceInput struct {
	LearnerID  string
	Curriculum *curriculum.Curriculum
	Context    *decision.Context
}

type ApplyGovernanceResult struct {
	Roadmap *roadmap.Roadmap
	Report  governance.Report
}
