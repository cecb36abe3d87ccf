package mastery

import (
	"time"
)

// EvaluationResult is the graded outcome of one submission.
type EvaluationResult struct {
	Passed           bool     `json:"passed"`
	Score            float64  `json:"score"`
	Feedback         string   `json:"feedback"`
	DetectedConcepts []string `json:"detected_concepts"`
	Mistakes         []string `json:"mistakes"`
}

type EvidenceSummary struct {
	EventCount      int     `json:"event_count"`
	CumulativeScore float64 `json:"cumulative_score"`
	LastEventID     string  `json:"last_event_id,omitempty"`
}

// SourceMix is the exponentially-weighted provenance of a skill level.
// Components drift independently and are not renormalized.
type SourceMix struct {
	Priors      float64 `json:"priors"`
	Tasks       float64 `json:"tasks"`
	Assessments float64 `json:"assessments"`
	Projects    float64 `json:"projects"`
}

func (m SourceMix) Sum() float64 { return m.Priors + m.Tasks + m.Assessments + m.Projects }

// PriorOnlyMix is the provenance of a freshly seeded skill.
func PriorOnlyMix() SourceMix { return SourceMix{Priors: 1} }

type SkillEntry struct {
	Level       float64         `json:"level"`
	Confidence  float64         `json:"confidence"`
	Evidence    EvidenceSummary `json:"evidence_summary"`
	SourceMix   SourceMix       `json:"source_mix"`
	LastUpdated time.Time       `json:"last_updated"`
}

// State is the learner's skill vector. Its lifetime is independent of any roadmap.
type State struct {
	LearnerID string                `json:"learner_id"`
	Skills    map[string]SkillEntry `json:"skills"`
}

func NewState(learnerID string) *State {
	return &State{LearnerID: learnerID, Skills: map[string]SkillEntry{}}
}

// Levels flattens the skill vector to skill -> level.
func (s *State) Levels() map[string]float64 {
	out := map[string]float64{}
	if s == nil {
		return out
	}
	for k, v := range s.Skills {
		out[k] = v.Level
	}
	return out
}

// SkillEvent is one recorded level change, used to derive volatility and velocity.
type SkillEvent struct {
	Skill          string    `json:"skill"`
	OldLevel       float64   `json:"old_level"`
	NewLevel       float64   `json:"new_level"`
	Delta          float64   `json:"delta"`
	TaskInstanceID string    `json:"task_instance_id"`
	At             time.Time `json:"at"`
}

// SubmissionRef is the slice of a stored submission the decision layer reads.
type SubmissionRef struct {
	TaskInstanceID string    `json:"task_instance_id"`
	TaskTemplateID string    `json:"task_template_id"`
	CreatedAt      time.Time `json:"created_at"`
}
