package skillvector

import (
	"sort"
	"time"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
)

const (
	DefaultConfidenceStep = 0.05
	DefaultDriftAlpha     = 0.1
)

// Engine folds deltas into a learner's skill vector.
type Engine struct {
	ConfidenceStep float64
	DriftAlpha     float64
}

func NewEngine() Engine {
	return Engine{ConfidenceStep: DefaultConfidenceStep, DriftAlpha: DefaultDriftAlpha}
}

// Observation is one graded task feeding the vector.
type Observation struct {
	TaskInstanceID string
	Score          float64
	Weight         float64
	At             time.Time
}

// Apply updates state in place and returns one event per touched skill,
// ordered by skill name.
func (e Engine) Apply(state *mastery.State, deltas map[string]float64, obs Observation) []mastery.SkillEvent {
	if state == nil {
		return nil
	}
	if state.Skills == nil {
		state.Skills = map[string]mastery.SkillEntry{}
	}
	step := e.ConfidenceStep
	if step <= 0 {
		step = DefaultConfidenceStep
	}
	alpha := e.DriftAlpha
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultDriftAlpha
	}
	at := obs.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	skills := make([]string, 0, len(deltas))
	for s := range deltas {
		skills = append(skills, s)
	}
	sort.Strings(skills)

	events := make([]mastery.SkillEvent, 0, len(skills))
	for _, skill := range skills {
		entry, ok := state.Skills[skill]
		if !ok {
			entry = mastery.SkillEntry{SourceMix: mastery.PriorOnlyMix()}
		}
		old := entry.Level
		entry.Level = ApplyDelta(old, deltas[skill])
		entry.Confidence = round3(minf(1, entry.Confidence+step))
		entry.SourceMix = drift(entry.SourceMix, alpha)
		entry.Evidence.EventCount++
		entry.Evidence.CumulativeScore = round3(entry.Evidence.CumulativeScore + obs.Score*weightOr1(obs.Weight))
		if obs.TaskInstanceID != "" {
			entry.Evidence.LastEventID = obs.TaskInstanceID
		}
		entry.LastUpdated = at
		state.Skills[skill] = entry

		events = append(events, mastery.SkillEvent{
			Skill:          skill,
			OldLevel:       old,
			NewLevel:       entry.Level,
			Delta:          round3(entry.Level - old),
			TaskInstanceID: obs.TaskInstanceID,
			At:             at,
		})
	}
	return events
}

// drift pulls the tasks share toward 1 and decays the rest by the same factor.
// The components are not renormalized.
func drift(m mastery.SourceMix, alpha float64) mastery.SourceMix {
	keep := 1 - alpha
	return mastery.SourceMix{
		Priors:      round3(m.Priors * keep),
		Tasks:       round3(m.Tasks*keep + alpha),
		Assessments: round3(m.Assessments * keep),
		Projects:    round3(m.Projects * keep),
	}
}

func weightOr1(w float64) float64 {
	if w <= 0 {
		return 1
	}
	return w
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
