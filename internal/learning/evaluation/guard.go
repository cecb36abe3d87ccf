package evaluation

import (
	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
)

const (
	MinPassingScore = 0.6
	MaxFailingScore = 0.5
)

// Enforce makes a grader result self-consistent: score in [0,1], a pass never
// scores below 0.6, a fail never above 0.5, and a fail with no mistakes is a pass.
func Enforce(r mastery.EvaluationResult) mastery.EvaluationResult {
	score := r.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	passed := r.Passed
	if passed && score < MinPassingScore {
		score = MinPassingScore
	}
	if !passed && score > MaxFailingScore {
		score = MaxFailingScore
	}
	if !passed && len(r.Mistakes) == 0 {
		passed = true
		score = max(score, MinPassingScore)
	}
	out := r
	out.Passed = passed
	out.Score = score
	if out.DetectedConcepts == nil {
		out.DetectedConcepts = []string{}
	}
	if out.Mistakes == nil {
		out.Mistakes = []string{}
	}
	return out
}
