package skillvector

import (
	"fmt"
	"math"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
)

const (
	FailPenalty    = -0.05
	MinPassScore   = 0.6
	HighScore      = 0.9
	HighScoreBonus = 0.05
)

var baseDelta = map[curriculum.Difficulty]float64{
	curriculum.DifficultyEasy:   0.10,
	curriculum.DifficultyMedium: 0.15,
	curriculum.DifficultyHard:   0.20,
}

// trustWeight discounts formats that are easier to guess.
var trustWeight = map[curriculum.QuestionType]float64{
	curriculum.QuestionMCQ:         0.5,
	curriculum.QuestionCoding:      1.0,
	curriculum.QuestionExplanation: 0.7,
}

// TrustWeight returns the question-type multiplier, or 0 for unknown types.
func TrustWeight(qt curriculum.QuestionType) float64 { return trustWeight[qt] }

// ComputeDelta turns one graded result into a per-skill mastery change.
// It is deterministic in its inputs.
func ComputeDelta(ev mastery.EvaluationResult, difficulty curriculum.Difficulty, skill string, qt curriculum.QuestionType) (map[string]float64, error) {
	if !ev.Passed {
		return map[string]float64{skill: FailPenalty}, nil
	}
	if ev.Score < MinPassScore {
		return map[string]float64{skill: 0}, nil
	}
	base, ok := baseDelta[difficulty]
	if !ok {
		return nil, fmt.Errorf("skillvector: unknown difficulty %q", difficulty)
	}
	if ev.Score >= HighScore {
		base += HighScoreBonus
	}
	w, ok := trustWeight[qt]
	if !ok {
		return nil, fmt.Errorf("skillvector: unknown question type %q", qt)
	}
	return map[string]float64{skill: round3(base * w)}, nil
}

// ApplyDelta clamps level+delta to [0,1] and rounds to three decimals.
func ApplyDelta(level, delta float64) float64 {
	v := round3(level + delta)
	return math.Max(0, math.Min(1, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
