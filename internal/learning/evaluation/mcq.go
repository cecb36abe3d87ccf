package evaluation

import (
	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
)

// EvaluateMCQ is an exact, case-sensitive match. MCQs never reach the grader.
func EvaluateMCQ(selected, correct, skill string) mastery.EvaluationResult {
	if selected == correct {
		return mastery.EvaluationResult{
			Passed:           true,
			Score:            1,
			Feedback:         "Correct",
			DetectedConcepts: []string{skill},
			Mistakes:         []string{},
		}
	}
	return mastery.EvaluationResult{
		Passed:           false,
		Score:            0,
		Feedback:         "Incorrect",
		DetectedConcepts: []string{skill},
		Mistakes:         []string{"Wrong answer"},
	}
}
