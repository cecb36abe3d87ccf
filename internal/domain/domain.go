package domain

import (
	"github.com/yungbote/neurobridge-roadmap/internal/domain/progress"
)

type RoadmapRecord = progress.RoadmapRecord
type LearningState = progress.LearningState
type SkillHistory = progress.SkillHistory
type Submission = progress.Submission
type MarketIntervention = progress.MarketIntervention

// Models lists every persisted table, in migration order.
func Models() []any {
	return []any{
		&RoadmapRecord{},
		&LearningState{},
		&SkillHistory{},
		&Submission{},
		&MarketIntervention{},
	}
}
