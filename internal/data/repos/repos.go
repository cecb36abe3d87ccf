package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-roadmap/internal/data/repos/progress"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

type RoadmapRepo = progress.RoadmapRepo
type LearningStateRepo = progress.LearningStateRepo
type SkillHistoryRepo = progress.SkillHistoryRepo
type SubmissionRepo = progress.SubmissionRepo
type MarketInterventionRepo = progress.MarketInterventionRepo

func NewRoadmapRepo(db *gorm.DB, baseLog *logger.Logger) RoadmapRepo {
	return progress.NewRoadmapRepo(db, baseLog)
}
func NewLearningStateRepo(db *gorm.DB, baseLog *logger.Logger) LearningStateRepo {
	return progress.NewLearningStateRepo(db, baseLog)
}
func NewSkillHistoryRepo(db *gorm.DB, baseLog *logger.Logger) SkillHistoryRepo {
	return progress.NewSkillHistoryRepo(db, baseLog)
}
func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	return progress.NewSubmissionRepo(db, baseLog)
}
func NewMarketInterventionRepo(db *gorm.DB, baseLog *logger.Logger) MarketInterventionRepo {
	return progress.NewMarketInterventionRepo(db, baseLog)
}
