package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-roadmap/internal/data/repos"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

type Repos struct {
	Roadmap       repos.RoadmapRepo
	LearningState repos.LearningStateRepo
	SkillHistory  repos.SkillHistoryRepo
	Submission    repos.SubmissionRepo
	Intervention  repos.MarketInterventionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Roadmap:       repos.NewRoadmapRepo(db, log),
		LearningState: repos.NewLearningStateRepo(db, log),
		SkillHistory:  repos.NewSkillHistoryRepo(db, log),
		Submission:    repos.NewSubmissionRepo(db, log),
		Intervention:  repos.NewMarketInterventionRepo(db, log),
	}
}
