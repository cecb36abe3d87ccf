package progress

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-roadmap/internal/domain"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

type LearningStateRepo interface {
	GetByLearnerID(dbc dbctx.Context, learnerID string) (*types.LearningState, error)
	Upsert(dbc dbctx.Context, row *types.LearningState) error
}

type learningStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningStateRepo(db *gorm.DB, baseLog *logger.Logger) LearningStateRepo {
	return &learningStateRepo{db: db, log: baseLog.With("repo", "LearningStateRepo")}
}

func (r *learningStateRepo) GetByLearnerID(dbc dbctx.Context, learnerID string) (*types.LearningState, error) {
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return nil, nil
	}
	var row types.LearningState
	if err := dbc.DB(r.db).Where("learner_id = ?", learnerID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.LearnerID == "" {
		return nil, nil
	}
	return &row, nil
}

// Upsert writes the skill vector. Inserts start at version 1; updates bump
// the stored version.
func (r *learningStateRepo) Upsert(dbc dbctx.Context, row *types.LearningState) error {
	if row == nil || strings.TrimSpace(row.LearnerID) == "" {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	if row.Version <= 0 {
		row.Version = 1
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "learner_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"skills":     row.Skills,
				"updated_at": row.UpdatedAt,
				"version":    gorm.Expr("learning_state.version + 1"),
			}),
		}).
		Create(row).Error
}
