package progress

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-roadmap/internal/domain"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

type SkillHistoryRepo interface {
	Create(dbc dbctx.Context, rows []*types.SkillHistory) ([]*types.SkillHistory, error)
	// ListBySkill returns the latest limit rows for one skill, oldest first.
	ListBySkill(dbc dbctx.Context, learnerID, skill string, limit int) ([]*types.SkillHistory, error)
}

type skillHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSkillHistoryRepo(db *gorm.DB, baseLog *logger.Logger) SkillHistoryRepo {
	return &skillHistoryRepo{db: db, log: baseLog.With("repo", "SkillHistoryRepo")}
}

func (r *skillHistoryRepo) Create(dbc dbctx.Context, rows []*types.SkillHistory) ([]*types.SkillHistory, error) {
	if len(rows) == 0 {
		return []*types.SkillHistory{}, nil
	}
	for _, row := range rows {
		if row != nil && row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *skillHistoryRepo) ListBySkill(dbc dbctx.Context, learnerID, skill string, limit int) ([]*types.SkillHistory, error) {
	rows := []*types.SkillHistory{}
	learnerID = strings.TrimSpace(learnerID)
	skill = strings.TrimSpace(skill)
	if learnerID == "" || skill == "" {
		return rows, nil
	}
	q := dbc.DB(r.db).
		Where("learner_id = ? AND skill = ?", learnerID, skill).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
