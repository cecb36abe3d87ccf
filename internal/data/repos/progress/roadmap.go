package progress

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-roadmap/internal/domain"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

type RoadmapRepo interface {
	Create(dbc dbctx.Context, row *types.RoadmapRecord) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.RoadmapRecord, error)
	GetByLearnerID(dbc dbctx.Context, learnerID string) (*types.RoadmapRecord, error)
	ListByStatus(dbc dbctx.Context, statuses []string, limit int) ([]*types.RoadmapRecord, error)
	DeleteByLearnerID(dbc dbctx.Context, learnerID string) error
}

type roadmapRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoadmapRepo(db *gorm.DB, baseLog *logger.Logger) RoadmapRepo {
	return &roadmapRepo{db: db, log: baseLog.With("repo", "RoadmapRepo")}
}

func (r *roadmapRepo) Create(dbc dbctx.Context, row *types.RoadmapRecord) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	return dbc.DB(r.db).Create(row).Error
}

func (r *roadmapRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.RoadmapRecord, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.RoadmapRecord
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

// GetByLearnerID returns nil, nil when the learner has no roadmap.
func (r *roadmapRepo) GetByLearnerID(dbc dbctx.Context, learnerID string) (*types.RoadmapRecord, error) {
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return nil, nil
	}
	var row types.RoadmapRecord
	if err := dbc.DB(r.db).Where("learner_id = ?", learnerID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *roadmapRepo) ListByStatus(dbc dbctx.Context, statuses []string, limit int) ([]*types.RoadmapRecord, error) {
	var rows []*types.RoadmapRecord
	if len(statuses) == 0 {
		return rows, nil
	}
	q := dbc.DB(r.db).Where("status IN ?", statuses).Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *roadmapRepo) DeleteByLearnerID(dbc dbctx.Context, learnerID string) error {
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return nil
	}
	return dbc.DB(r.db).Where("learner_id = ?", learnerID).Delete(&types.RoadmapRecord{}).Error
}
