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

type MarketInterventionRepo interface {
	Create(dbc dbctx.Context, row *types.MarketIntervention) error
	ListByLearnerID(dbc dbctx.Context, learnerID string, limit int) ([]*types.MarketIntervention, error)
}

type marketInterventionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMarketInterventionRepo(db *gorm.DB, baseLog *logger.Logger) MarketInterventionRepo {
	return &marketInterventionRepo{db: db, log: baseLog.With("repo", "MarketInterventionRepo")}
}

func (r *marketInterventionRepo) Create(dbc dbctx.Context, row *types.MarketIntervention) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *marketInterventionRepo) ListByLearnerID(dbc dbctx.Context, learnerID string, limit int) ([]*types.MarketIntervention, error) {
	rows := []*types.MarketIntervention{}
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return rows, nil
	}
	q := dbc.DB(r.db).Where("learner_id = ?", learnerID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
