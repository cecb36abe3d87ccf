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

type SubmissionRepo interface {
	// Create fails with a unique violation when the instance was already graded.
	Create(dbc dbctx.Context, row *types.Submission) error
	GetByTaskInstance(dbc dbctx.Context, learnerID, taskInstanceID string) (*types.Submission, error)
	// ListRecent returns the latest limit rows, latest first.
	ListRecent(dbc dbctx.Context, learnerID string, limit int) ([]*types.Submission, error)
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	return &submissionRepo{db: db, log: baseLog.With("repo", "SubmissionRepo")}
}

func (r *submissionRepo) Create(dbc dbctx.Context, row *types.Submission) error {
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

func (r *submissionRepo) GetByTaskInstance(dbc dbctx.Context, learnerID, taskInstanceID string) (*types.Submission, error) {
	learnerID = strings.TrimSpace(learnerID)
	taskInstanceID = strings.TrimSpace(taskInstanceID)
	if learnerID == "" || taskInstanceID == "" {
		return nil, nil
	}
	var row types.Submission
	if err := dbc.DB(r.db).
		Where("learner_id = ? AND task_instance_id = ?", learnerID, taskInstanceID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *submissionRepo) ListRecent(dbc dbctx.Context, learnerID string, limit int) ([]*types.Submission, error) {
	rows := []*types.Submission{}
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return rows, nil
	}
	q := dbc.DB(r.db).Where("learner_id = ?", learnerID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
