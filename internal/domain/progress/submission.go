package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
)

// Submission is a graded answer. A task instance accepts one submission per
// learner; the unique index enforces it.
type Submission struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID      string    `gorm:"column:learner_id;not null;uniqueIndex:idx_submission_learner_instance,priority:1;index:idx_submission_learner_created,priority:1" json:"learner_id"`
	RoadmapID      uuid.UUID `gorm:"type:uuid;column:roadmap_id;not null;index" json:"roadmap_id"`
	TaskInstanceID string    `gorm:"column:task_instance_id;not null;uniqueIndex:idx_submission_learner_instance,priority:2" json:"task_instance_id"`
	TaskTemplateID string    `gorm:"column:task_template_id;not null;index" json:"task_template_id"`
	SlotID         string    `gorm:"column:slot_id;not null" json:"slot_id"`
	QuestionType   string    `gorm:"column:question_type;not null" json:"question_type"`

	Payload datatypes.JSON `gorm:"column:payload;type:jsonb;not null" json:"payload"`

	Passed           bool           `gorm:"column:passed;not null" json:"passed"`
	Score            float64        `gorm:"column:score;not null" json:"score"`
	Feedback         string         `gorm:"column:feedback" json:"feedback"`
	Mistakes         datatypes.JSON `gorm:"column:mistakes;type:jsonb" json:"mistakes"`
	DetectedConcepts datatypes.JSON `gorm:"column:detected_concepts;type:jsonb" json:"detected_concepts"`

	CreatedAt time.Time `gorm:"not null;index:idx_submission_learner_created,priority:2" json:"created_at"`
}

func (Submission) TableName() string { return "submission" }

func (s *Submission) Ref() mastery.SubmissionRef {
	return mastery.SubmissionRef{
		TaskInstanceID: s.TaskInstanceID,
		TaskTemplateID: s.TaskTemplateID,
		CreatedAt:      s.CreatedAt,
	}
}
