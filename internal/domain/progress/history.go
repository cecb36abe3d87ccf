package progress

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
)

// SkillHistory is one recorded level change.
type SkillHistory struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID      string    `gorm:"column:learner_id;not null;index:idx_skill_history_learner_created,priority:1" json:"learner_id"`
	Skill          string    `gorm:"column:skill;not null;index" json:"skill"`
	OldLevel       float64   `gorm:"column:old_level;not null" json:"old_level"`
	NewLevel       float64   `gorm:"column:new_level;not null" json:"new_level"`
	Delta          float64   `gorm:"column:delta;not null" json:"delta"`
	TaskInstanceID string    `gorm:"column:task_instance_id;not null;index" json:"task_instance_id"`
	CreatedAt      time.Time `gorm:"not null;index:idx_skill_history_learner_created,priority:2" json:"created_at"`
}

func (SkillHistory) TableName() string { return "skill_history" }

func SkillHistoryFromEvent(learnerID string, ev mastery.SkillEvent) *SkillHistory {
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return &SkillHistory{
		ID:             uuid.New(),
		LearnerID:      learnerID,
		Skill:          ev.Skill,
		OldLevel:       ev.OldLevel,
		NewLevel:       ev.NewLevel,
		Delta:          ev.Delta,
		TaskInstanceID: ev.TaskInstanceID,
		CreatedAt:      at,
	}
}

func (h *SkillHistory) Event() mastery.SkillEvent {
	return mastery.SkillEvent{
		Skill:          h.Skill,
		OldLevel:       h.OldLevel,
		NewLevel:       h.NewLevel,
		Delta:          h.Delta,
		TaskInstanceID: h.TaskInstanceID,
		At:             h.CreatedAt,
	}
}
