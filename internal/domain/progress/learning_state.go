package progress

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
)

// LearningState is the learner's skill vector. It outlives any roadmap.
type LearningState struct {
	LearnerID string         `gorm:"column:learner_id;primaryKey" json:"learner_id"`
	Skills    datatypes.JSON `gorm:"column:skills;type:jsonb;not null" json:"skills"`
	Version   int            `gorm:"column:version;not null" json:"version"`
	UpdatedAt time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (LearningState) TableName() string { return "learning_state" }

func NewLearningState(s *mastery.State) (*LearningState, error) {
	if s == nil {
		return nil, fmt.Errorf("nil learning state")
	}
	skills := s.Skills
	if skills == nil {
		skills = map[string]mastery.SkillEntry{}
	}
	b, err := json.Marshal(skills)
	if err != nil {
		return nil, fmt.Errorf("encode skills: %w", err)
	}
	return &LearningState{
		LearnerID: s.LearnerID,
		Skills:    datatypes.JSON(b),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func (ls *LearningState) State() (*mastery.State, error) {
	if ls == nil {
		return nil, fmt.Errorf("nil learning state")
	}
	st := mastery.NewState(ls.LearnerID)
	if len(ls.Skills) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(ls.Skills, &st.Skills); err != nil {
		return nil, fmt.Errorf("decode skills for %s: %w", ls.LearnerID, err)
	}
	if st.Skills == nil {
		st.Skills = map[string]mastery.SkillEntry{}
	}
	return st, nil
}
