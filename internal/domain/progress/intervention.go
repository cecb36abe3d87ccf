package progress

import (
	"time"

	"github.com/google/uuid"
)

// MarketIntervention is the persisted pressure-ledger entry.
type MarketIntervention struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID       string    `gorm:"column:learner_id;not null;index" json:"learner_id"`
	Event           string    `gorm:"column:event;not null" json:"event"`
	SlotID          string    `gorm:"column:slot_id" json:"slot_id"`
	TargetInvariant string    `gorm:"column:target_invariant;not null;index" json:"target_invariant"`
	Pressure        float64   `gorm:"column:pressure;not null" json:"pressure"`
	Cost            float64   `gorm:"column:cost;not null" json:"cost"`
	Score           float64   `gorm:"column:score;not null" json:"score"`
	ProbeID         string    `gorm:"column:probe_id;not null" json:"probe_id"`
	Reason          string    `gorm:"column:reason" json:"reason"`
	CreatedAt       time.Time `gorm:"not null;index" json:"created_at"`
}

func (MarketIntervention) TableName() string { return "market_intervention" }
