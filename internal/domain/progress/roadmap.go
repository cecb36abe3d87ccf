package progress

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
)

// RoadmapRecord stores one learner's roadmap as a JSON document. Version
// mirrors the document's version and is the optimistic-lock column.
type RoadmapRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID string    `gorm:"column:learner_id;not null;uniqueIndex" json:"learner_id"`
	TrackID   string    `gorm:"column:track_id;not null;index" json:"track_id"`
	Status    string    `gorm:"column:status;not null;index" json:"status"`
	Version   int       `gorm:"column:version;not null" json:"version"`

	Document datatypes.JSON `gorm:"column:document;type:jsonb;not null" json:"document"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (RoadmapRecord) TableName() string { return "learner_roadmap" }

// NewRoadmapRecord encodes r. The roadmap id must be a uuid.
func NewRoadmapRecord(r *roadmap.Roadmap) (*RoadmapRecord, error) {
	if r == nil {
		return nil, fmt.Errorf("nil roadmap")
	}
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("roadmap id %q: %w", r.ID, err)
	}
	doc, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode roadmap: %w", err)
	}
	now := time.Now().UTC()
	return &RoadmapRecord{
		ID:        id,
		LearnerID: r.LearnerID,
		TrackID:   r.TrackID,
		Status:    string(r.Status),
		Version:   r.Version,
		Document:  datatypes.JSON(doc),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Roadmap decodes the stored document. The row's version wins over the
// document's so a hand-edited row cannot bypass the lock.
func (rec *RoadmapRecord) Roadmap() (*roadmap.Roadmap, error) {
	if rec == nil {
		return nil, fmt.Errorf("nil roadmap record")
	}
	var r roadmap.Roadmap
	if err := json.Unmarshal(rec.Document, &r); err != nil {
		return nil, fmt.Errorf("decode roadmap %s: %w", rec.ID, err)
	}
	r.Version = rec.Version
	return &r, nil
}
