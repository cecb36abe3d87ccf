package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-roadmap/internal/domain"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/progress"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
)

// Curriculum is a two-phase track: variables (easy, medium) and loops in p1,
// functions in p2.
func Curriculum() *curriculum.Curriculum {
	c := &curriculum.Curriculum{
		TrackID: "python",
		Phases: []curriculum.PhaseDefinition{
			{PhaseID: "p1", Slots: []curriculum.SlotDefinition{
				{SlotID: "p1_s1", Skill: "variables", Difficulty: curriculum.DifficultyEasy, QuestionType: curriculum.QuestionMCQ},
				{SlotID: "p1_s2", Skill: "variables", Difficulty: curriculum.DifficultyMedium, QuestionType: curriculum.QuestionCoding},
				{SlotID: "p1_s3", Skill: "loops", Difficulty: curriculum.DifficultyEasy, QuestionType: curriculum.QuestionMCQ},
			}},
			{PhaseID: "p2", Slots: []curriculum.SlotDefinition{
				{SlotID: "p2_s1", Skill: "functions", Difficulty: curriculum.DifficultyEasy, QuestionType: curriculum.QuestionExplanation},
			}},
		},
	}
	c.Normalize()
	return c
}

// Template builds a standard template matching slot.
func Template(slot roadmap.Slot) curriculum.TaskTemplate {
	return curriculum.TaskTemplate{
		TaskTemplateID: slot.SlotID + "_v1",
		SlotID:         slot.SlotID,
		Skill:          slot.Skill,
		Difficulty:     slot.Difficulty,
		QuestionType:   slot.QuestionType,
		CorrectOption:  "B",
	}
}

func SeedRoadmap(tb testing.TB, ctx context.Context, tx *gorm.DB, learnerID string) *roadmap.Roadmap {
	tb.Helper()
	r := roadmap.New(learnerID, Curriculum())
	rec, err := progress.NewRoadmapRecord(r)
	if err != nil {
		tb.Fatalf("encode roadmap: %v", err)
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed roadmap: %v", err)
	}
	return r
}

func SeedSubmission(tb testing.TB, ctx context.Context, tx *gorm.DB, row *types.Submission) *types.Submission {
	tb.Helper()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed submission: %v", err)
	}
	return row
}
