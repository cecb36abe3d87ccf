package aggregates

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-roadmap/internal/data/repos"
	repotest "github.com/yungbote/neurobridge-roadmap/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-roadmap/internal/domain"
	domainagg "github.com/yungbote/neurobridge-roadmap/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
)

func TestSwapVersion(t *testing.T) {
	ctx := context.Background()
	tx := repotest.Tx(t, repotest.DB(t))
	repotest.SeedRoadmap(t, ctx, tx, "learner-cas")
	roadmaps := repos.NewRoadmapRepo(tx, repotest.Logger(t))

	rec, err := roadmaps.GetByLearnerID(dbctx.New(ctx), "learner-cas")
	if err != nil || rec == nil {
		t.Fatalf("load: rec=%v err=%v", rec, err)
	}
	table := types.RoadmapRecord{}.TableName()
	guard := NewCASGuard(tx)
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	if err := guard.SwapVersion(dbc, table, rec.ID, rec.Version, map[string]any{"status": string(roadmap.StatusLocked)}); err != nil {
		t.Fatalf("first swap: %v", err)
	}
	after, _ := roadmaps.GetByLearnerID(dbctx.New(ctx), "learner-cas")
	if after.Version != rec.Version+1 || after.Status != string(roadmap.StatusLocked) {
		t.Fatalf("after swap: version=%d status=%s", after.Version, after.Status)
	}

	err = guard.SwapVersion(dbc, table, rec.ID, rec.Version, map[string]any{"status": string(roadmap.StatusActive)})
	if !roadmap.IsKind(err, roadmap.KindConcurrencyConflict) {
		t.Fatalf("stale swap: want concurrency conflict, got=%v", err)
	}
	if !domainagg.IsCode(MapError("op", err), domainagg.CodeRetryable) {
		t.Fatalf("stale swap should map to retryable, got=%v", MapError("op", err))
	}
}

func TestSwapVersionRejectsBadInput(t *testing.T) {
	guard := NewCASGuard(repotest.DB(t))
	dbc := dbctx.New(context.Background())
	cases := []struct {
		name     string
		table    string
		id       uuid.UUID
		expected int
	}{
		{"no table", "", uuid.New(), 1},
		{"nil id", "learner_roadmap", uuid.Nil, 1},
		{"negative version", "learner_roadmap", uuid.New(), -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := guard.SwapVersion(dbc, tc.table, tc.id, tc.expected, nil)
			if !domainagg.IsCode(MapError("op", err), domainagg.CodeValidation) {
				t.Fatalf("want validation, got=%v", err)
			}
		})
	}
}
