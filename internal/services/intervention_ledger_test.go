package services

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-roadmap/internal/data/repos"
	repotest "github.com/yungbote/neurobridge-roadmap/internal/data/repos/testutil"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/orchestrator"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-roadmap/internal/realtime"
)

func TestInterventionSinks(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	repo := repos.NewMarketInterventionRepo(tx, repotest.Logger(t))
	b := &recordingBus{}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	entry := orchestrator.LedgerEntry{
		Timestamp:       at,
		Event:           orchestrator.EventMarketIntervention,
		LearnerID:       "learner-1",
		SlotID:          "p1_s3",
		TargetInvariant: "variables",
		Pressure:        1.8,
		Cost:            1,
		Score:           11.75,
		ProbeID:         "p1_s1_v1",
		Reason:          "global_intervention",
	}
	ctx := context.Background()
	if err := InterventionStoreSink(repo)(ctx, entry); err != nil {
		t.Fatalf("store sink: %v", err)
	}
	if err := InterventionEventSink(b)(ctx, entry); err != nil {
		t.Fatalf("event sink: %v", err)
	}

	rows, err := repo.ListByLearnerID(dbctx.New(ctx), "learner-1", 10)
	if err != nil {
		t.Fatalf("ListByLearnerID: %v", err)
	}
	if len(rows) != 1 || rows[0].ProbeID != "p1_s1_v1" || rows[0].Score != 11.75 {
		t.Fatalf("rows: %+v", rows)
	}
	if len(b.msgs) != 1 || b.msgs[0].Event != realtime.EventMarketIntervention || !b.msgs[0].At.Equal(at) {
		t.Fatalf("published: %+v", b.msgs)
	}
	if b.msgs[0].Channel != realtime.LearnerChannel("learner-1") {
		t.Fatalf("channel: %s", b.msgs[0].Channel)
	}
}
