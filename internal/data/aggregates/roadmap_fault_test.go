package aggregates_test

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-roadmap/internal/data/aggregates"
	aggtest "github.com/yungbote/neurobridge-roadmap/internal/data/aggregates/testutil"
	"github.com/yungbote/neurobridge-roadmap/internal/data/repos"
	repotest "github.com/yungbote/neurobridge-roadmap/internal/data/repos/testutil"
	domainagg "github.com/yungbote/neurobridge-roadmap/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
)

func newAggregate(t *testing.T, tx *gorm.DB, runner aggregates.TxRunner) domainagg.RoadmapAggregate {
	log := repotest.Logger(t)
	return aggregates.NewRoadmapAggregate(aggregates.RoadmapAggregateDeps{
		Base:        aggregates.BaseDeps{DB: tx, Runner: runner},
		Roadmaps:    repos.NewRoadmapRepo(tx, log),
		States:      repos.NewLearningStateRepo(tx, log),
		History:     repos.NewSkillHistoryRepo(tx, log),
		Submissions: repos.NewSubmissionRepo(tx, log),
	})
}

func TestStartSlotLostCommitLeavesRoadmapUntouched(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ctx := context.Background()

	boot, err := newAggregate(t, tx, aggregates.NewGormTxRunner(tx)).Bootstrap(ctx, domainagg.BootstrapInput{
		LearnerID:  "learner-f",
		Curriculum: repotest.Curriculum(),
	})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	slot, _ := boot.Roadmap.Slot("p1_s1")

	lost := errors.New("commit lost")
	runner := &aggtest.FaultRunner{Inner: aggregates.NewGormTxRunner(tx), FailAfterBody: lost}
	_, err = newAggregate(t, tx, runner).StartSlot(ctx, domainagg.StartSlotInput{
		LearnerID:      "learner-f",
		SlotID:         "p1_s1",
		Template:       repotest.Template(slot),
		TaskInstanceID: "ti-lost",
	})
	if !errors.Is(err, lost) {
		t.Fatalf("want lost commit, got=%v", err)
	}
	if _, bodies, rollbacks := runner.Stats(); bodies != 1 || rollbacks != 1 {
		t.Fatalf("runner stats: bodies=%d rollbacks=%d", bodies, rollbacks)
	}

	rec, err := repos.NewRoadmapRepo(tx, repotest.Logger(t)).GetByLearnerID(dbctx.New(ctx), "learner-f")
	if err != nil || rec == nil {
		t.Fatalf("reload: rec=%v err=%v", rec, err)
	}
	stored, err := rec.Roadmap()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.Version != boot.Roadmap.Version {
		t.Fatalf("version: want=%d got=%d", boot.Roadmap.Version, stored.Version)
	}
	if got, _ := stored.Slot("p1_s1"); got.Status != roadmap.SlotAvailable || got.ActiveTaskInstanceID != "" {
		t.Fatalf("slot after rollback: %+v", got)
	}
	if len(stored.TaskInstances) != 0 {
		t.Fatalf("instances after rollback: %+v", stored.TaskInstances)
	}
}

func TestFailBeforeSkipsAggregateBody(t *testing.T) {
	tx := repotest.Tx(t, repotest.DB(t))
	runner := &aggtest.FaultRunner{FailBefore: errors.New("database is locked")}
	_, err := newAggregate(t, tx, runner).Bootstrap(context.Background(), domainagg.BootstrapInput{
		LearnerID:  "learner-g",
		Curriculum: repotest.Curriculum(),
	})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("want retryable, got=%v", err)
	}
	if _, bodies, _ := runner.Stats(); bodies != 0 {
		t.Fatalf("body ran %d times", bodies)
	}
}

func TestRoadmapContractTablesAreMigrated(t *testing.T) {
	db := repotest.DB(t)
	c := newAggregate(t, db, nil).Contract()
	if !c.Versioned || !c.Owns("learner_roadmap") {
		t.Fatalf("contract: %+v", c)
	}
	if c.Owns("market_intervention") {
		t.Fatalf("interventions are written by the ledger, not the aggregate")
	}
	for _, table := range c.Tables {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("table %s not migrated", table)
		}
	}
}
