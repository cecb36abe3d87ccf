package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-roadmap/internal/data/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/catalog"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/decision"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/evaluation"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/market"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/orchestrator"
	"github.com/yungbote/neurobridge-roadmap/internal/observability"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
	"github.com/yungbote/neurobridge-roadmap/internal/services"
)

type Services struct {
	Curriculum *curriculum.Curriculum
	Catalog    *catalog.Catalog
	Ledger     *orchestrator.AsyncLedger
	Roadmap    services.RoadmapService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, metrics *observability.Metrics, repoSet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	cur, err := catalog.LoadCurriculum(log, cfg.CurriculumPath)
	if err != nil {
		return Services{}, fmt.Errorf("load curriculum: %w", err)
	}
	cat, err := catalog.LoadCatalog(log, cfg.CatalogPath)
	if err != nil {
		return Services{}, fmt.Errorf("load template catalog: %w", err)
	}
	if gaps := cat.CheckRemediationGaps(cur); !gaps.Clean() {
		log.Warn("Template catalog has remediation gaps", "gaps", gaps)
	}

	agg := aggregates.NewRoadmapAggregate(aggregates.RoadmapAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:       db,
			Log:      log,
			Runner:   aggregates.NewGormTxRunner(db),
			Hooks:    aggregates.NewObservabilityHooks(metrics),
			CASGuard: aggregates.NewCASGuard(db),
		},
		Roadmaps:    repoSet.Roadmap,
		States:      repoSet.LearningState,
		History:     repoSet.SkillHistory,
		Submissions: repoSet.Submission,
	})
	contract := agg.Contract()
	log.Info("Roadmap aggregate wired", "aggregate", contract.Name, "tables", contract.Tables, "versioned", contract.Versioned)

	// A nil *LLMGrader must not reach the router as a non-nil interface.
	var grader evaluation.Grader
	if clients.OpenAI != nil {
		grader = evaluation.NewLLMGrader(log, clients.OpenAI, cfg.LLMStructured)
	}

	ledger := orchestrator.NewAsyncLedger(log, cfg.LedgerBuffer,
		services.InterventionStoreSink(repoSet.Intervention),
		services.InterventionEventSink(clients.EventBus),
	)
	orch := orchestrator.New(
		market.New(cat, cfg.InterventionThreshold),
		ledger,
		orchestrator.WithCriticalPressure(cfg.CriticalPressure),
	)

	roadmapService, err := services.NewRoadmapService(services.RoadmapServiceDeps{
		DB:               db,
		Log:              log,
		Aggregate:        agg,
		Roadmaps:         repoSet.Roadmap,
		States:           repoSet.LearningState,
		History:          repoSet.SkillHistory,
		Submissions:      repoSet.Submission,
		Curriculum:       cur,
		Catalog:          cat,
		Evaluator:        evaluation.NewRouter(grader),
		Orchestrator:     orch,
		Decisions:        decision.NewBuilder(cfg.DecisionLookback),
		Bus:              clients.EventBus,
		RemediationCap:   cfg.RemediationCap,
		SubmitMaxRetries: cfg.SubmitMaxRetries,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init roadmap service: %w", err)
	}
	return Services{
		Curriculum: cur,
		Catalog:    cat,
		Ledger:     ledger,
		Roadmap:    roadmapService,
	}, nil
}
