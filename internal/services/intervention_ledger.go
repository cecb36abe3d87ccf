package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-roadmap/internal/data/repos"
	types "github.com/yungbote/neurobridge-roadmap/internal/domain"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/orchestrator"
	"github.com/yungbote/neurobridge-roadmap/internal/observability"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-roadmap/internal/realtime"
	"github.com/yungbote/neurobridge-roadmap/internal/realtime/bus"
)

// InterventionStoreSink persists every market intervention.
func InterventionStoreSink(repo repos.MarketInterventionRepo) orchestrator.Sink {
	return func(ctx context.Context, e orchestrator.LedgerEntry) error {
		at := e.Timestamp
		if at.IsZero() {
			at = time.Now().UTC()
		}
		observability.Current().IncIntervention(e.TargetInvariant)
		return repo.Create(dbctx.New(ctx), &types.MarketIntervention{
			ID:              uuid.New(),
			LearnerID:       e.LearnerID,
			Event:           e.Event,
			SlotID:          e.SlotID,
			TargetInvariant: e.TargetInvariant,
			Pressure:        e.Pressure,
			Cost:            e.Cost,
			Score:           e.Score,
			ProbeID:         e.ProbeID,
			Reason:          e.Reason,
			CreatedAt:       at,
		})
	}
}

// InterventionEventSink publishes each intervention to the learner's channel.
func InterventionEventSink(b bus.Bus) orchestrator.Sink {
	return func(ctx context.Context, e orchestrator.LedgerEntry) error {
		msg := realtime.NewLearnerMessage(e.LearnerID, realtime.EventMarketIntervention, e)
		if !e.Timestamp.IsZero() {
			msg.At = e.Timestamp
		}
		return b.Publish(ctx, msg)
	}
}
