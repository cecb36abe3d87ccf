package market

import (
	"sort"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/decision"
)

const (
	DefaultInterventionThreshold = 5.0
	GlobalSlot                   = "global"

	bottleneckScore   = 10.0
	diagnosticBonus   = 2.0
	weakSkillScore    = 5.0
	intersectionBonus = 1.5
	costWeight        = 0.5
	fatiguePenalty    = 20.0
	expectationFactor = 0.1
)

type Phase string

const (
	PhaseGlobalIntervention Phase = "global_intervention"
	PhaseLocalOptimization  Phase = "local_optimization"
)

type DecisionType string

const (
	DecisionIntervention DecisionType = "intervention"
	DecisionOrganic      DecisionType = "organic"
)

// Ranked is one scored probe.
type Ranked struct {
	Score      float64
	Template   curriculum.TaskTemplate
	SourceSlot string
	Target     string
	Pressure   float64
	Fatigued   bool
}

type TradeRationale struct {
	TargetInvariant           string  `json:"target_invariant"`
	InvariantPressure         float64 `json:"invariant_pressure"`
	Volatility                float64 `json:"volatility"`
	ProbeCost                 float64 `json:"probe_cost"`
	RankScore                 float64 `json:"rank_score"`
	RejectedAlternativesCount int     `json:"rejected_alternatives_count"`
	MarketPhase               Phase   `json:"market_phase"`
}

type Decision struct {
	SelectedTemplate   curriculum.TaskTemplate `json:"selected_template"`
	SourceSlotID       string                  `json:"source_slot_id"`
	DecisionType       DecisionType            `json:"decision_type"`
	Rationale          TradeRationale          `json:"rationale"`
	OutcomeExpectation map[string]float64      `json:"outcome_expectation,omitempty"`
}

// Pool supplies every probe the market may trade.
type Pool interface {
	AllTemplates() []curriculum.TaskTemplate
}

// Market arbitrates probes across the whole curriculum.
type Market struct {
	pool      Pool
	threshold float64
}

func New(pool Pool, threshold float64) *Market {
	if threshold <= 0 {
		threshold = DefaultInterventionThreshold
	}
	return &Market{pool: pool, threshold: threshold}
}

func (m *Market) Threshold() float64 { return m.threshold }

// RankProbes scores every template against the context and keeps the positive
// ones, best first. Equal scores keep input order.
func RankProbes(probes []curriculum.TaskTemplate, ctx *decision.Context) []Ranked {
	if ctx == nil {
		return nil
	}
	weak := ctx.WeakestIDs()
	recent := make(map[string]struct{}, len(ctx.RecentTemplateIDs))
	for _, id := range ctx.RecentTemplateIDs {
		recent[id] = struct{}{}
	}
	pressure := map[string]float64{}
	for _, inv := range ctx.WeakestInvariants {
		pressure[inv.InvariantID] = inv.Pressure
	}
	if ctx.GlobalBottleneck != "" {
		for _, inv := range ctx.UnstableInvariants {
			pressure[inv.InvariantID] = inv.Pressure
		}
	}

	out := make([]Ranked, 0, len(probes))
	for _, t := range probes {
		r := Ranked{Template: t, SourceSlot: t.SlotID}
		if r.SourceSlot == "" {
			r.SourceSlot = GlobalSlot
		}
		if ctx.GlobalBottleneck != "" && t.Skill == ctx.GlobalBottleneck {
			r.Score += bottleneckScore
			r.Target = ctx.GlobalBottleneck
			r.Pressure = pressure[ctx.GlobalBottleneck]
			if t.Role == curriculum.RoleDiagnostic {
				r.Score += diagnosticBonus
			}
		} else if _, ok := weak[t.Skill]; ok {
			r.Score += weakSkillScore
			r.Target = t.Skill
			r.Pressure = pressure[t.Skill]
		}
		r.Score += float64(t.Targets(weak)) * intersectionBonus
		r.Score -= t.ProbeCost * costWeight
		if _, ok := recent[t.TaskTemplateID]; ok {
			r.Score -= fatiguePenalty
			r.Fatigued = true
		}
		if r.Score > 0 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// SelectOptimalProbe returns a decision when the best probe clears the
// intervention threshold, or nil to let local orchestration proceed.
func (m *Market) SelectOptimalProbe(ctx *decision.Context, currentSlotID string) *Decision {
	if m == nil || m.pool == nil {
		return nil
	}
	ranked := RankProbes(m.pool.AllTemplates(), ctx)
	return m.decide(ranked, ctx, currentSlotID)
}

func (m *Market) decide(ranked []Ranked, ctx *decision.Context, currentSlotID string) *Decision {
	if len(ranked) == 0 {
		return nil
	}
	best := ranked[0]
	if best.Score <= m.threshold {
		return nil
	}
	target := best.Target
	if target == "" {
		target = "unknown"
	}
	phase, kind := PhaseLocalOptimization, DecisionOrganic
	if best.SourceSlot != currentSlotID {
		phase, kind = PhaseGlobalIntervention, DecisionIntervention
	}
	return &Decision{
		SelectedTemplate: best.Template,
		SourceSlotID:     best.SourceSlot,
		DecisionType:     kind,
		Rationale: TradeRationale{
			TargetInvariant:           target,
			InvariantPressure:         best.Pressure,
			Volatility:                ctx.NoiseLevel,
			ProbeCost:                 best.Template.ProbeCost,
			RankScore:                 best.Score,
			RejectedAlternativesCount: len(ranked) - 1,
			MarketPhase:               phase,
		},
		OutcomeExpectation: map[string]float64{"expected_pressure_reduction": best.Score * expectationFactor},
	}
}
