package orchestrator

import (
	"fmt"
	"sort"
	"time"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/decision"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/market"
)

const (
	DefaultCriticalPressure = 1.5

	highNoise     = 0.2
	moderateNoise = 0.1
	fastVelocity  = 0.1
)

// Plan is the chosen template and, when the market overrode the slot, the
// decision behind it.
type Plan struct {
	Template curriculum.TaskTemplate `json:"template"`
	Decision *market.Decision        `json:"market_decision,omitempty"`
}

// Orchestrator picks one template for a slot. It is stateless apart from
// its collaborators and safe for concurrent use.
type Orchestrator struct {
	market           *market.Market
	ledger           Ledger
	criticalPressure float64
	now              func() time.Time
}

type Option func(*Orchestrator)

func WithCriticalPressure(p float64) Option {
	return func(o *Orchestrator) {
		if p > 0 {
			o.criticalPressure = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func New(m *market.Market, ledger Ledger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		market:           m,
		ledger:           ledger,
		criticalPressure: DefaultCriticalPressure,
		now:              func() time.Time { return time.Now().UTC() },
	}
	if o.ledger == nil {
		o.ledger = NopLedger{}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PlanNextAction returns the template for slot.
func (o *Orchestrator) PlanNextAction(ctx *decision.Context, slot roadmap.Slot, candidates []curriculum.TaskTemplate) (curriculum.TaskTemplate, error) {
	p, err := o.Plan(ctx, slot, candidates)
	if err != nil {
		return curriculum.TaskTemplate{}, err
	}
	return p.Template, nil
}

// Plan lets the market intervene when another skill is under critical
// pressure, and otherwise falls through to role-based selection.
func (o *Orchestrator) Plan(ctx *decision.Context, slot roadmap.Slot, candidates []curriculum.TaskTemplate) (Plan, error) {
	return o.PlanWhere(ctx, slot, candidates, nil)
}

// PlanWhere is Plan with a veto on the market's probe. A rejected probe falls
// back to local selection and leaves no ledger entry. A nil accept takes every
// probe.
func (o *Orchestrator) PlanWhere(ctx *decision.Context, slot roadmap.Slot, candidates []curriculum.TaskTemplate, accept func(curriculum.TaskTemplate) bool) (Plan, error) {
	if ctx == nil {
		ctx = &decision.Context{}
	}
	if o.market != nil && ctx.GlobalBottleneck != "" && ctx.GlobalBottleneck != slot.Skill {
		if pressure := ctx.BottleneckPressure(); pressure > o.criticalPressure {
			d := o.market.SelectOptimalProbe(ctx, slot.SlotID)
			if d != nil && (accept == nil || accept(d.SelectedTemplate)) {
				o.record(ctx, slot, d)
				return Plan{Template: d.SelectedTemplate, Decision: d}, nil
			}
		}
	}
	t, err := o.PlanLocal(ctx, slot, candidates)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Template: t}, nil
}

// PlanLocal applies role precedence over the slot's own candidates.
func (o *Orchestrator) PlanLocal(ctx *decision.Context, slot roadmap.Slot, candidates []curriculum.TaskTemplate) (curriculum.TaskTemplate, error) {
	if ctx == nil {
		ctx = &decision.Context{}
	}
	if slot.Status == roadmap.SlotReinforcementRequired {
		matches := byRole(candidates, curriculum.RoleReinforcement)
		if len(matches) == 0 {
			matches = byRole(candidates, curriculum.RoleDiagnostic)
		}
		if len(matches) > 0 {
			return pickOptimal(matches), nil
		}
	}
	if ctx.RiskLevel == decision.BandHigh || ctx.NoiseLevel > highNoise {
		if matches := byRole(candidates, curriculum.RoleReinforcement); len(matches) > 0 {
			return pickOptimal(matches), nil
		}
	}
	if ctx.ConfidenceBand == decision.BandLow || ctx.NoiseLevel > moderateNoise {
		if matches := byRole(candidates, curriculum.RoleDiagnostic); len(matches) > 0 {
			weak := ctx.WeakestIDs()
			var targeted []curriculum.TaskTemplate
			for _, t := range matches {
				if t.Targets(weak) > 0 {
					targeted = append(targeted, t)
				}
			}
			if len(targeted) > 0 {
				return pickOptimal(targeted), nil
			}
			return pickOptimal(matches), nil
		}
	}
	if slot.HasFlag(roadmap.FlagFastTrack) || ctx.LearningVelocity > fastVelocity {
		if matches := byRole(candidates, curriculum.RoleProof); len(matches) > 0 {
			return pickOptimal(matches), nil
		}
	}
	matches := byRole(candidates, curriculum.RoleStretch)
	if len(matches) == 0 {
		for _, t := range candidates {
			if t.Variant == "" || t.Variant == curriculum.VariantStandard {
				matches = append(matches, t)
			}
		}
	}
	if len(matches) == 0 {
		return curriculum.TaskTemplate{}, roadmap.NewError(roadmap.KindTemplateResolution, "orchestrator.PlanLocal",
			fmt.Sprintf("no suitable template for slot %s among %d candidates", slot.SlotID, len(candidates)), nil)
	}
	return pickOptimal(matches), nil
}

func (o *Orchestrator) record(ctx *decision.Context, slot roadmap.Slot, d *market.Decision) {
	o.ledger.Record(LedgerEntry{
		Timestamp:       o.now(),
		Event:           EventMarketIntervention,
		LearnerID:       ctx.LearnerID,
		SlotID:          slot.SlotID,
		TargetInvariant: d.Rationale.TargetInvariant,
		Pressure:        d.Rationale.InvariantPressure,
		Cost:            d.Rationale.ProbeCost,
		Score:           d.Rationale.RankScore,
		ProbeID:         d.SelectedTemplate.TaskTemplateID,
		Reason:          fmt.Sprintf("Pressure %v > Threshold. Probe selected for efficiency.", d.Rationale.InvariantPressure),
	})
}

func byRole(ts []curriculum.TaskTemplate, role curriculum.Role) []curriculum.TaskTemplate {
	var out []curriculum.TaskTemplate
	for _, t := range ts {
		if t.Role == role {
			out = append(out, t)
		}
	}
	return out
}

// pickOptimal takes the cheapest probe, breaking ties by id.
func pickOptimal(ts []curriculum.TaskTemplate) curriculum.TaskTemplate {
	sorted := append([]curriculum.TaskTemplate(nil), ts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ProbeCost != sorted[j].ProbeCost {
			return sorted[i].ProbeCost < sorted[j].ProbeCost
		}
		return sorted[i].TaskTemplateID < sorted[j].TaskTemplateID
	})
	return sorted[0]
}
