package decision

import (
	"math"
	"sort"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
)

type Stability string

const (
	Stable     Stability = "stable"
	Unstable   Stability = "unstable"
	Collapsing Stability = "collapsing"
)

type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// InvariantScore is the derived health of one skill.
type InvariantScore struct {
	InvariantID string    `json:"invariant_id"`
	Score       float64   `json:"score"`
	Confidence  float64   `json:"confidence"`
	Volatility  float64   `json:"volatility"`
	Velocity    float64   `json:"velocity"`
	Stability   Stability `json:"stability"`
	Pressure    float64   `json:"pressure"`
}

// Context is a read-only snapshot rebuilt for every decision.
type Context struct {
	LearnerID          string             `json:"learner_id"`
	TrackID            string             `json:"track_id"`
	AllScores          map[string]float64 `json:"all_scores"`
	Invariants         []InvariantScore   `json:"invariants"`
	GlobalBottleneck   string             `json:"global_bottleneck,omitempty"`
	WeakestInvariants  []InvariantScore   `json:"weakest_invariants"`
	UnstableInvariants []InvariantScore   `json:"unstable_invariants"`
	DominantInvariants []InvariantScore   `json:"dominant_invariants"`
	ConfidenceBand     Band               `json:"confidence_band"`
	LearningVelocity   float64            `json:"learning_velocity"`
	NoiseLevel         float64            `json:"noise_level"`
	RiskLevel          Band               `json:"risk_level"`
	RecentTemplateIDs  []string           `json:"recent_template_ids"`
}

// Invariant looks up a skill's score.
func (c *Context) Invariant(skill string) (InvariantScore, bool) {
	for _, inv := range c.Invariants {
		if inv.InvariantID == skill {
			return inv, true
		}
	}
	return InvariantScore{}, false
}

// WeakestIDs returns the weakest skills as a set.
func (c *Context) WeakestIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(c.WeakestInvariants))
	for _, inv := range c.WeakestInvariants {
		out[inv.InvariantID] = struct{}{}
	}
	return out
}

// BottleneckPressure finds the bottleneck's pressure among the unstable and
// weakest skills, in that order. It is zero when the bottleneck is in neither.
func (c *Context) BottleneckPressure() float64 {
	if c.GlobalBottleneck == "" {
		return 0
	}
	for _, list := range [][]InvariantScore{c.UnstableInvariants, c.WeakestInvariants} {
		for _, inv := range list {
			if inv.InvariantID == c.GlobalBottleneck {
				return inv.Pressure
			}
		}
	}
	return 0
}

const (
	DefaultLookback = 5
	weakestCount    = 3

	unstableVolatility   = 0.25
	collapsingVelocity   = -0.1
	unstableListCutoff   = 0.15
	dominantScore        = 0.8
	highRiskNoise        = 0.2
	mediumRiskNoise      = 0.1
	highConfidenceCutoff = 0.8
	lowConfidenceCutoff  = 0.4
)

func deriveStability(volatility, velocity float64) Stability {
	if volatility > unstableVolatility {
		return Unstable
	}
	if velocity < collapsingVelocity {
		return Collapsing
	}
	return Stable
}

// Builder assembles Contexts. Lookback bounds both the per-skill history
// window and the fatigue window.
type Builder struct {
	Lookback int
}

func NewBuilder(lookback int) Builder {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return Builder{Lookback: lookback}
}

// Input carries everything Build reads. History is oldest first; Submissions
// are latest first.
type Input struct {
	LearnerID   string
	TrackID     string
	State       *mastery.State
	History     []mastery.SkillEvent
	Submissions []mastery.SubmissionRef
}

// Build derives the snapshot. Skills are visited in name order, so ties on
// pressure resolve to the alphabetically first skill.
func (b Builder) Build(in Input) *Context {
	n := b.Lookback
	if n <= 0 {
		n = DefaultLookback
	}
	ctx := &Context{
		LearnerID:          in.LearnerID,
		TrackID:            in.TrackID,
		AllScores:          map[string]float64{},
		Invariants:         []InvariantScore{},
		WeakestInvariants:  []InvariantScore{},
		UnstableInvariants: []InvariantScore{},
		DominantInvariants: []InvariantScore{},
		ConfidenceBand:     BandMedium,
		RiskLevel:          BandLow,
		RecentTemplateIDs:  []string{},
	}

	series := map[string][]float64{}
	for _, h := range in.History {
		lvl := h.NewLevel
		if lvl > 1 {
			lvl /= 100
		}
		series[h.Skill] = append(series[h.Skill], lvl)
	}

	var skills []string
	if in.State != nil {
		for s := range in.State.Skills {
			skills = append(skills, s)
		}
	}
	sort.Strings(skills)

	var velSum float64
	var velCount int
	for _, skill := range skills {
		entry := in.State.Skills[skill]
		ctx.AllScores[skill] = entry.Level
		recent := series[skill]
		if len(recent) > n {
			recent = recent[len(recent)-n:]
		}
		vol := sampleStdev(recent)
		vel := 0.0
		if len(recent) > 1 {
			vel = meanDelta(recent)
			velSum += vel
			velCount++
		}
		ctx.Invariants = append(ctx.Invariants, InvariantScore{
			InvariantID: skill,
			Score:       entry.Level,
			Confidence:  entry.Confidence,
			Volatility:  vol,
			Velocity:    vel,
			Stability:   deriveStability(vol, vel),
			Pressure:    (1 - entry.Level) * (1 + vol),
		})
	}

	for i, s := range in.Submissions {
		if i >= n {
			break
		}
		ctx.RecentTemplateIDs = append(ctx.RecentTemplateIDs, s.TaskInstanceID)
	}

	if len(ctx.Invariants) == 0 {
		return ctx
	}

	best := 0
	for i, inv := range ctx.Invariants {
		if inv.Pressure > ctx.Invariants[best].Pressure {
			best = i
		}
	}
	ctx.GlobalBottleneck = ctx.Invariants[best].InvariantID

	byScore := append([]InvariantScore(nil), ctx.Invariants...)
	sort.SliceStable(byScore, func(i, j int) bool { return byScore[i].Score < byScore[j].Score })
	if len(byScore) > weakestCount {
		byScore = byScore[:weakestCount]
	}
	ctx.WeakestInvariants = byScore

	var volSum, confSum float64
	collapsing := false
	for _, inv := range ctx.Invariants {
		if inv.Score >= dominantScore && inv.Stability == Stable {
			ctx.DominantInvariants = append(ctx.DominantInvariants, inv)
		}
		if inv.Stability != Stable || inv.Volatility > unstableListCutoff {
			ctx.UnstableInvariants = append(ctx.UnstableInvariants, inv)
		}
		if inv.Stability == Collapsing {
			collapsing = true
		}
		volSum += inv.Volatility
		confSum += inv.Confidence
	}
	count := float64(len(ctx.Invariants))

	if velCount > 0 {
		ctx.LearningVelocity = velSum / float64(velCount)
	}
	ctx.NoiseLevel = volSum / count

	switch {
	case collapsing || ctx.NoiseLevel > highRiskNoise:
		ctx.RiskLevel = BandHigh
	case ctx.NoiseLevel > mediumRiskNoise:
		ctx.RiskLevel = BandMedium
	}

	avgConf := confSum / count
	switch {
	case avgConf > highConfidenceCutoff:
		ctx.ConfidenceBand = BandHigh
	case avgConf < lowConfidenceCutoff:
		ctx.ConfidenceBand = BandLow
	}
	return ctx
}

func sampleStdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func meanDelta(xs []float64) float64 {
	var sum float64
	for i := 1; i < len(xs); i++ {
		sum += xs[i] - xs[i-1]
	}
	return sum / float64(len(xs)-1)
}
