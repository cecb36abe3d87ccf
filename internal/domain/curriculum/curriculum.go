package curriculum

import (
	"fmt"
	"sort"
	"strings"
)

const (
	DefaultPassScore           = 0.6
	DefaultMaxRemediationTries = 3
)

type MasteryPolicy struct {
	PassScore          float64  `yaml:"pass_score" json:"pass_score"`
	MinConfidence      float64  `yaml:"min_confidence" json:"min_confidence"`
	InvariantsRequired []string `yaml:"invariants_required" json:"invariants_required,omitempty"`
}

// GovernancePolicy holds the per-slot thresholds evaluated against learner scores.
type GovernancePolicy struct {
	EntryRequirements Requirements `yaml:"entry_requirements" json:"entry_requirements,omitempty"`
	ReinforceIf       Requirements `yaml:"reinforce_if" json:"reinforce_if,omitempty"`
	SkipIf            Requirements `yaml:"skip_if" json:"skip_if,omitempty"`
	PromoteIf         Requirements `yaml:"promote_if" json:"promote_if,omitempty"`
}

type RemediationPolicy struct {
	MaxAttempts int      `yaml:"max_attempts" json:"max_attempts"`
	Strategies  []string `yaml:"strategies" json:"strategies,omitempty"`
}

// StrategyDowngrade asks remediation to prefer a lower-difficulty template.
const StrategyDowngrade = "downgrade_difficulty"

func (p RemediationPolicy) Has(strategy string) bool {
	for _, s := range p.Strategies {
		if strings.EqualFold(strings.TrimSpace(s), strategy) {
			return true
		}
	}
	return false
}

type SlotDefinition struct {
	SlotID       string            `yaml:"slot_id" json:"slot_id"`
	Skill        string            `yaml:"skill" json:"skill"`
	Difficulty   Difficulty        `yaml:"difficulty" json:"difficulty"`
	QuestionType QuestionType      `yaml:"type" json:"type"`
	Mastery      MasteryPolicy     `yaml:"mastery" json:"mastery"`
	Governance   GovernancePolicy  `yaml:"governance" json:"governance"`
	Remediation  RemediationPolicy `yaml:"remediation" json:"remediation"`
	Unlocks      []string          `yaml:"unlocks" json:"unlocks,omitempty"`
	Concepts     []string          `yaml:"concepts" json:"concepts,omitempty"`
}

type PhaseDefinition struct {
	PhaseID   string           `yaml:"phase_id" json:"phase_id"`
	Name      string           `yaml:"name" json:"name"`
	Objective string           `yaml:"objective" json:"objective"`
	Slots     []SlotDefinition `yaml:"slots" json:"slots"`
}

// Curriculum is a track definition: ordered phases of ordered slots.
type Curriculum struct {
	TrackID     string            `yaml:"track_id" json:"track_id"`
	Name        string            `yaml:"name" json:"name"`
	Version     string            `yaml:"version" json:"version"`
	Description string            `yaml:"description" json:"description"`
	Phases      []PhaseDefinition `yaml:"phases" json:"phases"`

	slotIdx map[string]*SlotDefinition
}

// Normalize fills policy defaults and builds the slot index.
func (c *Curriculum) Normalize() {
	c.slotIdx = map[string]*SlotDefinition{}
	for pi := range c.Phases {
		for si := range c.Phases[pi].Slots {
			sd := &c.Phases[pi].Slots[si]
			if sd.Mastery.PassScore <= 0 {
				sd.Mastery.PassScore = DefaultPassScore
			}
			if sd.Remediation.MaxAttempts <= 0 {
				sd.Remediation.MaxAttempts = DefaultMaxRemediationTries
			}
			c.slotIdx[sd.SlotID] = sd
		}
	}
}

func (c *Curriculum) Slot(slotID string) (SlotDefinition, bool) {
	if c == nil {
		return SlotDefinition{}, false
	}
	if c.slotIdx == nil {
		c.Normalize()
	}
	sd, ok := c.slotIdx[slotID]
	if !ok {
		return SlotDefinition{}, false
	}
	return *sd, true
}

// Validate checks unique ids and known enum values.
func (c *Curriculum) Validate() error {
	if c == nil {
		return fmt.Errorf("curriculum is nil")
	}
	if strings.TrimSpace(c.TrackID) == "" {
		return fmt.Errorf("curriculum track_id is required")
	}
	if len(c.Phases) == 0 {
		return fmt.Errorf("curriculum %s has no phases", c.TrackID)
	}
	phases := map[string]bool{}
	slots := map[string]bool{}
	for _, p := range c.Phases {
		if p.PhaseID == "" {
			return fmt.Errorf("phase without phase_id in %s", c.TrackID)
		}
		if phases[p.PhaseID] {
			return fmt.Errorf("duplicate phase_id %q", p.PhaseID)
		}
		phases[p.PhaseID] = true
		for _, s := range p.Slots {
			if s.SlotID == "" {
				return fmt.Errorf("slot without slot_id in phase %s", p.PhaseID)
			}
			if slots[s.SlotID] {
				return fmt.Errorf("duplicate slot_id %q", s.SlotID)
			}
			slots[s.SlotID] = true
			if strings.TrimSpace(s.Skill) == "" {
				return fmt.Errorf("slot %s has no skill", s.SlotID)
			}
			if !s.Difficulty.Valid() {
				return fmt.Errorf("slot %s has unknown difficulty %q", s.SlotID, s.Difficulty)
			}
			if s.QuestionType != "" && !s.QuestionType.Valid() {
				return fmt.Errorf("slot %s has unknown type %q", s.SlotID, s.QuestionType)
			}
		}
	}
	return nil
}

// MalformedThresholds lists "slot_id.policy.skill" entries whose threshold did
// not parse. Such thresholds load fine and simply never match.
func (c *Curriculum) MalformedThresholds() []string {
	out := []string{}
	if c == nil {
		return out
	}
	for _, p := range c.Phases {
		for _, s := range p.Slots {
			for _, named := range []struct {
				name string
				req  Requirements
			}{
				{"entry_requirements", s.Governance.EntryRequirements},
				{"reinforce_if", s.Governance.ReinforceIf},
				{"skip_if", s.Governance.SkipIf},
				{"promote_if", s.Governance.PromoteIf},
			} {
				for _, skill := range named.req.Malformed() {
					out = append(out, s.SlotID+"."+named.name+"."+skill)
				}
			}
		}
	}
	sort.Strings(out)
	return out
}
