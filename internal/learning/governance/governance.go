package governance

import (
	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/decision"
)

const (
	MessageSkipped       = "Automatically skipped based on your current skill level."
	MessageReinforcement = "This skill needs reinforcement before you proceed."
	MessageFastTrack     = "You've been fast-tracked for this skill!"
)

// Report lists the slots each rule touched, in roadmap order.
type Report struct {
	Skipped    []string `json:"skipped,omitempty"`
	Reinforced []string `json:"reinforced,omitempty"`
	Promoted   []string `json:"promoted,omitempty"`
	Unlocked   []string `json:"unlocked,omitempty"`
	Locked     []string `json:"locked,omitempty"`
}

func (r Report) Changed() bool {
	return len(r.Skipped)+len(r.Reinforced)+len(r.Promoted)+len(r.Unlocked)+len(r.Locked) > 0
}

// Apply runs skip, reinforce, promote and entry gating over the idle slots of
// the active phase. Slots that are in flight, parked for remediation, or
// terminal are left to the state machine.
func Apply(r *roadmap.Roadmap, c *curriculum.Curriculum, ctx *decision.Context) (Report, error) {
	var rep Report
	if r == nil || c == nil || ctx == nil || r.Status != roadmap.StatusActive {
		return rep, nil
	}
	phase, ok := r.ActivePhase()
	if !ok {
		return rep, nil
	}
	scores := ctx.AllScores

	for _, slot := range phase.Slots {
		if slot.Status.Terminal() || slot.Status == roadmap.SlotInProgress || slot.Status == roadmap.SlotRemediationRequired {
			continue
		}
		def, ok := c.Slot(slot.SlotID)
		if !ok {
			continue
		}
		pol := def.Governance

		if pol.SkipIf.Met(scores) {
			if err := r.SkipSlot(slot.SlotID, MessageSkipped); err != nil {
				return rep, err
			}
			rep.Skipped = append(rep.Skipped, slot.SlotID)
			continue
		}
		if tracked(pol.ReinforceIf, scores) && pol.ReinforceIf.Met(scores) {
			if err := r.RequireReinforcement(slot.SlotID, MessageReinforcement); err != nil {
				return rep, err
			}
			rep.Reinforced = append(rep.Reinforced, slot.SlotID)
			continue
		}
		if pol.PromoteIf.Met(scores) {
			if err := r.Promote(slot.SlotID, MessageFastTrack); err != nil {
				return rep, err
			}
			rep.Promoted = append(rep.Promoted, slot.SlotID)
		}

		current, _ := r.Slot(slot.SlotID)
		hasReqs := len(pol.EntryRequirements) > 0
		meets := pol.EntryRequirements.Met(scores)
		switch {
		case current.Status == roadmap.SlotLocked && current.LockedReason == roadmap.ReasonRequirementsNotMet:
			if !hasReqs || meets {
				if _, err := r.UnlockSlot(slot.SlotID, roadmap.ReasonRequirementsNotMet); err != nil {
					return rep, err
				}
				rep.Unlocked = append(rep.Unlocked, slot.SlotID)
			}
		case current.Status == roadmap.SlotAvailable && hasReqs && !meets:
			changed, err := r.LockSlot(slot.SlotID, roadmap.ReasonRequirementsNotMet)
			if err != nil {
				return rep, err
			}
			if changed {
				rep.Locked = append(rep.Locked, slot.SlotID)
			}
		}
	}
	r.ResolveActivePhase()
	return rep, nil
}

// tracked reports whether every referenced skill has a score.
func tracked(req curriculum.Requirements, scores map[string]float64) bool {
	for skill := range req {
		if _, ok := scores[skill]; !ok {
			return false
		}
	}
	return true
}
