package remediation

import (
	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
)

type ActionKind string

const (
	ActionInjectRemediationTask ActionKind = "inject_remediation_task"
	ActionLockDependentSlots    ActionKind = "lock_dependent_slots"
)

// Action is one step of a plan. SuggestedDifficulty is set on the inject
// action when the slot's policy asks for a downgrade.
type Action struct {
	SlotID              string                `json:"slot_id"`
	Action              ActionKind            `json:"action"`
	SuggestedDifficulty curriculum.Difficulty `json:"suggested_difficulty,omitempty"`
}

type Plan struct {
	FailedTaskInstanceID string   `json:"failed_task_instance_id"`
	Actions              []Action `json:"actions"`
}

// BuildPlan derives the remediation for a failed task instance without
// touching the roadmap. Same-phase slots on the same skill at a strictly
// higher difficulty are locked until the learner recovers. c may be nil.
func BuildPlan(r *roadmap.Roadmap, failedTaskInstanceID string, c *curriculum.Curriculum) (Plan, error) {
	const op = "remediation.BuildPlan"
	inst, ok := r.TaskInstance(failedTaskInstanceID)
	if !ok {
		return Plan{}, roadmap.NewError(roadmap.KindNotFound, op, "task instance "+failedTaskInstanceID+" not found", nil)
	}
	if inst.Status != roadmap.TaskFailed {
		return Plan{}, roadmap.NewError(roadmap.KindInvalidTransition, op, "task instance "+inst.TaskInstanceID+" is "+string(inst.Status), nil)
	}
	failed, ok := r.Slot(inst.SlotID)
	if !ok {
		return Plan{}, roadmap.NewError(roadmap.KindInvariantViolation, op, "slot "+inst.SlotID+" not found", nil)
	}
	phase, _ := r.PhaseOf(inst.SlotID)

	inject := Action{SlotID: failed.SlotID, Action: ActionInjectRemediationTask}
	if def, ok := c.Slot(failed.SlotID); ok && def.Remediation.Has(curriculum.StrategyDowngrade) {
		if d := failed.Difficulty.Downgrade(); d != failed.Difficulty {
			inject.SuggestedDifficulty = d
		}
	}
	plan := Plan{FailedTaskInstanceID: inst.TaskInstanceID, Actions: []Action{inject}}

	rank := failed.Difficulty.Rank()
	for _, s := range phase.Slots {
		if s.SlotID == failed.SlotID || s.Skill != failed.Skill {
			continue
		}
		if s.Difficulty.Rank() <= rank {
			continue
		}
		plan.Actions = append(plan.Actions, Action{SlotID: s.SlotID, Action: ActionLockDependentSlots})
	}
	return plan, nil
}

// ApplyPlan executes a plan through the roadmap's own operations. Action kinds
// are checked up front so an unknown kind leaves the roadmap untouched.
func ApplyPlan(r *roadmap.Roadmap, plan Plan) error {
	const op = "remediation.ApplyPlan"
	for _, a := range plan.Actions {
		switch a.Action {
		case ActionInjectRemediationTask, ActionLockDependentSlots:
		default:
			return roadmap.NewError(roadmap.KindUnknownRemediationAction, op, "unknown action "+string(a.Action)+" for slot "+a.SlotID, nil)
		}
	}
	for _, a := range plan.Actions {
		switch a.Action {
		case ActionInjectRemediationTask:
			if err := r.MarkRemediationRequired(a.SlotID); err != nil {
				return err
			}
		case ActionLockDependentSlots:
			if _, err := r.LockSlot(a.SlotID, roadmap.ReasonDependencyFailed); err != nil {
				return err
			}
		}
	}
	return nil
}

// UnlockDependentsAfterRemediation reopens the dependency_failed locks that
// follow slotID in roadmap order, stopping at the first slot that is not such
// a lock. Locks BuildPlan placed on the slot's behalf are released as well,
// including ones that sit before it in the phase.
func UnlockDependentsAfterRemediation(r *roadmap.Roadmap, slotID string) ([]string, error) {
	if _, ok := r.Slot(slotID); !ok {
		return nil, roadmap.NewError(roadmap.KindNotFound, "remediation.UnlockDependentsAfterRemediation", "slot "+slotID+" not found", nil)
	}
	var unlocked []string
	for _, id := range r.SlotsAfter(slotID) {
		ok, err := r.UnlockSlot(id, roadmap.ReasonDependencyFailed)
		if err != nil {
			return unlocked, err
		}
		if !ok {
			break
		}
		unlocked = append(unlocked, id)
	}
	return append(unlocked, r.ReleaseDependents(slotID)...), nil
}
