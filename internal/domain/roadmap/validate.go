package roadmap

import (
	"slices"
)

// Validate checks the cross-cutting invariants. Callers run it after every
// mutation and discard the mutated copy on error.
func (r *Roadmap) Validate() error {
	const op = "roadmap.Validate"
	if r == nil {
		return newError(KindInvariantViolation, op, "roadmap is nil")
	}
	switch r.Status {
	case StatusActive, StatusLocked, StatusCompleted:
	default:
		return newError(KindInvariantViolation, op, "unknown roadmap status %q", r.Status)
	}

	active := -1
	for i, p := range r.Phases {
		if p.Status != PhaseActive {
			continue
		}
		if active >= 0 {
			return newError(KindInvariantViolation, op, "phases %s and %s are both active", r.Phases[active].PhaseID, p.PhaseID)
		}
		active = i
	}
	switch r.Status {
	case StatusActive:
		if active < 0 {
			return newError(KindInvariantViolation, op, "active roadmap has no active phase")
		}
	case StatusCompleted:
		if active >= 0 {
			return newError(KindInvariantViolation, op, "completed roadmap still has active phase %s", r.Phases[active].PhaseID)
		}
	}
	if active >= 0 {
		for i, p := range r.Phases {
			if i < active && p.Status != PhaseCompleted {
				return newError(KindInvariantViolation, op, "phase %s before the active phase is %s", p.PhaseID, p.Status)
			}
			if i > active && p.Status != PhaseLocked {
				return newError(KindInvariantViolation, op, "phase %s after the active phase is %s", p.PhaseID, p.Status)
			}
		}
	}

	holders := 0
	slots := map[string]bool{}
	for _, p := range r.Phases {
		for _, s := range p.Slots {
			if slots[s.SlotID] {
				return newError(KindInvariantViolation, op, "duplicate slot id %s", s.SlotID)
			}
			slots[s.SlotID] = true
			if s.ActiveTaskInstanceID == "" {
				continue
			}
			holders++
			if holders > 1 {
				return newError(KindInvariantViolation, op, "more than one slot holds an active task")
			}
			if s.Status != SlotInProgress {
				return newError(KindInvariantViolation, op, "slot %s holds task %s while %s", s.SlotID, s.ActiveTaskInstanceID, s.Status)
			}
			inst, ok := r.TaskInstance(s.ActiveTaskInstanceID)
			if !ok || inst.SlotID != s.SlotID || inst.Status != TaskInProgress {
				return newError(KindInvariantViolation, op, "slot %s points at unknown or closed task %s", s.SlotID, s.ActiveTaskInstanceID)
			}
		}
	}

	seen := map[string]bool{}
	for _, ti := range r.TaskInstances {
		if seen[ti.TaskInstanceID] {
			return newError(KindInvariantViolation, op, "duplicate task instance %s", ti.TaskInstanceID)
		}
		seen[ti.TaskInstanceID] = true
		if !slots[ti.SlotID] {
			return newError(KindInvariantViolation, op, "task instance %s references missing slot %s", ti.TaskInstanceID, ti.SlotID)
		}
	}

	if len(r.Layout) > 0 && !slices.Equal(r.Layout, r.layout()) {
		return newError(KindInvariantViolation, op, "phase or slot order changed")
	}
	return nil
}
