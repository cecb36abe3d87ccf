package roadmap

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
)

type StartInput struct {
	SlotID         string
	Template       curriculum.TaskTemplate
	TaskInstanceID string
	At             time.Time
}

// StartSlot opens a task instance on a slot. All preconditions are checked
// before anything is written, so a failed start leaves the roadmap untouched.
func (r *Roadmap) StartSlot(in StartInput) (TaskInstance, error) {
	const op = "roadmap.StartSlot"
	if r.Status != StatusActive {
		return TaskInstance{}, newError(KindInvalidTransition, op, "roadmap is %s", r.Status)
	}
	slot, phase := r.slotPtr(in.SlotID)
	if slot == nil {
		return TaskInstance{}, newError(KindNotFound, op, "slot %q not found", in.SlotID)
	}
	if phase.Status != PhaseActive {
		return TaskInstance{}, newError(KindInvalidTransition, op, "phase %s is %s", phase.PhaseID, phase.Status)
	}
	if !slot.Status.Startable() {
		return TaskInstance{}, newError(KindInvalidTransition, op, "slot %s is %s", slot.SlotID, slot.Status)
	}
	if in.Template.Skill != slot.Skill || in.Template.Difficulty != slot.Difficulty {
		return TaskInstance{}, newError(KindTemplateMismatch, op,
			"template %s is %s/%s, slot %s is %s/%s",
			in.Template.TaskTemplateID, in.Template.Skill, in.Template.Difficulty,
			slot.SlotID, slot.Skill, slot.Difficulty)
	}
	if active, ok := r.ActiveTask(); ok {
		return TaskInstance{}, newError(KindConflictingActiveTask, op,
			"slot %s already holds task %s", active.SlotID, active.ActiveTaskInstanceID)
	}

	id := strings.TrimSpace(in.TaskInstanceID)
	if id == "" {
		id = uuid.New().String()
	}
	if r.instancePtr(id) != nil {
		return TaskInstance{}, newError(KindConflictingActiveTask, op, "task instance %s already exists", id)
	}
	at := in.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	remediation := slot.Status == SlotRemediationRequired
	if remediation {
		slot.RemediationAttempts++
	}
	inst := TaskInstance{
		TaskInstanceID: id,
		TaskTemplateID: in.Template.TaskTemplateID,
		BaseTemplateID: in.Template.BaseID(),
		Skill:          slot.Skill,
		Difficulty:     slot.Difficulty,
		SlotID:         slot.SlotID,
		Status:         TaskInProgress,
		Remediation:    remediation,
		StartedAt:      at,
	}
	r.TaskInstances = append(r.TaskInstances, inst)
	slot.Status = SlotInProgress
	slot.ActiveTaskInstanceID = id
	slot.LockedReason = ""
	return inst, nil
}

// Outcome describes what ApplyEvaluation changed.
type Outcome struct {
	Instance            TaskInstance
	Passed              bool
	RemediationRequired bool
	Terminal            bool
	UnlockedSlotID      string
	ReleasedSlotIDs     []string
	PhaseCompleted      bool
	RoadmapCompleted    bool
}

// ApplyEvaluation closes the in-flight task instance with a graded result.
//
// A failed remediation instance already counted its attempt at start; a failed
// standard instance counts one here. Once attempts exceed the cap the slot is
// terminally failed and both phase and roadmap lock.
func (r *Roadmap) ApplyEvaluation(taskInstanceID string, ev mastery.EvaluationResult, now time.Time) (Outcome, error) {
	const op = "roadmap.ApplyEvaluation"
	if r.Status != StatusActive {
		return Outcome{}, newError(KindInvalidTransition, op, "roadmap is %s", r.Status)
	}
	inst := r.instancePtr(taskInstanceID)
	if inst == nil {
		return Outcome{}, newError(KindNotFound, op, "task instance %q not found", taskInstanceID)
	}
	if inst.Status != TaskInProgress {
		return Outcome{}, newError(KindInvalidTransition, op, "task instance %s is %s", inst.TaskInstanceID, inst.Status)
	}
	slot, phase := r.slotPtr(inst.SlotID)
	if slot == nil {
		return Outcome{}, newError(KindInvariantViolation, op, "task instance %s references missing slot %s", inst.TaskInstanceID, inst.SlotID)
	}
	if slot.Status != SlotInProgress || slot.ActiveTaskInstanceID != inst.TaskInstanceID {
		return Outcome{}, newError(KindInvalidTransition, op, "slot %s is not running task %s", slot.SlotID, inst.TaskInstanceID)
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	done := now
	inst.CompletedAt = &done
	r.LastEvaluatedAt = &done
	slot.ActiveTaskInstanceID = ""

	if ev.Passed {
		inst.Status = TaskCompleted
		slot.Status = SlotCompleted
		out := Outcome{Passed: true}
		out.ReleasedSlotIDs = r.ReleaseDependents(slot.SlotID)
		out.UnlockedSlotID = r.unlockNextInPhase(slot.SlotID)
		before := phase.PhaseID
		r.ResolveActivePhase()
		if p, ok := r.phaseByID(before); ok && p.Status == PhaseCompleted {
			out.PhaseCompleted = true
		}
		out.RoadmapCompleted = r.Status == StatusCompleted
		out.Instance = *inst
		return out, nil
	}

	inst.Status = TaskFailed
	if !inst.Remediation {
		slot.RemediationAttempts++
	}
	out := Outcome{Instance: *inst}
	if slot.RemediationAttempts > r.attemptCap() {
		slot.Status = SlotFailed
		phase.Status = PhaseLocked
		phase.LockedReason = ReasonRemediationAttemptsExceeded
		r.Status = StatusLocked
		r.LockedReason = ReasonTooManyRemediationFailures
		out.Terminal = true
		return out, nil
	}
	slot.Status = SlotRemediationRequired
	out.RemediationRequired = true
	return out, nil
}

// unlockNextInPhase opens the slot right after slotID when it is held by plain
// sequential locking. Locks with a reason belong to remediation or governance.
func (r *Roadmap) unlockNextInPhase(slotID string) string {
	ref, ok := r.ref(slotID)
	if !ok {
		return ""
	}
	slots := r.Phases[ref.phase].Slots
	if ref.slot+1 >= len(slots) {
		return ""
	}
	next := &slots[ref.slot+1]
	if next.Status != SlotLocked || next.LockedReason != "" {
		return ""
	}
	next.Status = SlotAvailable
	return next.SlotID
}

func (r *Roadmap) phaseByID(id string) (Phase, bool) {
	for _, p := range r.Phases {
		if p.PhaseID == id {
			return p, true
		}
	}
	return Phase{}, false
}

// ReleaseDependents reopens the dependency_failed locks a failure on slotID
// placed: same phase, same skill, strictly harder. Position in the phase does
// not matter.
func (r *Roadmap) ReleaseDependents(slotID string) []string {
	ref, ok := r.ref(slotID)
	if !ok {
		return nil
	}
	slots := r.Phases[ref.phase].Slots
	base := slots[ref.slot]
	var released []string
	for i := range slots {
		s := &slots[i]
		if i == ref.slot || s.Skill != base.Skill || s.Difficulty.Rank() <= base.Difficulty.Rank() {
			continue
		}
		if s.Status != SlotLocked || s.LockedReason != ReasonDependencyFailed {
			continue
		}
		s.Status = SlotAvailable
		s.LockedReason = ""
		released = append(released, s.SlotID)
	}
	return released
}

func phaseHasWork(p Phase) bool {
	for _, s := range p.Slots {
		if s.Status.Actionable() {
			return true
		}
	}
	return false
}

func (r *Roadmap) activatePhase(i int) {
	p := &r.Phases[i]
	p.Status = PhaseActive
	p.LockedReason = ""
	for j := range p.Slots {
		if p.Slots[j].Status == SlotLocked {
			p.Slots[j].Status = SlotAvailable
			p.Slots[j].LockedReason = ""
		}
	}
	r.CurrentPhase = p.PhaseID
}

// ResolveActivePhase advances past phases with nothing left to do. Each pass
// either returns or completes one phase, so the loop is bounded by the phase
// count.
func (r *Roadmap) ResolveActivePhase() {
	for range len(r.Phases) + 1 {
		if r.Status != StatusActive {
			return
		}
		idx := r.activePhaseIndex()
		if idx < 0 {
			next := -1
			for i, p := range r.Phases {
				if p.Status != PhaseCompleted {
					next = i
					break
				}
			}
			if next < 0 {
				r.complete()
				return
			}
			if r.Phases[next].LockedReason != "" {
				return
			}
			r.activatePhase(next)
			continue
		}
		if phaseHasWork(r.Phases[idx]) {
			r.CurrentPhase = r.Phases[idx].PhaseID
			return
		}
		r.Phases[idx].Status = PhaseCompleted
		if idx+1 >= len(r.Phases) {
			r.complete()
			return
		}
		r.activatePhase(idx + 1)
	}
}

func (r *Roadmap) complete() {
	r.Status = StatusCompleted
	r.CurrentPhase = ""
	r.LockedReason = ""
}

// MarkRemediationRequired parks a non-terminal, idle slot for a remediation
// retry. It is a no-op when the slot is already parked.
func (r *Roadmap) MarkRemediationRequired(slotID string) error {
	const op = "roadmap.MarkRemediationRequired"
	slot, _ := r.slotPtr(slotID)
	if slot == nil {
		return newError(KindNotFound, op, "slot %q not found", slotID)
	}
	if slot.Status.Terminal() || slot.ActiveTaskInstanceID != "" {
		return newError(KindInvalidTransition, op, "slot %s is %s", slotID, slot.Status)
	}
	slot.Status = SlotRemediationRequired
	slot.LockedReason = ""
	return nil
}

// LockSlot locks an available or in-progress slot. It reports whether the
// slot changed.
func (r *Roadmap) LockSlot(slotID, reason string) (bool, error) {
	slot, _ := r.slotPtr(slotID)
	if slot == nil {
		return false, newError(KindNotFound, "roadmap.LockSlot", "slot %q not found", slotID)
	}
	if slot.Status != SlotAvailable && slot.Status != SlotInProgress {
		return false, nil
	}
	if slot.ActiveTaskInstanceID != "" {
		if inst := r.instancePtr(slot.ActiveTaskInstanceID); inst != nil && inst.Status == TaskInProgress {
			inst.Status = TaskFailed
		}
		slot.ActiveTaskInstanceID = ""
	}
	slot.Status = SlotLocked
	slot.LockedReason = reason
	return true, nil
}

// UnlockSlot makes a slot available when it is locked for exactly reason.
func (r *Roadmap) UnlockSlot(slotID, reason string) (bool, error) {
	slot, _ := r.slotPtr(slotID)
	if slot == nil {
		return false, newError(KindNotFound, "roadmap.UnlockSlot", "slot %q not found", slotID)
	}
	if slot.Status != SlotLocked || slot.LockedReason != reason {
		return false, nil
	}
	slot.Status = SlotAvailable
	slot.LockedReason = ""
	return true, nil
}

// SlotsAfter lists slot ids that follow slotID in roadmap order, across phases.
func (r *Roadmap) SlotsAfter(slotID string) []string {
	ref, ok := r.ref(slotID)
	if !ok {
		return nil
	}
	var out []string
	for pi := ref.phase; pi < len(r.Phases); pi++ {
		start := 0
		if pi == ref.phase {
			start = ref.slot + 1
		}
		for si := start; si < len(r.Phases[pi].Slots); si++ {
			out = append(out, r.Phases[pi].Slots[si].SlotID)
		}
	}
	return out
}

func (r *Roadmap) idleSlot(op, slotID string) (*Slot, error) {
	slot, _ := r.slotPtr(slotID)
	if slot == nil {
		return nil, newError(KindNotFound, op, "slot %q not found", slotID)
	}
	if slot.Status.Terminal() || slot.Status == SlotInProgress {
		return nil, newError(KindInvalidTransition, op, "slot %s is %s", slotID, slot.Status)
	}
	return slot, nil
}

// SkipSlot marks an idle slot skipped with a message for the learner.
func (r *Roadmap) SkipSlot(slotID, message string) error {
	slot, err := r.idleSlot("roadmap.SkipSlot", slotID)
	if err != nil {
		return err
	}
	blocking := slot.Status == SlotRemediationRequired
	slot.Status = SlotSkipped
	slot.LockedReason = ""
	slot.UserMessage = message
	if blocking {
		r.ReleaseDependents(slotID)
	}
	return nil
}

func (r *Roadmap) RequireReinforcement(slotID, message string) error {
	slot, err := r.idleSlot("roadmap.RequireReinforcement", slotID)
	if err != nil {
		return err
	}
	slot.Status = SlotReinforcementRequired
	slot.LockedReason = ""
	slot.UserMessage = message
	return nil
}

// Promote makes an idle slot available and flags it fast_track.
func (r *Roadmap) Promote(slotID, message string) error {
	slot, err := r.idleSlot("roadmap.Promote", slotID)
	if err != nil {
		return err
	}
	slot.Status = SlotAvailable
	slot.LockedReason = ""
	slot.UserMessage = message
	slot.addFlag(FlagFastTrack)
	return nil
}
