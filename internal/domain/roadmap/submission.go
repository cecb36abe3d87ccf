package roadmap

// CheckSubmission verifies that taskInstanceID is the task the roadmap is
// waiting on. It reads only; the returned values are copies.
func (r *Roadmap) CheckSubmission(taskInstanceID string) (TaskInstance, Slot, error) {
	const op = "roadmap.CheckSubmission"
	if r.Status == StatusLocked {
		return TaskInstance{}, Slot{}, newError(KindRoadmapLocked, op, "roadmap is locked: %s", r.LockedReason)
	}
	if r.Status != StatusActive {
		return TaskInstance{}, Slot{}, newError(KindInvalidTransition, op, "roadmap is %s", r.Status)
	}
	inst := r.instancePtr(taskInstanceID)
	if inst == nil {
		return TaskInstance{}, Slot{}, newError(KindNotFound, op, "task instance %q not found", taskInstanceID)
	}
	slot, _ := r.slotPtr(inst.SlotID)
	if slot == nil {
		return TaskInstance{}, Slot{}, newError(KindInvariantViolation, op, "task instance %s references missing slot %s", inst.TaskInstanceID, inst.SlotID)
	}
	if slot.Status != SlotInProgress {
		return TaskInstance{}, Slot{}, newError(KindInvalidTransition, op, "slot %s is %s", slot.SlotID, slot.Status)
	}
	if slot.ActiveTaskInstanceID != inst.TaskInstanceID {
		return TaskInstance{}, Slot{}, newError(KindConflictingActiveTask, op,
			"slot %s is running task %s, not %s", slot.SlotID, slot.ActiveTaskInstanceID, inst.TaskInstanceID)
	}
	return *inst, *slot, nil
}
