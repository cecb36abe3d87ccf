package roadmap

import (
	"testing"
)

func TestCheckSubmission(t *testing.T) {
	r := New("l", testCurriculum())
	if _, _, err := r.CheckSubmission("missing"); !IsKind(err, KindNotFound) {
		t.Fatalf("unknown instance: want not_found got %v", err)
	}

	inst := start(t, r, "p1_s1")
	got, slot, err := r.CheckSubmission(inst.TaskInstanceID)
	if err != nil {
		t.Fatalf("CheckSubmission: %v", err)
	}
	if got.TaskInstanceID != inst.TaskInstanceID || slot.SlotID != "p1_s1" {
		t.Fatalf("returned instance=%s slot=%s", got.TaskInstanceID, slot.SlotID)
	}

	evaluate(t, r, inst.TaskInstanceID, true)
	if _, _, err := r.CheckSubmission(inst.TaskInstanceID); !IsKind(err, KindInvalidTransition) {
		t.Fatalf("closed instance: want invalid_transition got %v", err)
	}
}

func TestCheckSubmissionStaleInstance(t *testing.T) {
	r := New("l", testCurriculum())
	first := start(t, r, "p1_s1")
	evaluate(t, r, first.TaskInstanceID, false)
	second := start(t, r, "p1_s1")

	if _, _, err := r.CheckSubmission(first.TaskInstanceID); err == nil {
		t.Fatalf("stale instance must be rejected")
	}
	if _, _, err := r.CheckSubmission(second.TaskInstanceID); err != nil {
		t.Fatalf("current instance: %v", err)
	}

	// Force the slot to point at a different instance than the one submitted.
	s, _ := r.slotPtr("p1_s1")
	s.ActiveTaskInstanceID = "someone-else"
	if _, _, err := r.CheckSubmission(second.TaskInstanceID); !IsKind(err, KindConflictingActiveTask) {
		t.Fatalf("mismatch: want conflicting_active_task got %v", err)
	}
}

func TestCheckSubmissionLockedRoadmap(t *testing.T) {
	r := New("l", testCurriculum())
	inst := start(t, r, "p1_s1")
	r.Status = StatusLocked
	r.LockedReason = ReasonTooManyRemediationFailures
	_, _, err := r.CheckSubmission(inst.TaskInstanceID)
	if !IsKind(err, KindRoadmapLocked) {
		t.Fatalf("want roadmap_locked got %v", err)
	}
	if !KindRoadmapLocked.ClientError() {
		t.Fatalf("roadmap_locked should be a client error")
	}
}
