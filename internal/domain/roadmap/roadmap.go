package roadmap

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusLocked    Status = "locked"
	StatusCompleted Status = "completed"
)

type PhaseStatus string

const (
	PhaseLocked    PhaseStatus = "locked"
	PhaseActive    PhaseStatus = "active"
	PhaseCompleted PhaseStatus = "completed"
)

type SlotStatus string

const (
	SlotLocked                SlotStatus = "locked"
	SlotAvailable             SlotStatus = "available"
	SlotInProgress            SlotStatus = "in_progress"
	SlotRemediationRequired   SlotStatus = "remediation_required"
	SlotReinforcementRequired SlotStatus = "reinforcement_required"
	SlotCompleted             SlotStatus = "completed"
	SlotFailed                SlotStatus = "failed"
	SlotSkipped               SlotStatus = "skipped"
)

// Terminal slots are never revisited by governance or remediation.
func (s SlotStatus) Terminal() bool {
	return s == SlotCompleted || s == SlotFailed || s == SlotSkipped
}

// Actionable slots keep their phase active.
func (s SlotStatus) Actionable() bool {
	switch s {
	case SlotAvailable, SlotInProgress, SlotRemediationRequired, SlotReinforcementRequired:
		return true
	}
	return false
}

// Startable slots accept StartSlot.
func (s SlotStatus) Startable() bool {
	switch s {
	case SlotAvailable, SlotRemediationRequired, SlotReinforcementRequired:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

const (
	DefaultRemediationCap = 3

	ReasonRemediationAttemptsExceeded = "remediation_attempts_exceeded"
	ReasonTooManyRemediationFailures  = "too_many_remediation_failures"
	ReasonDependencyFailed            = "dependency_failed"
	ReasonRequirementsNotMet          = "requirements_not_met"
	ReasonPhaseLocked                 = "phase_locked"

	FlagFastTrack = "fast_track"
)

type Slot struct {
	SlotID               string                  `json:"slot_id"`
	Skill                string                  `json:"skill"`
	Difficulty           curriculum.Difficulty   `json:"difficulty"`
	QuestionType         curriculum.QuestionType `json:"question_type,omitempty"`
	Status               SlotStatus              `json:"status"`
	ActiveTaskInstanceID string                  `json:"active_task_instance_id,omitempty"`
	RemediationAttempts  int                     `json:"remediation_attempts"`
	Flags                []string                `json:"flags,omitempty"`
	LockedReason         string                  `json:"locked_reason,omitempty"`
	UserMessage          string                  `json:"user_message,omitempty"`
}

func (s Slot) HasFlag(flag string) bool {
	for _, f := range s.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

func (s *Slot) addFlag(flag string) {
	if s.HasFlag(flag) {
		return
	}
	s.Flags = append(s.Flags, flag)
	sort.Strings(s.Flags)
}

type Phase struct {
	PhaseID      string      `json:"phase_id"`
	Name         string      `json:"name"`
	Status       PhaseStatus `json:"phase_status"`
	LockedReason string      `json:"locked_reason,omitempty"`
	Slots        []Slot      `json:"slots"`
}

// TaskInstance is one attempt at a slot. Identity is fixed at creation and
// instances are never removed from the roadmap.
type TaskInstance struct {
	TaskInstanceID string                `json:"task_instance_id"`
	TaskTemplateID string                `json:"task_template_id"`
	BaseTemplateID string                `json:"base_template_id"`
	Skill          string                `json:"skill"`
	Difficulty     curriculum.Difficulty `json:"difficulty"`
	SlotID         string                `json:"slot_id"`
	Status         TaskStatus            `json:"status"`
	Remediation    bool                  `json:"remediation,omitempty"`
	StartedAt      time.Time             `json:"started_at"`
	CompletedAt    *time.Time            `json:"completed_at,omitempty"`
}

// Roadmap is the aggregate root. Phases, slots and task instances are owned by
// value; all mutation goes through its methods.
type Roadmap struct {
	ID              string         `json:"roadmap_id"`
	LearnerID       string         `json:"learner_id"`
	TrackID         string         `json:"track_id"`
	Status          Status         `json:"status"`
	Version         int            `json:"version"`
	LockedReason    string         `json:"locked_reason,omitempty"`
	CurrentPhase    string         `json:"current_phase,omitempty"`
	LastEvaluatedAt *time.Time     `json:"last_evaluated_at,omitempty"`
	RemediationCap  int            `json:"remediation_cap"`
	Layout          []string       `json:"layout"`
	Phases          []Phase        `json:"phases"`
	TaskInstances   []TaskInstance `json:"task_instances"`

	slotIdx map[string]slotRef
}

type slotRef struct {
	phase int
	slot  int
}

// New builds a fresh roadmap from a curriculum. The first phase is active with
// its first slot available; everything else starts locked and opens as the
// learner progresses.
func New(learnerID string, c *curriculum.Curriculum) *Roadmap {
	r := &Roadmap{
		ID:             uuid.New().String(),
		LearnerID:      learnerID,
		Status:         StatusActive,
		RemediationCap: DefaultRemediationCap,
	}
	if c != nil {
		r.TrackID = c.TrackID
		for _, pd := range c.Phases {
			ph := Phase{PhaseID: pd.PhaseID, Name: pd.Name, Status: PhaseLocked}
			for _, sd := range pd.Slots {
				ph.Slots = append(ph.Slots, Slot{
					SlotID:       sd.SlotID,
					Skill:        sd.Skill,
					Difficulty:   sd.Difficulty,
					QuestionType: sd.QuestionType,
					Status:       SlotLocked,
				})
			}
			r.Phases = append(r.Phases, ph)
		}
	}
	r.Layout = r.layout()
	if len(r.Phases) == 0 {
		r.Status = StatusCompleted
		return r
	}
	r.Phases[0].Status = PhaseActive
	r.CurrentPhase = r.Phases[0].PhaseID
	if len(r.Phases[0].Slots) > 0 {
		r.Phases[0].Slots[0].Status = SlotAvailable
	}
	r.ResolveActivePhase()
	return r
}

// layout fingerprints phase and slot order.
func (r *Roadmap) layout() []string {
	out := make([]string, 0, len(r.Phases))
	for _, p := range r.Phases {
		ids := make([]string, 0, len(p.Slots))
		for _, s := range p.Slots {
			ids = append(ids, s.SlotID)
		}
		out = append(out, p.PhaseID+":"+strings.Join(ids, ","))
	}
	return out
}

func (r *Roadmap) attemptCap() int {
	if r.RemediationCap <= 0 {
		return DefaultRemediationCap
	}
	return r.RemediationCap
}

func (r *Roadmap) reindex() {
	r.slotIdx = make(map[string]slotRef)
	for pi := range r.Phases {
		for si := range r.Phases[pi].Slots {
			r.slotIdx[r.Phases[pi].Slots[si].SlotID] = slotRef{phase: pi, slot: si}
		}
	}
}

func (r *Roadmap) ref(slotID string) (slotRef, bool) {
	if r.slotIdx == nil {
		r.reindex()
	}
	ref, ok := r.slotIdx[slotID]
	if ok && ref.phase < len(r.Phases) && ref.slot < len(r.Phases[ref.phase].Slots) &&
		r.Phases[ref.phase].Slots[ref.slot].SlotID == slotID {
		return ref, true
	}
	r.reindex()
	ref, ok = r.slotIdx[slotID]
	return ref, ok
}

func (r *Roadmap) slotPtr(slotID string) (*Slot, *Phase) {
	ref, ok := r.ref(slotID)
	if !ok {
		return nil, nil
	}
	return &r.Phases[ref.phase].Slots[ref.slot], &r.Phases[ref.phase]
}

// Slot returns a copy of the slot.
func (r *Roadmap) Slot(slotID string) (Slot, bool) {
	s, _ := r.slotPtr(slotID)
	if s == nil {
		return Slot{}, false
	}
	return *s, true
}

// PhaseOf returns a copy of the phase owning slotID.
func (r *Roadmap) PhaseOf(slotID string) (Phase, bool) {
	_, p := r.slotPtr(slotID)
	if p == nil {
		return Phase{}, false
	}
	return *p, true
}

func (r *Roadmap) instancePtr(id string) *TaskInstance {
	for i := range r.TaskInstances {
		if r.TaskInstances[i].TaskInstanceID == id {
			return &r.TaskInstances[i]
		}
	}
	return nil
}

func (r *Roadmap) TaskInstance(id string) (TaskInstance, bool) {
	ti := r.instancePtr(id)
	if ti == nil {
		return TaskInstance{}, false
	}
	return *ti, true
}

// LastFailedInstance returns the most recent failed instance for a slot.
func (r *Roadmap) LastFailedInstance(slotID string) (TaskInstance, bool) {
	for i := len(r.TaskInstances) - 1; i >= 0; i-- {
		ti := r.TaskInstances[i]
		if ti.SlotID == slotID && ti.Status == TaskFailed {
			return ti, true
		}
	}
	return TaskInstance{}, false
}

// ActiveTask returns the slot currently holding the single in-flight task.
func (r *Roadmap) ActiveTask() (Slot, bool) {
	for _, p := range r.Phases {
		for _, s := range p.Slots {
			if s.ActiveTaskInstanceID != "" {
				return s, true
			}
		}
	}
	return Slot{}, false
}

func (r *Roadmap) activePhaseIndex() int {
	for i, p := range r.Phases {
		if p.Status == PhaseActive {
			return i
		}
	}
	return -1
}

// ActivePhase returns a copy of the active phase.
func (r *Roadmap) ActivePhase() (Phase, bool) {
	i := r.activePhaseIndex()
	if i < 0 {
		return Phase{}, false
	}
	return r.Phases[i], true
}

// NextActionableSlot returns the in-flight slot if any, else the first
// startable slot of the active phase.
func (r *Roadmap) NextActionableSlot() (Slot, bool) {
	if s, ok := r.ActiveTask(); ok {
		return s, true
	}
	p, ok := r.ActivePhase()
	if !ok {
		return Slot{}, false
	}
	for _, s := range p.Slots {
		if s.Status.Startable() {
			return s, true
		}
	}
	return Slot{}, false
}

// Clone deep-copies the roadmap so a mutation can be attempted and discarded.
func (r *Roadmap) Clone() *Roadmap {
	if r == nil {
		return nil
	}
	out := *r
	out.slotIdx = nil
	out.Layout = append([]string(nil), r.Layout...)
	if r.LastEvaluatedAt != nil {
		t := *r.LastEvaluatedAt
		out.LastEvaluatedAt = &t
	}
	out.Phases = make([]Phase, len(r.Phases))
	for i, p := range r.Phases {
		np := p
		np.Slots = make([]Slot, len(p.Slots))
		for j, s := range p.Slots {
			ns := s
			ns.Flags = append([]string(nil), s.Flags...)
			np.Slots[j] = ns
		}
		out.Phases[i] = np
	}
	out.TaskInstances = make([]TaskInstance, len(r.TaskInstances))
	for i, ti := range r.TaskInstances {
		nt := ti
		if ti.CompletedAt != nil {
			t := *ti.CompletedAt
			nt.CompletedAt = &t
		}
		out.TaskInstances[i] = nt
	}
	return &out
}
