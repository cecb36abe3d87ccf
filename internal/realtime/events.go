package realtime

import (
	"strings"
	"time"
)

type Event string

const (
	EventRoadmapBootstrapped Event = "RoadmapBootstrapped"
	EventSlotStarted         Event = "SlotStarted"
	EventEvaluationCommitted Event = "EvaluationCommitted"
	EventRemediationInjected Event = "RemediationInjected"
	EventPhaseCompleted      Event = "PhaseCompleted"
	EventRoadmapCompleted    Event = "RoadmapCompleted"
	EventRoadmapLocked       Event = "RoadmapLocked"
	EventGovernanceApplied   Event = "GovernanceApplied"
	EventMarketIntervention  Event = "MarketIntervention"
	EventNextTaskRecommended Event = "NextTaskRecommended"
)

// Message is one event addressed to a channel. Learner-scoped events use
// LearnerChannel.
type Message struct {
	Channel string    `json:"channel"`
	Event   Event     `json:"event"`
	Data    any       `json:"data,omitempty"`
	At      time.Time `json:"at"`
}

func LearnerChannel(learnerID string) string {
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return ""
	}
	return "learner:" + learnerID
}

// NewLearnerMessage stamps a learner-scoped message with the current time.
func NewLearnerMessage(learnerID string, ev Event, data any) Message {
	return Message{
		Channel: LearnerChannel(learnerID),
		Event:   ev,
		Data:    data,
		At:      time.Now().UTC(),
	}
}
