package aggregates

import (
	"time"

	"github.com/yungbote/neurobridge-roadmap/internal/observability"
)

// Hooks receives one ObserveOperation per aggregate write, plus a conflict
// or retry count when the write lost.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

// NewObservabilityHooks reports writes to m. A nil m reports nothing.
func NewObservabilityHooks(m *observability.Metrics) Hooks {
	if m == nil {
		return noopHooks{}
	}
	return metricsHooks{m: m}
}

type metricsHooks struct{ m *observability.Metrics }

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(name, status, dur)
}

func (h metricsHooks) IncConflict(name string) { h.m.IncAggregateConflict(name) }
func (h metricsHooks) IncRetry(name string)    { h.m.IncAggregateRetry(name) }
