package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yungbote/neurobridge-roadmap/internal/observability"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

const EventMarketIntervention = "MARKET_INTERVENTION"

// LedgerEntry is one audit record of the market overriding a slot.
type LedgerEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	Event           string    `json:"event"`
	LearnerID       string    `json:"learner_id,omitempty"`
	SlotID          string    `json:"slot_id,omitempty"`
	TargetInvariant string    `json:"target_invariant"`
	Pressure        float64   `json:"pressure"`
	Cost            float64   `json:"cost"`
	Score           float64   `json:"score"`
	ProbeID         string    `json:"probe_id"`
	Reason          string    `json:"reason"`
}

// Ledger is an append-only audit sink. Record must not block the caller.
type Ledger interface {
	Record(LedgerEntry)
}

type NopLedger struct{}

func (NopLedger) Record(LedgerEntry) {}

// Sink persists or forwards ledger entries.
type Sink func(ctx context.Context, e LedgerEntry) error

// AsyncLedger fans entries out to sinks on a background goroutine. When the
// buffer is full entries are dropped and counted.
type AsyncLedger struct {
	log     *logger.Logger
	sinks   []Sink
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	ch      chan LedgerEntry
	done    chan struct{}
	dropped atomic.Int64
}

func NewAsyncLedger(log *logger.Logger, buffer int, sinks ...Sink) *AsyncLedger {
	if buffer <= 0 {
		buffer = 256
	}
	l := &AsyncLedger{
		log:     log.With("component", "PressureLedger"),
		sinks:   sinks,
		timeout: 5 * time.Second,
		ch:      make(chan LedgerEntry, buffer),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *AsyncLedger) Record(e LedgerEntry) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.drop()
		return
	}
	select {
	case l.ch <- e:
	default:
		l.drop()
		l.log.Warn("ledger buffer full; entry dropped", "probe_id", e.ProbeID)
	}
}

func (l *AsyncLedger) drop() {
	l.dropped.Add(1)
	observability.Current().IncLedgerDropped()
}

func (l *AsyncLedger) Dropped() int64 { return l.dropped.Load() }

func (l *AsyncLedger) run() {
	defer close(l.done)
	for e := range l.ch {
		l.log.Info("PRESSURE_LEDGER",
			"event", e.Event,
			"learner_id", e.LearnerID,
			"target_invariant", e.TargetInvariant,
			"pressure", e.Pressure,
			"cost", e.Cost,
			"score", e.Score,
			"probe_id", e.ProbeID,
			"reason", e.Reason,
		)
		for _, sink := range l.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
			if err := sink(ctx, e); err != nil {
				l.log.Warn("ledger sink failed", "error", err, "probe_id", e.ProbeID)
			}
			cancel()
		}
	}
}

// Close stops accepting entries and drains the buffer, or gives up when ctx
// ends first.
func (l *AsyncLedger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.ch)
	}
	l.mu.Unlock()
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
