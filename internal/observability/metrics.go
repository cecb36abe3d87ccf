package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-roadmap/internal/platform/envutil"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	aggregateOps      *CounterVec
	aggregateLatency  *HistogramVec
	aggregateConflict *CounterVec
	aggregateRetry    *CounterVec

	transitions   *CounterVec
	evaluations   *CounterVec
	evalScore     *HistogramVec
	decisions     *CounterVec
	interventions *CounterVec
	pressure      *HistogramVec
	ledgerDropped *Counter
	governance    *CounterVec

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge

	collectors []collector
}

type collector interface {
	WritePrometheus(w io.Writer) error
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	return envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	unit := []float64{0.05, 0.1, 0.2, 0.35, 0.5, 0.6, 0.75, 0.9, 1}
	m := &Metrics{
		apiRequests: NewCounterVec("nbr_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"nbr_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("nbr_api_inflight_requests", "In-flight API requests."),
		llmRequests: NewCounterVec("nbr_llm_requests_total", "LLM grading requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency: NewHistogramVec(
			"nbr_llm_request_duration_seconds",
			"LLM grading latency in seconds by model/endpoint/status.",
			[]string{"model", "endpoint", "status"},
			[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		),
		llmTokens:         NewCounterVec("nbr_llm_tokens_total", "LLM tokens by model/direction.", []string{"model", "direction"}),
		aggregateOps:      NewCounterVec("nbr_aggregate_operations_total", "Aggregate write operations by name/status.", []string{"operation", "status"}),
		aggregateLatency:  NewHistogramVec("nbr_aggregate_operation_duration_seconds", "Aggregate write latency by name/status.", []string{"operation", "status"}, nil),
		aggregateConflict: NewCounterVec("nbr_aggregate_conflicts_total", "Aggregate version conflicts by operation.", []string{"operation"}),
		aggregateRetry:    NewCounterVec("nbr_aggregate_retries_total", "Aggregate retryable failures by operation.", []string{"operation"}),
		transitions:       NewCounterVec("nbr_roadmap_transitions_total", "Roadmap slot transitions by kind.", []string{"transition"}),
		evaluations:       NewCounterVec("nbr_evaluations_total", "Submission evaluations by question type/outcome.", []string{"question_type", "outcome"}),
		evalScore:         NewHistogramVec("nbr_evaluation_score", "Guarded evaluation score by question type.", []string{"question_type"}, unit),
		decisions:         NewCounterVec("nbr_orchestrator_decisions_total", "Next-task decisions by mode.", []string{"mode"}),
		interventions:     NewCounterVec("nbr_market_interventions_total", "Market interventions by target invariant.", []string{"target"}),
		pressure: NewHistogramVec(
			"nbr_bottleneck_pressure",
			"Bottleneck pressure observed when planning.",
			[]string{},
			[]float64{0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2},
		),
		ledgerDropped: NewCounter("nbr_pressure_ledger_dropped_total", "Ledger entries dropped because the writer was saturated."),
		governance:    NewCounterVec("nbr_governance_changes_total", "Governance slot changes by rule.", []string{"rule"}),
		pgStats:       NewGaugeVec("nbr_db_stats", "Database connection stats.", []string{"metric"}),
		redisUp:       NewGauge("nbr_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:     NewGauge("nbr_redis_ping_seconds", "Redis ping latency in seconds."),
	}
	m.collectors = []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflict, m.aggregateRetry,
		m.transitions, m.evaluations, m.evalScore, m.decisions, m.interventions, m.pressure,
		m.ledgerDropped, m.governance,
		m.pgStats, m.redisUp, m.redisPing,
	}
	return m
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.collectors {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if status == "" {
		status = "0"
	}
	route = orUnknown(route)
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint string, status int, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model, endpoint = orUnknown(model), orUnknown(endpoint)
	st := strconv.Itoa(status)
	m.llmRequests.Inc(model, endpoint, st)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, st)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	name, status = orUnknown(name), orUnknown(status)
	m.aggregateOps.Inc(name, status)
	m.aggregateLatency.Observe(dur.Seconds(), name, status)
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflict.Inc(orUnknown(name))
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetry.Inc(orUnknown(name))
}

// IncTransition counts slot transitions: started, passed, remediation_required, terminal_failure.
func (m *Metrics) IncTransition(kind string) {
	if m == nil {
		return
	}
	m.transitions.Inc(orUnknown(kind))
}

func (m *Metrics) ObserveEvaluation(questionType string, passed bool, score float64) {
	if m == nil {
		return
	}
	outcome := "fail"
	if passed {
		outcome = "pass"
	}
	questionType = orUnknown(questionType)
	m.evaluations.Inc(questionType, outcome)
	m.evalScore.Observe(score, questionType)
}

func (m *Metrics) IncDecision(mode string) {
	if m == nil {
		return
	}
	m.decisions.Inc(orUnknown(mode))
}

func (m *Metrics) ObservePressure(p float64) {
	if m == nil {
		return
	}
	m.pressure.Observe(p)
}

func (m *Metrics) IncIntervention(target string) {
	if m == nil {
		return
	}
	m.interventions.Inc(orUnknown(target))
}

func (m *Metrics) IncLedgerDropped() {
	if m == nil {
		return
	}
	m.ledgerDropped.Inc()
}

func (m *Metrics) AddGovernanceChanges(rule string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.governance.Add(float64(n), orUnknown(rule))
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

// StartRedisCollector pings the shared client on every scrape interval.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
