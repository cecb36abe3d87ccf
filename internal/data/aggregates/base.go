package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/neurobridge-roadmap/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

// BaseDeps is what every aggregate write needs: a transaction boundary, a
// version guard, and somewhere to report outcomes.
type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	return d
}

// executeWrite runs fn as one transaction named op. The returned error is
// always canonical; conflicts and retries are counted separately from the
// per-status latency.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	deps = deps.withDefaults()
	if op = strings.TrimSpace(op); op == "" {
		op = "aggregate.write"
	}
	began := time.Now()
	err := MapError(op, deps.Runner.InTx(ctx, fn))

	status := statusOf(err)
	switch domainagg.ErrorCode(status) {
	case domainagg.CodeConflict:
		deps.Hooks.IncConflict(op)
	case domainagg.CodeRetryable:
		deps.Hooks.IncRetry(op)
	case domainagg.CodeInternal, domainagg.CodeInvariantViolation:
		deps.Log.Error("Aggregate write failed", "op", op, "status", status, "error", err)
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(began))
	return err
}

// statusOf is the metrics label for a write outcome.
func statusOf(err error) string {
	if err == nil {
		return "success"
	}
	if code := domainagg.CodeOf(MapError("aggregate.status", err)); code != "" {
		return string(code)
	}
	return "failure"
}
