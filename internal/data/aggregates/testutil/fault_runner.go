// Package testutil injects transaction faults into roadmap aggregate tests.
package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/neurobridge-roadmap/internal/data/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
)

// FaultRunner wraps Inner and fails around the aggregate body. With
// FailAfterBody set the body's writes happen inside Inner's transaction and
// are rolled back when the fault is returned, which is how a lost commit
// looks to the caller. A nil Inner runs the body without a transaction.
type FaultRunner struct {
	Inner         aggregates.TxRunner
	FailBefore    error
	FailAfterBody error

	mu        sync.Mutex
	calls     int
	bodies    int
	rollbacks int
}

var _ aggregates.TxRunner = (*FaultRunner)(nil)

func (r *FaultRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.calls++
	before, after := r.FailBefore, r.FailAfterBody
	r.mu.Unlock()

	if before != nil {
		r.count(&r.rollbacks)
		return before
	}
	body := func(dbc dbctx.Context) error {
		r.count(&r.bodies)
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		return after
	}

	var err error
	if r.Inner == nil {
		err = body(dbctx.Context{Ctx: ctx})
	} else {
		err = r.Inner.InTx(ctx, body)
	}
	if err != nil {
		r.count(&r.rollbacks)
	}
	return err
}

func (r *FaultRunner) count(n *int) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}

// Stats returns how many transactions were requested, how many bodies ran
// and how many ended in rollback.
func (r *FaultRunner) Stats() (calls, bodies, rollbacks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, r.bodies, r.rollbacks
}
