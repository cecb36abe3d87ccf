package aggregates

import (
	"context"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/neurobridge-roadmap/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
)

// TxRunner opens the transaction an aggregate body runs in. An error from fn
// rolls back and is returned as is; MapError classifies it afterwards.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormRunner struct{ db *gorm.DB }

// NewGormTxRunner runs bodies in db.Transaction. When db is already a
// transaction the body gets a savepoint.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return gormRunner{db: db}
}

func (r gormRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	switch {
	case fn == nil:
		return nil
	case r.db == nil:
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "no database configured", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
