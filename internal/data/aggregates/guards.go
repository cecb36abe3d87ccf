package aggregates

import (
	"fmt"
	"maps"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/dbctx"
)

// CASGuard writes versioned rows. A write lands only while the row still
// carries the version the caller read.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

// SwapVersion applies updates to row id of table and moves its version from
// expected to expected+1. Losing the race is a ConcurrencyConflict.
func (g CASGuard) SwapVersion(dbc dbctx.Context, table string, id uuid.UUID, expected int, updates map[string]any) error {
	db := dbc.DB(g.db)
	switch {
	case db == nil:
		return ValidationError("no database handle for version swap")
	case strings.TrimSpace(table) == "" || id == uuid.Nil:
		return ValidationError("version swap needs a table and an id")
	case expected < 0:
		return ValidationError(fmt.Sprintf("expected version %d is negative", expected))
	}
	cols := make(map[string]any, len(updates)+1)
	maps.Copy(cols, updates)
	cols["version"] = expected + 1

	res := db.Table(table).Where("id = ? AND version = ?", id, expected).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return roadmap.NewError(roadmap.KindConcurrencyConflict, "aggregate.cas",
			fmt.Sprintf("%s %s is no longer at version %d", table, id, expected), nil)
	}
	return nil
}
