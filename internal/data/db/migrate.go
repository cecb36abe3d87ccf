package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-roadmap/internal/domain"
)

// AutoMigrateAll creates or updates every table the service owns.
func AutoMigrateAll(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("nil db")
	}
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
