package db

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

func TestPostgresDSNFromParts(t *testing.T) {
	cfg := Config{User: "u", Password: "p", Host: "h", Port: "5433", Name: "n", SSLMode: "require"}
	if got := cfg.postgresDSN(); got != "postgres://u:p@h:5433/n?sslmode=require" {
		t.Fatalf("dsn: %s", got)
	}
	cfg.DSN = "postgres://override"
	if got := cfg.postgresDSN(); got != "postgres://override" {
		t.Fatalf("explicit dsn should win: %s", got)
	}
}

func TestSQLiteServiceMigrates(t *testing.T) {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	svc, err := NewPostgresService(logger.Nop(), Config{Driver: DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("NewPostgresService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	if svc.Driver() != DriverSQLite {
		t.Fatalf("driver: %s", svc.Driver())
	}
	if err := AutoMigrateAll(svc.DB()); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	if !svc.DB().Migrator().HasTable("learner_roadmap") {
		t.Fatalf("learner_roadmap table missing")
	}
}

func TestUnknownDriver(t *testing.T) {
	if _, err := NewPostgresService(logger.Nop(), Config{Driver: "mysql"}); err == nil {
		t.Fatalf("want unsupported driver error")
	}
}
