package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

func TestLoadConfigReadsEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("ROADMAP_REMEDIATION_CAP", "5")
	t.Setenv("MARKET_INTERVENTION_THRESHOLD", "7.5")
	t.Setenv("SUBMIT_MAX_RETRIES", "1")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")

	cfg := LoadConfig(logger.Nop())
	if cfg.Port != "9090" || cfg.DB.Driver != "sqlite" {
		t.Fatalf("port/driver: %+v", cfg)
	}
	if cfg.RemediationCap != 5 || cfg.InterventionThreshold != 7.5 || cfg.SubmitMaxRetries != 1 {
		t.Fatalf("tuning: cap=%d threshold=%v retries=%d", cfg.RemediationCap, cfg.InterventionThreshold, cfg.SubmitMaxRetries)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("shutdown timeout: want=3s got=%s", cfg.ShutdownTimeout)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(logger.Nop())
	if cfg.RemediationCap != 3 || cfg.DecisionLookback != 5 || cfg.CriticalPressure != 1.5 || cfg.SubmitMaxRetries != 3 {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestNewWiresSQLiteStack(t *testing.T) {
	t.Setenv("LOG_MODE", "development")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "roadmap.db"))
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("OPENAI_API_KEY", "")

	a, err := New(context.Background())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Services.Catalog.Len() == 0 || a.Services.Curriculum == nil {
		t.Fatalf("builtin curriculum/catalog not loaded")
	}
	r, created, err := a.Services.Roadmap.Bootstrap(context.Background(), "learner-1", false)
	if err != nil || !created {
		t.Fatalf("Bootstrap: created=%v err=%v", created, err)
	}
	if r.TrackID != a.Services.Curriculum.TrackID {
		t.Fatalf("track: want=%s got=%s", a.Services.Curriculum.TrackID, r.TrackID)
	}
}
