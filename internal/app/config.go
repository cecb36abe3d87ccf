package app

import (
	"time"

	"github.com/yungbote/neurobridge-roadmap/internal/data/db"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/decision"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/market"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/orchestrator"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/envutil"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/openai"
	"github.com/yungbote/neurobridge-roadmap/internal/realtime/bus"
	"github.com/yungbote/neurobridge-roadmap/internal/services"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Port        string
	CORSOrigins string

	DB     db.Config
	Redis  bus.RedisConfig
	OpenAI openai.Config

	JWTSecretKey  string
	LLMStructured bool

	CurriculumPath string
	CatalogPath    string
	MetricsAddr    string

	RemediationCap        int
	DecisionLookback      int
	InterventionThreshold float64
	CriticalPressure      float64
	SubmitMaxRetries      int
	LedgerBuffer          int
	ShutdownTimeout       time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		ServiceName: envutil.String("SERVICE_NAME", "neurobridge-roadmap"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		Port:        envutil.String("PORT", "8080"),
		CORSOrigins: envutil.String("CORS_ALLOWED_ORIGINS", ""),

		DB:     db.ConfigFromEnv(),
		Redis:  bus.RedisConfigFromEnv(),
		OpenAI: openai.ConfigFromEnv(),

		JWTSecretKey:  envutil.String("JWT_SECRET_KEY", ""),
		LLMStructured: envutil.Bool("LLM_STRUCTURED_OUTPUT", true),

		CurriculumPath: envutil.String("CURRICULUM_YAML", ""),
		CatalogPath:    envutil.String("TEMPLATE_CATALOG_YAML", ""),
		MetricsAddr:    envutil.String("METRICS_ADDR", ""),

		RemediationCap:        envutil.Int("ROADMAP_REMEDIATION_CAP", roadmap.DefaultRemediationCap),
		DecisionLookback:      envutil.Int("DECISION_LOOKBACK", decision.DefaultLookback),
		InterventionThreshold: envutil.Float("MARKET_INTERVENTION_THRESHOLD", market.DefaultInterventionThreshold),
		CriticalPressure:      envutil.Float("ORCHESTRATOR_CRITICAL_PRESSURE", orchestrator.DefaultCriticalPressure),
		SubmitMaxRetries:      envutil.Int("SUBMIT_MAX_RETRIES", services.DefaultSubmitMaxRetries),
		LedgerBuffer:          envutil.Int("PRESSURE_LEDGER_BUFFER", 256),
		ShutdownTimeout:       envutil.Duration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
	}
	log.Info("Config loaded",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"db_driver", cfg.DB.Driver,
		"redis", cfg.Redis.Addr != "",
		"jwt_auth", cfg.JWTSecretKey != "",
		"llm_grading", cfg.OpenAI.APIKey != "",
		"curriculum", orBuiltin(cfg.CurriculumPath),
		"catalog", orBuiltin(cfg.CatalogPath),
		"remediation_cap", cfg.RemediationCap,
		"decision_lookback", cfg.DecisionLookback,
		"intervention_threshold", cfg.InterventionThreshold,
		"critical_pressure", cfg.CriticalPressure,
		"submit_max_retries", cfg.SubmitMaxRetries,
	)
	return cfg
}

func orBuiltin(path string) string {
	if path == "" {
		return "builtin"
	}
	return path
}
