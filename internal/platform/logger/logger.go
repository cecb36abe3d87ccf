package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a key/value logger. Values under sensitive keys are redacted or
// hashed before they reach zap, unless LOG_REDACTION_ENABLED is off.
type Logger struct {
	s      *zap.SugaredLogger
	redact *redactor
}

// New builds a logger for mode ("production", "development", or "test" for a
// no-op). LOG_LEVEL overrides the mode's default level.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	case "test", "nop":
		return Nop(), nil
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		lvl, err := zapcore.ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{s: z.Sugar(), redact: redactorFromEnv()}, nil
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{s: zap.NewNop().Sugar(), redact: &redactor{}}
}

func (l *Logger) ok() bool { return l != nil && l.s != nil }

func (l *Logger) Sync() {
	if l.ok() {
		_ = l.s.Sync()
	}
}

func (l *Logger) Debug(msg string, kv ...any) {
	if l.ok() {
		l.s.Debugw(msg, l.redact.kvs(kv)...)
	}
}

func (l *Logger) Info(msg string, kv ...any) {
	if l.ok() {
		l.s.Infow(msg, l.redact.kvs(kv)...)
	}
}

func (l *Logger) Warn(msg string, kv ...any) {
	if l.ok() {
		l.s.Warnw(msg, l.redact.kvs(kv)...)
	}
}

func (l *Logger) Error(msg string, kv ...any) {
	if l.ok() {
		l.s.Errorw(msg, l.redact.kvs(kv)...)
	}
}

func (l *Logger) Fatal(msg string, kv ...any) {
	if l.ok() {
		l.s.Fatalw(msg, l.redact.kvs(kv)...)
	}
	os.Exit(1)
}

// With returns a child logger carrying kv on every entry.
func (l *Logger) With(kv ...any) *Logger {
	if !l.ok() {
		return Nop()
	}
	return &Logger{s: l.s.With(l.redact.kvs(kv)...), redact: l.redact}
}

const redacted = "[REDACTED]"

var (
	// Submission payloads and raw grader output carry learner answers.
	redactKeyParts = []string{
		"token", "authorization", "password", "secret", "cookie",
		"api_key", "apikey", "email", "payload", "raw_output",
	}
	hashKeyParts = []string{"learner_id", "user_id", "session_id"}
)

type redactor struct {
	enabled bool
	salt    string
}

func redactorFromEnv() *redactor {
	r := &redactor{enabled: true, salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		r.enabled = false
	}
	return r
}

func (r *redactor) kvs(kv []any) []any {
	if r == nil || !r.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]any, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := stringify(kv[i])
		out = append(out, key, r.value(strings.ToLower(strings.TrimSpace(key)), kv[i+1]))
	}
	return out
}

func (r *redactor) value(key string, val any) any {
	switch {
	case key != "" && containsAny(key, redactKeyParts):
		return redacted
	case key != "" && containsAny(key, hashKeyParts):
		return r.hash(val)
	}
	switch v := val.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[k] = r.value(strings.ToLower(strings.TrimSpace(k)), inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = r.value("", inner)
		}
		return out
	case string:
		if looksLikeJWT(v) {
			return redacted
		}
	}
	return val
}

func (r *redactor) hash(val any) string {
	raw := stringify(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func containsAny(key string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
