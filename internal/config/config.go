// Package config loads process settings from a .env file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Upstream modes.
const (
	UpstreamWebhook = "webhook"
	UpstreamOpenAI  = "openai"
)

// Audit drivers. The SQL names are database/sql driver names.
const (
	AuditSQLite = "sqlite3"
	AuditMySQL  = "mysql"
	AuditMemory = "memory"
)

// MySQLSettings are the discrete connection settings used when AUDIT_DRIVER
// is mysql and AUDIT_DSN is unset.
type MySQLSettings struct {
	User     string
	Password string
	Host     string
	Database string
}

// Config is the full process configuration.
type Config struct {
	Port string

	ChatWebhookURL            string
	RecommendationsWebhookURL string
	ChatTimeout               time.Duration
	RecommendationsTimeout    time.Duration

	UpstreamMode  string
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string

	AuditDriver string
	AuditDSN    string
	MySQL       MySQLSettings

	RedisURL                string
	RecommendationsCacheTTL time.Duration

	FallbackContentPath string
	AllowedOrigins      []string
	RandomSeed          int64

	LogLevel  string
	LogFormat string
}

// Load reads the given .env files (missing ones are ignored; none means
// ".env") and then the process environment, which takes precedence.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function, applying defaults.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	e := env{lookup: lookup}
	cfg := &Config{
		Port:                      e.str("PORT", "8080"),
		ChatWebhookURL:            e.str("CHAT_WEBHOOK_URL", ""),
		RecommendationsWebhookURL: e.str("RECOMMENDATIONS_WEBHOOK_URL", ""),
		ChatTimeout:               e.duration("CHAT_TIMEOUT", 15*time.Second),
		RecommendationsTimeout:    e.duration("RECOMMENDATIONS_TIMEOUT", 60*time.Second),
		UpstreamMode:              strings.ToLower(e.str("UPSTREAM_MODE", UpstreamWebhook)),
		OpenAIBaseURL:             e.str("OPENAI_BASE_URL", "http://localhost:8080/v1"),
		OpenAIAPIKey:              e.str("OPENAI_API_KEY", "dummy"),
		OpenAIModel:               e.str("OPENAI_MODEL", "gpt-4o-mini"),
		AuditDriver:               strings.ToLower(e.str("AUDIT_DRIVER", AuditSQLite)),
		AuditDSN:                  e.str("AUDIT_DSN", ""),
		RedisURL:                  e.str("REDIS_URL", ""),
		RecommendationsCacheTTL:   e.duration("RECOMMENDATIONS_CACHE_TTL", 10*time.Minute),
		FallbackContentPath:       e.str("FALLBACK_CONTENT_PATH", ""),
		AllowedOrigins:            splitList(e.str("ALLOWED_ORIGINS", "")),
		RandomSeed:                e.int64("RANDOM_SEED", 0),
		LogLevel:                  e.str("LOG_LEVEL", "info"),
		LogFormat:                 strings.ToLower(e.str("LOG_FORMAT", "text")),
	}
	if e.err != nil {
		return nil, e.err
	}

	cfg.MySQL = MySQLSettings{
		User:     e.str("MYSQL_USER", "user"),
		Password: e.str("MYSQL_PWD", "password"),
		Host:     e.str("MYSQL_HOST", "tcp(127.0.0.1:3306)"),
		Database: e.str("MYSQL_DATABASE", "supportdesk"),
	}
	if cfg.AuditDSN == "" && cfg.AuditDriver == AuditSQLite {
		cfg.AuditDSN = "./data/audit.db"
	}

	// The OpenAI-compatible upstream has a single endpoint for both pipelines.
	if cfg.UpstreamMode == UpstreamOpenAI {
		if cfg.ChatWebhookURL == "" {
			cfg.ChatWebhookURL = cfg.OpenAIBaseURL
		}
		if cfg.RecommendationsWebhookURL == "" {
			cfg.RecommendationsWebhookURL = cfg.OpenAIBaseURL
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that cannot work.
func (c *Config) Validate() error {
	switch c.UpstreamMode {
	case UpstreamWebhook, UpstreamOpenAI:
	default:
		return fmt.Errorf("UPSTREAM_MODE must be %q or %q, got %q", UpstreamWebhook, UpstreamOpenAI, c.UpstreamMode)
	}
	switch c.AuditDriver {
	case AuditSQLite, AuditMySQL, AuditMemory:
	default:
		return fmt.Errorf("unsupported AUDIT_DRIVER %q", c.AuditDriver)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.ChatTimeout <= 0 || c.RecommendationsTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// NewLogger builds the base logger.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.Level = level
	if c.LogFormat == "json" {
		log.Formatter = &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "severity",
				logrus.FieldKeyMsg:   "message",
			},
			TimestampFormat: time.RFC3339Nano,
		}
	} else {
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}
	log.Out = os.Stdout
	return log
}

// env collects the first parse error instead of failing field by field.
type env struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		// bare numbers are seconds
		n, nErr := strconv.Atoi(raw)
		if nErr != nil {
			e.fail(fmt.Errorf("%s: invalid duration %q", key, raw))
			return def
		}
		d = time.Duration(n) * time.Second
	}
	return d
}

func (e *env) int64(key string, def int64) int64 {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		e.fail(fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return n
}

func (e *env) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
