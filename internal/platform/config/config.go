package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr                string
	DatabaseURL         string
	TokenSecret         string
	Environment         string
	SeedTenantName      string
	DefaultCountry      string
	EvaluatorURL        string
	EvaluatorTimeout    time.Duration
	CalendarProviderURL string
	CalendarTimeout     time.Duration
	EscalationSLA       time.Duration
	KafkaBrokers        []string
	NotifyTopic         string
	NotifyEnabled       bool
	RunMigrations       bool
	RunSeed             bool
	MaxBodyBytes        int64
	RateLimitPerMinute  int
	MetricsEnabled      bool
}

func Load() Config {
	return Config{
		Addr:                getEnv("APP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		TokenSecret:         getEnv("TOKEN_SECRET", ""),
		Environment:         getEnv("APP_ENV", "development"),
		SeedTenantName:      getEnv("SEED_TENANT_NAME", "Default Tenant"),
		DefaultCountry:      getEnv("DEFAULT_COUNTRY", "US"),
		EvaluatorURL:        getEnv("EVALUATOR_URL", ""),
		EvaluatorTimeout:    getEnvDuration("EVALUATOR_TIMEOUT", 10*time.Second),
		CalendarProviderURL: getEnv("CALENDAR_PROVIDER_URL", "https://date.nager.at/api/v3"),
		CalendarTimeout:     getEnvDuration("CALENDAR_TIMEOUT", 5*time.Second),
		EscalationSLA:       getEnvDuration("ESCALATION_SLA", 48*time.Hour),
		KafkaBrokers:        getEnvList("KAFKA_BROKERS"),
		NotifyTopic:         getEnv("NOTIFY_TOPIC", "leave-decisions"),
		NotifyEnabled:       getEnvBool("NOTIFY_ENABLED", false),
		RunMigrations:       getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:             getEnvBool("RUN_SEED", true),
		MaxBodyBytes:        int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" && strings.TrimSpace(c.TokenSecret) == "" {
		return fmt.Errorf("TOKEN_SECRET must be set to a strong value in production")
	}
	if strings.TrimSpace(c.EvaluatorURL) == "" {
		return fmt.Errorf("EVALUATOR_URL is required")
	}
	if len(c.DefaultCountry) != 2 {
		return fmt.Errorf("DEFAULT_COUNTRY must be a two letter ISO country code")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EscalationSLA <= 0 {
		return fmt.Errorf("ESCALATION_SLA must be positive")
	}
	if c.NotifyEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must be set when NOTIFY_ENABLED is true")
	}
	return nil
}
