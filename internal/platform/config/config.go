package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration sourced from the environment
// so main stays lean. Zero values mean "not configured": stores fall back to
// memory, adapters to their deterministic stubs, and the publisher to a
// no-op sink.
type Server struct {
	Addr          string
	Environment   string // "production" switches adapter fallbacks off
	JWTSigningKey string

	PostgresURL string
	RedisURL    string

	KafkaBrokers    []string
	KafkaEventTopic string
	KafkaAlertTopic string

	// Saga tuning.
	CreditScoreFloor     int
	TrustScoreThreshold  int
	QuoteOverlimitCents  int64
	SignatureWaitBound   time.Duration
	ComplianceWaitBound  time.Duration
	FormTokenTTL         time.Duration
	AdapterCallTimeout   time.Duration
	TimerPollInterval    time.Duration
	ApplyConflictRetries int
}

// Production reports whether fabricated adapter fallbacks are forbidden.
func (s Server) Production() bool { return s.Environment == "production" }

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:                 envOr("ONBOARDING_ADDR", ":8080"),
		Environment:          envOr("ONBOARDING_ENV", "development"),
		JWTSigningKey:        envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresURL:          os.Getenv("POSTGRES_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		KafkaEventTopic:      envOr("KAFKA_EVENT_TOPIC", "onboarding.workflow.events"),
		KafkaAlertTopic:      envOr("KAFKA_ALERT_TOPIC", "onboarding.escalations"),
		CreditScoreFloor:     envInt("CREDIT_SCORE_FLOOR", 520),
		TrustScoreThreshold:  envInt("TRUST_SCORE_THRESHOLD", 70),
		QuoteOverlimitCents:  envInt64("QUOTE_OVERLIMIT_CENTS", 50_000_000),
		SignatureWaitBound:   envDuration("SIGNATURE_WAIT_BOUND", 7*24*time.Hour),
		ComplianceWaitBound:  envDuration("COMPLIANCE_WAIT_BOUND", 14*24*time.Hour),
		FormTokenTTL:         envDuration("FORM_TOKEN_TTL", 14*24*time.Hour),
		AdapterCallTimeout:   envDuration("ADAPTER_CALL_TIMEOUT", 15*time.Second),
		TimerPollInterval:    envDuration("TIMER_POLL_INTERVAL", 30*time.Second),
		ApplyConflictRetries: envInt("APPLY_CONFLICT_RETRIES", 3),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
