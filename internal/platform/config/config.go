package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "geoasistencia/pkg/platform/strings"
)

// Server captures process-level configuration. Everything comes from the
// environment so main stays lean and deployments stay twelve-factor.
type Server struct {
	Addr          string
	DatabaseURL   string
	Redis         RedisConfig
	Kafka         KafkaConfig
	JWTSigningKey string
	// Timezone is the IANA zone used to render the server clock for schedule
	// classification. Defaults to UTC.
	Timezone string
	// IdempotencyTTL bounds how long a submission key blocks duplicates.
	IdempotencyTTL time.Duration
}

// RedisConfig holds connection settings for the idempotency guard.
// An empty URL disables Redis entirely.
type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the audit outbox relay.
// Empty brokers disable the relay.
type KafkaConfig struct {
	Brokers      []string
	AuditTopic   string
	PollInterval time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("GEOASISTENCIA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	timezone := os.Getenv("ATTENDANCE_TZ")
	if timezone == "" {
		timezone = "UTC"
	}

	idemTTL := durationFromEnv("IDEMPOTENCY_TTL", 24*time.Hour)

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "auditoria.events"
	}

	return Server{
		Addr:           addr,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSigningKey:  jwtSigningKey,
		Timezone:       timezone,
		IdempotencyTTL: idemTTL,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intFromEnv("REDIS_POOL_SIZE", 10),
			DialTimeout:  durationFromEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationFromEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationFromEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:      splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:   topic,
			PollInterval: durationFromEnv("OUTBOX_POLL_INTERVAL", 2*time.Second),
		},
	}
}

func intFromEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitNonEmpty(raw string) []string {
	if raw == "" {
		return nil
	}
	return platformstrings.DedupeAndTrim(strings.Split(raw, ","))
}
