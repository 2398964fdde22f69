package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string
	OperatorAccount string
	JWTSigningKey   string
	PostgresURL     string
	RedisURL        string
	KafkaBrokers    []string
	KafkaTopic      string
	EventBufferSize int
}

// ParcelCacheTTL bounds how stale a cached parcel read may be.
var ParcelCacheTTL = 5 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("LANDLEDGER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	operator := os.Getenv("LANDLEDGER_OPERATOR")
	if operator == "" {
		operator = "0xoperator"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}
	topic := os.Getenv("KAFKA_TOPIC")

	return Server{
		Addr:            addr,
		OperatorAccount: operator,
		JWTSigningKey:   jwtSigningKey,
		PostgresURL:     os.Getenv("POSTGRES_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		KafkaBrokers:    brokers,
		KafkaTopic:      topic,
		EventBufferSize: 1024,
	}
}
