package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v7"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort         int    `env:"HTTP_PORT" envDefault:"8081"`
	PostgresDSN      string `env:"POSTGRES_DSN"`
	PostgresMaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"4"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`

	Backend BackendConfig
	Session SessionConfig

	KafkaBrokers      []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaSessionTopic string   `env:"KAFKA_SESSION_TOPIC" envDefault:"portal-sessions"`
	KafkaConsumerID   string   `env:"KAFKA_CONSUMER_ID"`

	// InternalCredentialHash is the bcrypt hash the internal revocation
	// endpoint checks operator credentials against. Empty disables the
	// endpoint.
	InternalCredentialHash string `env:"INTERNAL_CREDENTIAL_HASH"`
}

type BackendConfig struct {
	URL           string        `env:"BACKEND_URL"`
	Timeout       time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`
	RetryAttempts int           `env:"BACKEND_RETRY_ATTEMPTS" envDefault:"3"`
}

type SessionConfig struct {
	CookieName      string        `env:"SESSION_COOKIE_NAME" envDefault:"portal_session"`
	CookieSecure    bool          `env:"SESSION_COOKIE_SECURE" envDefault:"true"`
	MaxAge          time.Duration `env:"SESSION_MAX_AGE" envDefault:"720h"`
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`
}

func New(envPath string) (Config, error) {
	var c Config

	err := godotenv.Load(envPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	err = env.Parse(&c)
	if err != nil {
		return Config{}, err
	}

	if c.Backend.URL == "" {
		return Config{}, fmt.Errorf("BACKEND_URL is required")
	}

	return c, nil
}
