package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the settlement-service environment
type Config struct {
	DatabaseURL     string
	RabbitMQURL     string
	RedisURL        string
	JWTPublicKey    string
	JWTIssuer       string
	OperatorKeyHash string
	HTTPAddr        string
	LockTimeout     time.Duration
	RelayInterval   time.Duration
	RelayBatchSize  int
	RelayMaxAttempt int
	RunMigrations   bool
}

// Load reads .env.local then .env (existing variables win) and validates the result
func Load() (*Config, error) {
	// Load environment variables (local overrides .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:     getenv("SETTLEMENT_DB_URL"),
		RabbitMQURL:     getenv("RABBITMQ_URL"),
		RedisURL:        getenv("REDIS_URL"),
		JWTPublicKey:    getenv("JWT_PUBLIC_KEY_PATH"),
		JWTIssuer:       withDefault(getenv("JWT_ISSUER"), "buynow-auth"),
		OperatorKeyHash: getenv("OPERATOR_KEY_HASH"),
		HTTPAddr:        withDefault(getenv("HTTP_ADDR"), ":8080"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("SETTLEMENT_DB_URL is not set")
	}
	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is not set")
	}

	var err error
	if cfg.LockTimeout, err = parseDuration(getenv, "LOCK_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.RelayInterval, err = parseDuration(getenv, "RELAY_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.RelayBatchSize, err = parseInt(getenv, "RELAY_BATCH_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.RelayMaxAttempt, err = parseInt(getenv, "RELAY_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if v := getenv("RUN_MIGRATIONS"); v != "" {
		if cfg.RunMigrations, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid RUN_MIGRATIONS: %w", err)
		}
	}

	return cfg, nil
}

// RequireAPI checks the settings only the API server needs
func (c *Config) RequireAPI() error {
	if c.JWTPublicKey == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is not set")
	}
	return nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func parseInt(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}
