// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selectors.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	LockMemory = "memory"
	LockRedis  = "redis"
)

// Config is the captured server configuration. Every field has a default, so
// an empty environment yields a fully in-memory single-process server.
type Config struct {
	ListenAddr string

	StoreBackend string
	DB           struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
	}

	LockBackend     string
	RedisAddr       string
	LockTTL         time.Duration
	LockWaitTimeout time.Duration

	// KafkaBrokerURL empty disables the capture event sink.
	KafkaBrokerURL    string
	KafkaCaptureTopic string

	// DefaultCaptureWindow applies to authorize requests that do not carry an
	// explicit window.
	DefaultCaptureWindow time.Duration
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ListenAddr = getEnvOrDefault("CAPTURE_LISTEN_ADDR", ":8080")

	cfg.StoreBackend = getEnvOrDefault("CAPTURE_STORE_BACKEND", StoreMemory)
	if cfg.StoreBackend != StoreMemory && cfg.StoreBackend != StorePostgres {
		return nil, fmt.Errorf("invalid CAPTURE_STORE_BACKEND %q: must be %q or %q", cfg.StoreBackend, StoreMemory, StorePostgres)
	}
	cfg.DB.Host = getEnvOrDefault("CAPTURE_DB_HOST", "localhost")
	cfg.DB.Port = getEnvAsInt("CAPTURE_DB_PORT", 5432)
	cfg.DB.User = getEnvOrDefault("CAPTURE_DB_USER", "capture")
	cfg.DB.Password = getEnvOrDefault("CAPTURE_DB_PASSWORD", "capture")
	cfg.DB.Name = getEnvOrDefault("CAPTURE_DB_NAME", "capture")

	cfg.LockBackend = getEnvOrDefault("CAPTURE_LOCK_BACKEND", LockMemory)
	if cfg.LockBackend != LockMemory && cfg.LockBackend != LockRedis {
		return nil, fmt.Errorf("invalid CAPTURE_LOCK_BACKEND %q: must be %q or %q", cfg.LockBackend, LockMemory, LockRedis)
	}
	cfg.RedisAddr = getEnvOrDefault("CAPTURE_REDIS_ADDR", "localhost:6379")
	cfg.LockTTL = getEnvAsDuration("CAPTURE_LOCK_TTL", 30*time.Second)
	cfg.LockWaitTimeout = getEnvAsDuration("CAPTURE_LOCK_WAIT_TIMEOUT", 10*time.Second)

	cfg.KafkaBrokerURL = getEnvOrDefault("CAPTURE_KAFKA_BROKER_URL", "")
	cfg.KafkaCaptureTopic = getEnvOrDefault("CAPTURE_KAFKA_CAPTURE_TOPIC", "payment_captures")

	cfg.DefaultCaptureWindow = getEnvAsDuration("CAPTURE_DEFAULT_WINDOW", 24*time.Hour)

	return cfg, nil
}

// DSN returns the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name)
}

// MigrateURL returns the postgres:// URL used by golang-migrate.
func (c *Config) MigrateURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// KafkaBrokers splits the broker URL list.
func (c *Config) KafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
