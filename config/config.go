package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort  string   `env:"SERVER_PORT" envDefault:"8080"`
	ServerHost  string   `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:4200"`

	// Database configuration
	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"mahlzeit"`
	DBSSLMode  string `env:"DB_SSL_MODE" envDefault:"disable"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"mahlzeit.db"`

	// Redis configuration
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisURL      string `env:"REDIS_URL"`

	// JWT configuration
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// RealtimeSource selects who announces changes: "app" publishes over
	// Redis after each write, "postgres" listens to the table triggers.
	RealtimeSource string `env:"REALTIME_SOURCE" envDefault:"app"`

	GenerateRateLimit  int           `env:"GENERATE_RATE_LIMIT" envDefault:"30"`
	GenerateRateWindow time.Duration `env:"GENERATE_RATE_WINDOW" envDefault:"1h"`

	Planner PlannerConfig `envPrefix:"PLANNER_"`
	Archive ArchiveConfig
}

// PlannerConfig tunes allocation
type PlannerConfig struct {
	// Seed fixes the random source of every allocation when non-zero.
	Seed             uint64 `env:"SEED" envDefault:"0"`
	RecencyWeeks     int    `env:"RECENCY_WEEKS" envDefault:"2"`
	AtomicRegenerate bool   `env:"ATOMIC_REGENERATE" envDefault:"false"`
}

// secretFields maps Docker secret file names to the settings they override.
var secretFields = map[string]func(*Config) *string{
	"db_user":        func(c *Config) *string { return &c.DBUser },
	"db_password":    func(c *Config) *string { return &c.DBPassword },
	"jwt_secret":     func(c *Config) *string { return &c.JWTSecret },
	"redis_password": func(c *Config) *string { return &c.RedisPassword },
	"redis_url":      func(c *Config) *string { return &c.RedisURL },
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	switch envName := GetEnvironment(); envName {
	case CI:
		loadCIConfig(cfg)
	case Development, Test, Production:
		loadSecrets(cfg)
	default:
		return nil, fmt.Errorf("unknown environment: %s", envName)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadCIConfig takes sensitive values from the TEST_* variables set by CI
func loadCIConfig(cfg *Config) {
	if v := os.Getenv("TEST_DB_PASSWORD"); v != "" {
		cfg.DBPassword = v
	}
	if v := os.Getenv("TEST_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("TEST_REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("TEST_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
}

// loadSecrets overrides settings with Docker secrets that exist
func loadSecrets(cfg *Config) {
	for name, field := range secretFields {
		if v := readSecret(name); v != "" {
			*field(cfg) = v
		}
	}
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

// Addr is the listen address of the HTTP server
func (c *Config) Addr() string {
	return net.JoinHostPort(c.ServerHost, c.ServerPort)
}

// PostgresDSN is the keyword/value connection string used by gorm and lib/pq
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// PostgresURL is the URL form used by golang-migrate
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.DBSSLMode}}.Encode(),
	}
	return u.String()
}
