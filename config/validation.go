package config

import (
	"errors"
	"fmt"
	"slices"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	RealtimeApp      = "app"
	RealtimePostgres = "postgres"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks the settings against each other and the environment
func ValidateConfig(cfg *Config) error {
	var errs []error
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if cfg.JWTSecret == "" {
		add("JWT_SECRET", "is required (environment or jwt_secret secret)")
	}

	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DBHost == "" || cfg.DBName == "" || cfg.DBUser == "" {
			add("DB_HOST", "host, name and user are required for postgres")
		}
		if GetEnvironment() == Production && cfg.DBPassword == "" {
			add("DB_PASSWORD", "is required in production")
		}
	case DriverSQLite:
		if GetEnvironment() == Production {
			add("DB_DRIVER", "sqlite is not supported in production")
		}
	default:
		add("DB_DRIVER", fmt.Sprintf("unknown driver %q", cfg.DBDriver))
	}

	if !slices.Contains([]string{RealtimeApp, RealtimePostgres}, cfg.RealtimeSource) {
		add("REALTIME_SOURCE", fmt.Sprintf("unknown source %q", cfg.RealtimeSource))
	}
	if cfg.RealtimeSource == RealtimePostgres && cfg.DBDriver != DriverPostgres {
		add("REALTIME_SOURCE", "postgres notifications need DB_DRIVER=postgres")
	}

	if !slices.Contains([]string{"json", "console"}, cfg.LogFormat) {
		add("LOG_FORMAT", fmt.Sprintf("unknown format %q", cfg.LogFormat))
	}
	if cfg.Planner.RecencyWeeks < 0 {
		add("PLANNER_RECENCY_WEEKS", "must not be negative")
	}
	if cfg.GenerateRateLimit < 0 {
		add("GENERATE_RATE_LIMIT", "must not be negative")
	}

	return errors.Join(errs...)
}
