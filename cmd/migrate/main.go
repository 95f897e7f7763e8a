package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"go.uber.org/zap"

	"github.com/iappwebdev/mahl-zeit-planer/config"
	"github.com/iappwebdev/mahl-zeit-planer/internal/database"
	"github.com/iappwebdev/mahl-zeit-planer/internal/logger"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	showVersion := flag.Bool("version", false, "Print the applied schema version and exit")
	flag.Parse()

	if err := run(*rollback, *showVersion); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(rollback, showVersion bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.DBDriver != config.DriverPostgres {
		return fmt.Errorf("migrations run against postgres only, DB_DRIVER is %q", cfg.DBDriver)
	}

	db, err := database.New(cfg, log)
	if err != nil {
		return err
	}
	m, err := database.NewMigrator(db)
	if err != nil {
		return err
	}

	switch {
	case showVersion:
	case rollback:
		if err := m.Steps(-1); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
		log.Info("rolled back one migration")
	default:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info("no migrations applied")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
