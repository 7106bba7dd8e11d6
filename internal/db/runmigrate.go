package db

import (
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"

	"github.com/diewo77/base-app/internal/config"
)

// RunMigrations applies the full SQL chain without opening a gorm session.
// Used by the --migrate-only entry point and by migration tests.
func RunMigrations(cfg *config.Config) error {
	dsn := ToURLDSN(NormalizeDSN(cfg.DatabaseDSN))
	if dsn == "" {
		return errors.New("DATABASE_DSN is empty")
	}
	return runSQLMigrations(cfg.MigrationsDir, dsn)
}

// StepDown rolls the schema back n migrations. Exposed for downgrade
// round-trip tests; the down scripts repair data (username backfill,
// activation_key truncation) before narrowing constraints.
func StepDown(cfg *config.Config, n int) error {
	dsn := ToURLDSN(NormalizeDSN(cfg.DatabaseDSN))
	m, err := migrate.New("file://"+cfg.MigrationsDir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Steps(-n); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("step down %d: %w", n, err)
	}
	return nil
}
