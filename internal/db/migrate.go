package db

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/diewo77/base-app/internal/config"
	"github.com/diewo77/base-app/internal/models"
)

var passwordRegex = regexp.MustCompile(`(password=)(\S+)`)

// MaskDSN hides the password part of a DSN for logging.
func MaskDSN(dsn string) string {
	masked := passwordRegex.ReplaceAllString(dsn, `${1}***`)
	if u := strings.Index(masked, "://"); u >= 0 {
		if at := strings.Index(masked, "@"); at > u {
			if colon := strings.Index(masked[u+3:], ":"); colon >= 0 && u+3+colon < at {
				masked = masked[:u+3+colon+1] + "***" + masked[at:]
			}
		}
	}
	return masked
}

// ConnectAndMigrate opens the database with a retry loop and brings the
// schema up to date. With cfg.Migrations set, the SQL migration chain in
// cfg.MigrationsDir runs via golang-migrate; otherwise AutoMigrate is used
// as a dev convenience.
func ConnectAndMigrate(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	dsn := NormalizeDSN(cfg.DatabaseDSN)
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN is empty, check the environment")
	}

	logLevel := gormlogger.Silent
	if cfg.Env == "development" {
		logLevel = gormlogger.Warn
	}
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(logLevel)}

	var conn *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		conn, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			break
		}
		log.Warn("retrying db connection", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after retries: %w", err)
	}
	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping: %w", pingErr)
	}
	log.Info("database connected", "dsn", MaskDSN(dsn))

	if cfg.Migrations {
		if err := runSQLMigrations(cfg.MigrationsDir, ToURLDSN(dsn)); err != nil {
			return nil, fmt.Errorf("sql migrations: %w", err)
		}
		log.Info("sql migrations applied", "dir", cfg.MigrationsDir)
	} else {
		if err := AutoMigrate(conn); err != nil {
			return nil, err
		}
	}

	for _, table := range []string{"users", "profiles", "permissions"} {
		if !conn.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	return conn, nil
}

// AutoMigrate creates the schema from the gorm models. Used in development
// and by tests; production deployments run the SQL chain instead, which is
// the only path that installs the profile-delete trigger.
func AutoMigrate(conn *gorm.DB) error {
	for _, m := range []interface{}{&models.User{}, &models.Profile{}, &models.Permission{}} {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// runSQLMigrations executes the linear migration chain via golang-migrate.
func runSQLMigrations(dir, dsn string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
