package database

import (
	"embed"
	"errors"
	"fmt"
	"net/url"

	"minisocial/internal/config"
	"minisocial/internal/middleware"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// BuildPostgresURL renders cfg as a postgres:// URL for golang-migrate.
func BuildPostgresURL(cfg *config.Config) string {
	sslmode := cfg.DBSSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%s", cfg.DBHost, cfg.DBPort),
		User:   url.UserPassword(cfg.DBUser, cfg.DBPassword),
		Path:   cfg.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

// NewMigrator returns a migrator over the embedded SQL migrations.
func NewMigrator(cfg *config.Config) (*migrate.Migrate, error) {
	if cfg.DBDriver == "sqlite" {
		return nil, errors.New("SQL migrations target postgres; sqlite schemas are created by AutoMigrate")
	}
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, BuildPostgresURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return m, nil
}

// MigrateUp applies all pending migrations.
func MigrateUp(cfg *config.Config) error {
	m, err := NewMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			middleware.Logger.Info("Database schema already up to date")
			return nil
		}
		return fmt.Errorf("migrate up failed: %w", err)
	}
	version, _, _ := m.Version()
	middleware.Logger.Info("Migrations applied", "version", version)
	return nil
}

// MigrateDown rolls back the given number of migrations; steps <= 0 rolls
// back everything.
func MigrateDown(cfg *config.Config, steps int) error {
	m, err := NewMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down failed: %w", err)
	}
	return nil
}
