package repository

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies the chunk and profile schema. The SQL is embedded, so
// the server and the ingest command work from any directory.
func RunMigrations(databaseURL string) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err == nil || errors.Is(err, migrate.ErrNoChange) {
		return nil
	}

	var dirty migrate.ErrDirty
	if !errors.As(err, &dirty) {
		return fmt.Errorf("run migrations: %w", err)
	}

	// A half-applied step is rolled back to the last clean version and retried once.
	clean := dirty.Version - 1
	if clean < 0 {
		clean = -1
	}
	if err := m.Force(clean); err != nil {
		return fmt.Errorf("force clean migration version %d: %w", clean, err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rerun migrations after dirty version %d: %w", dirty.Version, err)
	}
	return nil
}
