package sqlite

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/aussiebroadwan/searchlab/internal/auth/store/drivers/sqlite/migrations"
)

// ApplyMigrations brings the schema up to the newest embedded migration.
// Running it against an up to date database is a no-op.
func (m *Store) ApplyMigrations() error {
	instance, err := m.migrator()
	if err != nil {
		return err
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version. A database that has
// never been migrated returns version 0.
func (m *Store) SchemaVersion() (version uint, dirty bool, err error) {
	instance, err := m.migrator()
	if err != nil {
		return 0, false, err
	}

	version, dirty, err = instance.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// migrator wires the embedded migrations to this store's connection. The
// driver shares m.db, so the instance is never closed here.
func (m *Store) migrator() (*migrate.Migrate, error) {
	// 1. SQLite database driver over the existing handle
	driver, err := sqlite.WithInstance(m.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	// 2. Embedded filesystem source
	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	// 3. Bind them together
	instance, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("migrator: %w", err)
	}
	return instance, nil
}
