// Package migrate applies versioned SQL schema migrations.
package migrate

import (
	"database/sql"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// DB represents either a database connection or transaction
type DB interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// MigrationProvider defines how migrations are loaded and tracked
type MigrationProvider interface {
	GetMigrations() ([]Migration, error)
	GetCurrentVersion(db *sql.DB) (int, error)
	SetVersion(db DB, version int) error
	CreateMigrationTable(db *sql.DB) error
}

// Migrator handles the execution of migrations
type Migrator struct {
	db       *sql.DB
	provider MigrationProvider
	logger   *zap.SugaredLogger
}

// NewMigrator creates a new migrator instance
func NewMigrator(db *sql.DB, provider MigrationProvider, logger *zap.SugaredLogger) *Migrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Migrator{
		db:       db,
		provider: provider,
		logger:   logger,
	}
}

// MigrateUp runs all pending migrations up to the latest version
func (m *Migrator) MigrateUp() error {
	return m.MigrateTo(-1)
}

// MigrateTo runs migrations up or down to reach targetVersion. -1 means
// the latest available version.
func (m *Migrator) MigrateTo(targetVersion int) error {
	current, err := m.Version()
	if err != nil {
		return err
	}

	migrations, err := m.sortedMigrations()
	if err != nil {
		return err
	}

	if targetVersion == -1 {
		targetVersion = 0
		if len(migrations) > 0 {
			targetVersion = migrations[len(migrations)-1].Version
		}
	}

	if targetVersion < current {
		return m.MigrateDown(targetVersion)
	}

	for _, migration := range migrations {
		if migration.Version > current && migration.Version <= targetVersion {
			if err := m.execute(migration, true); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
			}
		}
	}
	return nil
}

// MigrateDown reverts migrations until targetVersion is current
func (m *Migrator) MigrateDown(targetVersion int) error {
	current, err := m.Version()
	if err != nil {
		return err
	}
	if targetVersion >= current {
		return fmt.Errorf("target version %d must be less than current version %d", targetVersion, current)
	}

	migrations, err := m.sortedMigrations()
	if err != nil {
		return err
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if migration.Version > targetVersion && migration.Version <= current {
			if err := m.execute(migration, false); err != nil {
				return fmt.Errorf("failed to roll back migration %d: %w", migration.Version, err)
			}
		}
	}
	return nil
}

// Version returns the current schema version, creating the tracking table
// if needed.
func (m *Migrator) Version() (int, error) {
	if err := m.provider.CreateMigrationTable(m.db); err != nil {
		return 0, fmt.Errorf("failed to create migration table: %w", err)
	}
	v, err := m.provider.GetCurrentVersion(m.db)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return v, nil
}

// Pending returns migrations newer than the current version
func (m *Migrator) Pending() ([]Migration, error) {
	current, err := m.Version()
	if err != nil {
		return nil, err
	}
	migrations, err := m.sortedMigrations()
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, migration := range migrations {
		if migration.Version > current {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

func (m *Migrator) sortedMigrations() ([]Migration, error) {
	migrations, err := m.provider.GetMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to get migrations: %w", err)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// execute runs one migration and records the resulting version in the
// same transaction.
func (m *Migrator) execute(migration Migration, up bool) error {
	stmt, direction, newVersion := migration.Up, "up", migration.Version
	if !up {
		stmt, direction, newVersion = migration.Down, "down", migration.Version-1
	}
	if stmt == "" {
		return fmt.Errorf("migration %d has no %s SQL", migration.Version, direction)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if err := m.provider.SetVersion(tx, newVersion); err != nil {
		return fmt.Errorf("failed to update migration version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	m.logger.Infow("applied migration", "version", migration.Version, "name", migration.Name, "direction", direction)
	return nil
}
