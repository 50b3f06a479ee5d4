package migrate

import (
	"database/sql"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Dialects understood by FSProvider.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

var migrationFile = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

// FSProvider loads migrations named NNN_name.up.sql / NNN_name.down.sql
// from a filesystem, typically an embed.FS.
type FSProvider struct {
	fsys           fs.FS
	dir            string
	migrationTable string
	dialect        string
}

// NewFSProvider creates a provider reading dir inside fsys.
func NewFSProvider(fsys fs.FS, dir, migrationTable, dialect string) *FSProvider {
	if migrationTable == "" {
		migrationTable = "schema_migrations"
	}
	if dialect == "" {
		dialect = DialectSQLite
	}
	return &FSProvider{
		fsys:           fsys,
		dir:            dir,
		migrationTable: migrationTable,
		dialect:        dialect,
	}
}

// GetMigrations loads every migration pair under dir
func (p *FSProvider) GetMigrations() ([]Migration, error) {
	byVersion := make(map[int]*Migration)

	entries, err := fs.ReadDir(p.fsys, p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory %s: %w", p.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationFile.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("invalid version number in file %s: %w", entry.Name(), err)
		}

		content, err := fs.ReadFile(p.fsys, p.dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: strings.ReplaceAll(matches[2], "_", " ")}
			byVersion[version] = m
		}
		if matches[3] == "up" {
			m.Up = string(content)
		} else {
			m.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// CreateMigrationTable creates the migration tracking table
func (p *FSProvider) CreateMigrationTable(db *sql.DB) error {
	appliedType := "DATETIME"
	if p.dialect == DialectPostgres {
		appliedType = "TIMESTAMP"
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version INTEGER PRIMARY KEY,
		applied_at %s DEFAULT CURRENT_TIMESTAMP
	)`, p.migrationTable, appliedType)

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

// GetCurrentVersion returns the highest applied migration version
func (p *FSProvider) GetCurrentVersion(db *sql.DB) (int, error) {
	var version int
	query := fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", p.migrationTable)
	if err := db.QueryRow(query).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

// SetVersion records version as current, discarding any newer records
// left behind by a rollback.
func (p *FSProvider) SetVersion(db DB, version int) error {
	placeholder := "?"
	if p.dialect == DialectPostgres {
		placeholder = "$1"
	}

	del := fmt.Sprintf("DELETE FROM %s WHERE version > %s", p.migrationTable, placeholder)
	if _, err := db.Exec(del, version); err != nil {
		return fmt.Errorf("failed to set version: %w", err)
	}
	if version == 0 {
		return nil
	}

	var insert string
	if p.dialect == DialectPostgres {
		insert = fmt.Sprintf(`INSERT INTO %s (version, applied_at) VALUES ($1, CURRENT_TIMESTAMP)
			ON CONFLICT (version) DO UPDATE SET applied_at = CURRENT_TIMESTAMP`, p.migrationTable)
	} else {
		insert = fmt.Sprintf(`INSERT OR REPLACE INTO %s (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)`, p.migrationTable)
	}
	if _, err := db.Exec(insert, version); err != nil {
		return fmt.Errorf("failed to set version: %w", err)
	}
	return nil
}
