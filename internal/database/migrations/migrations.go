package migrations

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Migration represents a single schema version. Statements run inside
// one transaction together with the version bookkeeping.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// registry holds every known migration, ordered by version.
var registry = []Migration{
	{
		Version: 1,
		Name:    "create_records",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS records (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				identity      TEXT NOT NULL UNIQUE,
				title         TEXT NOT NULL,
				link          TEXT NOT NULL,
				summary       TEXT,
				published_at  DATETIME,
				raw_payload   BLOB,
				first_seen_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_records_first_seen_at
				ON records(first_seen_at)`,
		},
	},
}

// Run applies all pending migrations in order.
func Run(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, migration := range registry {
		if applied[migration.Version] {
			log.Debug().
				Int("version", migration.Version).
				Msg("Migration already applied, skipping")
			continue
		}

		if err := apply(db, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w",
				migration.Version, migration.Name, err)
		}

		log.Info().
			Int("version", migration.Version).
			Str("name", migration.Name).
			Msg("Migration applied")
	}

	return nil
}

func apply(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range migration.Statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}

	if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)",
		migration.Version, migration.Name); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
