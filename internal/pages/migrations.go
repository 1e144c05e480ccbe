package pages

import (
	"database/sql"
	"fmt"
	"time"
)

// migration is one versioned schema change.
type migration struct {
	version     int
	description string
	up          func(*sql.Tx) error
}

var migrations = []migration{
	{
		version:     1,
		description: "Create schema_version table",
		up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS schema_version (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					version INTEGER NOT NULL UNIQUE,
					description TEXT NOT NULL,
					applied_at DATETIME NOT NULL
				)
			`)
			return err
		},
	},
	{
		version:     2,
		description: "Create configurations table",
		up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE configurations (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					document BLOB NOT NULL,
					page_count INTEGER NOT NULL DEFAULT 0,
					element_count INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME
				);

				CREATE INDEX idx_configurations_name ON configurations(name);
			`)
			return err
		},
	},
	{
		version:     3,
		description: "Create run_history table",
		up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE run_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					configuration TEXT NOT NULL,
					workflow TEXT NOT NULL,
					started_at DATETIME NOT NULL,
					finished_at DATETIME,
					succeeded BOOLEAN NOT NULL DEFAULT 0,
					steps_completed INTEGER NOT NULL DEFAULT 0,
					failed_step TEXT,
					failure_reason TEXT
				);

				CREATE INDEX idx_run_history_started ON run_history(started_at);
				CREATE INDEX idx_run_history_configuration ON run_history(configuration);
			`)
			return err
		},
	},
}

// runMigrations applies all pending migrations in order.
func (s *Store) runMigrations() error {
	current, err := s.currentVersion()
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := s.ExecTx(func(tx *sql.Tx) error {
			if err := m.up(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			_, err := tx.Exec(`
				INSERT INTO schema_version (version, description, applied_at)
				VALUES (?, ?, ?)
			`, m.version, m.description, time.Now())
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) currentVersion() (int, error) {
	var tableExists bool
	err := s.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableExists)
	if err != nil {
		return 0, err
	}
	if !tableExists {
		return 0, nil
	}

	var version int
	err = s.conn.QueryRow(`
		SELECT COALESCE(MAX(version), 0) FROM schema_version
	`).Scan(&version)
	return version, err
}
