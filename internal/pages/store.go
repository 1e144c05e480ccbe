package pages

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists page configurations and workflow run history in SQLite.
type Store struct {
	conn *sql.DB
	path string
}

// OpenStore opens or creates the SQLite database at the given path and
// applies pending migrations.
func OpenStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite works best with a single connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	store := &Store{conn: conn, path: dbPath}
	if err := store.runMigrations(); err != nil {
		conn.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// ExecTx executes a function within a transaction.
func (s *Store) ExecTx(fn func(*sql.Tx) error) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// SaveConfiguration validates and upserts a configuration under its name.
// The whole document replaces any prior revision in one transaction; an
// invalid configuration never reaches the database.
func (s *Store) SaveConfiguration(c *PageConfiguration) error {
	if err := ValidateConfiguration(c); err != nil {
		return err
	}

	document, err := MarshalConfiguration(c)
	if err != nil {
		return err
	}

	return s.ExecTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO configurations (name, document, page_count, element_count, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				document = excluded.document,
				page_count = excluded.page_count,
				element_count = excluded.element_count,
				updated_at = excluded.updated_at
		`, c.Name, document, len(c.Pages), len(c.Elements), time.Now())
		if err != nil {
			return fmt.Errorf("failed to save configuration %q: %w", c.Name, err)
		}
		return nil
	})
}

// LoadConfiguration reads a configuration by name and validates it.
func (s *Store) LoadConfiguration(name string) (*PageConfiguration, error) {
	var document []byte
	err := s.conn.QueryRow(`
		SELECT document FROM configurations WHERE name = ?
	`, name).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("configuration %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration %q: %w", name, err)
	}

	config, err := UnmarshalConfiguration(document)
	if err != nil {
		return nil, err
	}
	if err := ValidateConfiguration(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ListConfigurations returns the stored configuration names, newest first.
func (s *Store) ListConfigurations() ([]string, error) {
	rows, err := s.conn.Query(`
		SELECT name FROM configurations ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteConfiguration removes a configuration by name.
func (s *Store) DeleteConfiguration(name string) error {
	result, err := s.conn.Exec(`DELETE FROM configurations WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete configuration %q: %w", name, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("configuration %q not found", name)
	}
	return nil
}

// RunRecord is one persisted workflow execution.
type RunRecord struct {
	ID             int64
	Configuration  string
	Workflow       string
	StartedAt      time.Time
	FinishedAt     time.Time
	Succeeded      bool
	StepsCompleted int
	FailedStep     string
	FailureReason  string
}

// RecordRun appends one workflow execution to the run history.
func (s *Store) RecordRun(r RunRecord) (int64, error) {
	var id int64
	err := s.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO run_history (
				configuration, workflow, started_at, finished_at,
				succeeded, steps_completed, failed_step, failure_reason
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, r.Configuration, r.Workflow, r.StartedAt, r.FinishedAt,
			r.Succeeded, r.StepsCompleted, r.FailedStep, r.FailureReason)
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		id, err = result.LastInsertId()
		return err
	})
	return id, err
}

// RecentRuns returns the most recent workflow executions, newest first.
func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	rows, err := s.conn.Query(`
		SELECT id, configuration, workflow, started_at, finished_at,
		       succeeded, steps_completed, failed_step, failure_reason
		FROM run_history
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Configuration, &r.Workflow, &r.StartedAt,
			&r.FinishedAt, &r.Succeeded, &r.StepsCompleted, &r.FailedStep, &r.FailureReason); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
