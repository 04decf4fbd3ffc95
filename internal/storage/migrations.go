package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Users table
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				username TEXT UNIQUE NOT NULL,
				display_name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				created_at DATETIME NOT NULL
			);

			-- Projects table
			CREATE TABLE IF NOT EXISTS projects (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT,
				owner TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (owner) REFERENCES users(username) ON DELETE CASCADE
			);

			-- Project sharing (grantee usernames; files are never duplicated)
			CREATE TABLE IF NOT EXISTS project_shares (
				project_id TEXT NOT NULL,
				username TEXT NOT NULL,
				PRIMARY KEY (project_id, username),
				FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
			);

			-- File table: one row per (project, encoded name)
			CREATE TABLE IF NOT EXISTS files (
				project_id TEXT NOT NULL,
				key TEXT NOT NULL,
				name TEXT NOT NULL,
				content TEXT NOT NULL,
				file_type TEXT NOT NULL,
				last_modified INTEGER NOT NULL,
				modified_by TEXT,
				PRIMARY KEY (project_id, key),
				FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
			);

			-- Presence: ephemeral per (project, session)
			CREATE TABLE IF NOT EXISTS presence (
				project_id TEXT NOT NULL,
				session_id TEXT NOT NULL,
				username TEXT NOT NULL,
				viewing_file TEXT,
				last_seen INTEGER NOT NULL,
				PRIMARY KEY (project_id, session_id),
				FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner);
			CREATE INDEX IF NOT EXISTS idx_shares_username ON project_shares(username);
			CREATE INDEX IF NOT EXISTS idx_presence_last_seen ON presence(last_seen);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
