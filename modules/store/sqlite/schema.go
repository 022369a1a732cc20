package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application. Timestamps are
// RFC 3339 UTC strings, so string comparison orders them correctly.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS seen_updates (
		update_id  INTEGER PRIMARY KEY,
		seen_at    TEXT NOT NULL,
		expires_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_seen_expires ON seen_updates(expires_at)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		conversation TEXT PRIMARY KEY,
		chat_type    TEXT    NOT NULL DEFAULT '',
		first_seen   TEXT    NOT NULL,
		last_seen    TEXT    NOT NULL,
		messages     INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_last_seen ON sessions(last_seen)`,

	`CREATE TABLE IF NOT EXISTS deliveries (
		message_id TEXT PRIMARY KEY,
		outcome    INTEGER NOT NULL DEFAULT 0,
		parts_done INTEGER NOT NULL DEFAULT 0,
		reason     TEXT    NOT NULL DEFAULT '',
		updated_at TEXT    NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_deliveries_updated ON deliveries(updated_at)`,
}

// migrate creates or updates the database schema to the latest version.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}
	return nil
}
