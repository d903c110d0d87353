package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS responses (
		key         BLOB    PRIMARY KEY,
		model       TEXT    NOT NULL,
		compression TEXT    NOT NULL,
		size        INTEGER NOT NULL,
		data        BLOB    NOT NULL,
		hits        INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_responses_model ON responses(model)`,
}

// migrate brings the schema up to schemaVersion. Statements are
// idempotent.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("cache.sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("cache.sqlite: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("cache.sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}
	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("cache.sqlite: record schema version: %w", err)
	}
	return nil
}
