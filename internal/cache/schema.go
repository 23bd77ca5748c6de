package cache

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 1

func initSchema(db *sql.DB) error {
	var version int
	err := db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if version == schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Cached output is disposable, so an unknown layout is simply dropped.
	if version != 0 {
		if _, err := tx.Exec(`DROP TABLE IF EXISTS formatted`); err != nil {
			return fmt.Errorf("failed to drop outdated tables: %w", err)
		}
	}

	if err := createTables(tx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return tx.Commit()
}

func createTables(tx *sql.Tx) error {
	queries := []string{
		// Formatter output by input digest.
		// - last_used: unix seconds of the last read or write, for pruning
		`CREATE TABLE IF NOT EXISTS formatted (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            last_used INTEGER NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_formatted_last_used
            ON formatted(last_used)`,
	}

	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %q: %w", query, err)
		}
	}

	return nil
}
