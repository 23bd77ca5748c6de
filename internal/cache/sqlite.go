package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a Cache persisted in a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Connection parameters in the DSN apply to every pooled connection.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (c *SQLite) Get(key string) (string, bool, error) {
	var value string
	err := c.db.QueryRow(
		"SELECT value FROM formatted WHERE key = ?",
		key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query cache: %w", err)
	}

	if _, err := c.db.Exec(
		"UPDATE formatted SET last_used = ? WHERE key = ?",
		time.Now().Unix(), key,
	); err != nil {
		return "", false, fmt.Errorf("failed to touch cache entry: %w", err)
	}

	return value, true, nil
}

func (c *SQLite) Put(key, value string) error {
	_, err := c.db.Exec(`
        INSERT INTO formatted (key, value, last_used) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, last_used = excluded.last_used
    `, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

func (c *SQLite) Prune(before time.Time) (int, error) {
	res, err := c.db.Exec("DELETE FROM formatted WHERE last_used < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned entries: %w", err)
	}
	return int(n), nil
}

func (c *SQLite) Close() error {
	return c.db.Close()
}
