// Package sqlite is the default post store, backed by a local SQLite file.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/thinkscotty/blogzin/internal/database"
)

type DB struct {
	conn *sql.DB
	path string
	opts database.Options
}

var _ database.Store = (*DB)(nil)

func New(path string, opts database.Options) (*DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(2)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{conn: conn, path: path, opts: opts.WithDefaults()}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// SizeBytes returns the file size of the database.
func (db *DB) SizeBytes() (int64, error) {
	info, err := os.Stat(db.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (db *DB) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id            TEXT PRIMARY KEY,
			title         TEXT NOT NULL,
			content       TEXT NOT NULL,
			original_text TEXT NOT NULL,
			source        TEXT NOT NULL,
			category      TEXT,
			dedup_key     TEXT NOT NULL UNIQUE,
			created_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_category ON posts(category)`,
		`CREATE TABLE IF NOT EXISTS generation_log (
			id            TEXT PRIMARY KEY,
			source_id     TEXT    NOT NULL DEFAULT '',
			ai_provider   TEXT    NOT NULL DEFAULT '',
			ai_model      TEXT    NOT NULL DEFAULT '',
			tokens_used   INTEGER NOT NULL DEFAULT 0,
			outcome       TEXT    NOT NULL,
			error_kind    TEXT    NOT NULL DEFAULT '',
			error_message TEXT    NOT NULL DEFAULT '',
			duration_ms   INTEGER NOT NULL DEFAULT 0,
			post_id       TEXT,
			created_at    TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_generation_log_created_at ON generation_log(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w\nstatement: %s", err, stmt)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
