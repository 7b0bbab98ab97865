package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDB is the local-development and test store. Services use positional
// $N placeholders with each parameter appearing once and in order, which
// go-sqlite3 binds ordinally, so the same query text runs on both drivers.
type SQLiteDB struct {
	DB *sql.DB
}

var _ Database = (*SQLiteDB)(nil)

// Schema mirrors migrations/001_auth.sql without the Postgres-only types.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS one_time_codes (
	contact_identifier TEXT PRIMARY KEY,
	contact_type       TEXT NOT NULL,
	code               TEXT NOT NULL,
	expires_at         TIMESTAMP NOT NULL,
	created_at         TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	token              TEXT PRIMARY KEY,
	contact_identifier TEXT NOT NULL,
	contact_type       TEXT NOT NULL,
	expires_at         TIMESTAMP NOT NULL,
	last_used_at       TIMESTAMP NOT NULL,
	created_at         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_contact ON sessions (contact_identifier);

CREATE TABLE IF NOT EXISTS chat_directory (
	contact_identifier TEXT PRIMARY KEY,
	chat_id            INTEGER NOT NULL,
	user_id            INTEGER,
	username           TEXT NOT NULL DEFAULT '',
	first_name         TEXT NOT NULL DEFAULT '',
	last_name          TEXT NOT NULL DEFAULT '',
	updated_at         TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS questionnaires (
	id                 TEXT PRIMARY KEY,
	contact_identifier TEXT NOT NULL,
	contact_type       TEXT NOT NULL,
	payload            TEXT NOT NULL,
	language           TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMP NOT NULL,
	updated_at         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_questionnaires_contact ON questionnaires (contact_identifier);
`

// NewSQLiteConnection opens (and bootstraps) a SQLite store. Tests should
// point this at a file under t.TempDir(); ":memory:" gives every pooled
// connection its own empty database.
func NewSQLiteConnection(path string) (*SQLiteDB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err = db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply sqlite pragma %q: %w", pragma, err)
		}
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err = db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to bootstrap sqlite schema: %w", err)
	}

	return &SQLiteDB{DB: db}, nil
}

// Close closes the underlying connection.
func (db *SQLiteDB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

func (db *SQLiteDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	if db == nil || db.DB == nil {
		return nil, fmt.Errorf("sqlite database is not initialized")
	}
	rows, err := db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return SQLRows{Rows: rows}, nil
}

func (db *SQLiteDB) QueryRow(ctx context.Context, query string, args ...any) Row {
	if db == nil || db.DB == nil {
		return SQLRow{}
	}
	return SQLRow{Row: db.DB.QueryRowContext(ctx, query, args...)}
}

func (db *SQLiteDB) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	if db == nil || db.DB == nil {
		return nil, fmt.Errorf("sqlite database is not initialized")
	}
	res, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return SQLResult{Result: res}, nil
}

func (db *SQLiteDB) Begin(ctx context.Context) (Tx, error) {
	if db == nil || db.DB == nil {
		return nil, fmt.Errorf("sqlite database is not initialized")
	}
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return SQLTx{Tx: tx}, nil
}

func (db *SQLiteDB) IsReady() bool {
	return db != nil && db.DB != nil
}

// HealthCheck performs a simple connectivity check.
func (db *SQLiteDB) HealthCheck(ctx context.Context) error {
	if db == nil || db.DB == nil {
		return fmt.Errorf("sqlite database is not initialized")
	}
	return db.DB.PingContext(ctx)
}
