package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"qrgen/internal/platform/config"
)

const memoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS generation_events (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	outcome TEXT NOT NULL,
	input_length INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	error TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generation_events_created_at ON generation_events(created_at);
`

// DiagnosticsDB wraps the sqlite database holding generation events.
type DiagnosticsDB struct {
	DB *sql.DB
}

// OpenDiagnostics opens (or creates) the diagnostics database and applies
// its schema. The default path ":memory:" keeps events for the life of the
// process only.
func OpenDiagnostics(cfg config.DiagnosticsConfig) (*DiagnosticsDB, error) {
	path := cfg.DatabasePath
	if path == "" {
		path = memoryPath
	}

	dsn := path
	if path != memoryPath {
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if path == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		maxConns := cfg.MaxConnections
		if maxConns < 1 {
			maxConns = 1
		}
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply diagnostics schema: %w", err)
	}

	return &DiagnosticsDB{DB: db}, nil
}

func (d *DiagnosticsDB) Close() error {
	return d.DB.Close()
}
