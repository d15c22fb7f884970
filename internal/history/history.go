// Package history keeps a SQLite journal of bundle runs so past output can
// be listed without rescanning the output directory.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/bindrune/internal/bundler"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source      TEXT NOT NULL,
	bundle_dir  TEXT NOT NULL,
	links       INTEGER NOT NULL DEFAULT 0,
	resolved    INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	no_links    INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Run is one recorded bundle invocation.
type Run struct {
	ID         int64
	Source     string
	BundleDir  string
	Links      int
	Resolved   int
	Failed     int
	NoLinks    bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// DB wraps a sql.DB with journal operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the journal database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record appends one pipeline result to the journal.
func (db *DB) Record(res *bundler.Result) error {
	_, err := db.conn.Exec(`
		INSERT INTO runs (source, bundle_dir, links, resolved, failed, no_links, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, res.Source, res.BundleDir, res.Links, res.Resolved, res.Failed, res.NoLinks,
		res.StartedAt, res.FinishedAt)
	if err != nil {
		return fmt.Errorf("history: record run: %w", err)
	}
	return nil
}

// List returns up to limit runs, most recent first.
func (db *DB) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, source, bundle_dir, links, resolved, failed, no_links, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.BundleDir, &r.Links, &r.Resolved,
			&r.Failed, &r.NoLinks, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate runs: %w", err)
	}
	return out, nil
}
