package outlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSink writes outgoing messages into a SQLite table, for deployments
// that want the audit log queryable instead of a flat file.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (and creates if needed) the database at path and
// ensures the outgoing_messages table exists.
func NewSQLiteSink(ctx context.Context, path string) (*SQLiteSink, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Basic health check + apply a few safe pragmas.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteSink{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS outgoing_messages (
  id         TEXT PRIMARY KEY,
  entity_id  TEXT NOT NULL,
  direction  TEXT NOT NULL,
  text       TEXT NOT NULL,
  created_at INTEGER NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS outgoing_messages_entity_idx ON outgoing_messages(entity_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}

func (s *SQLiteSink) Append(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outgoing_messages (id, entity_id, direction, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.EntityID, e.Direction, e.Text, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outgoing entry: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
