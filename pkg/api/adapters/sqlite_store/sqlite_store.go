package sqlite_store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eser/ajan/logfx"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	image_dir TEXT NOT NULL DEFAULT '',
	bucket TEXT NOT NULL DEFAULT '',
	spreadsheet_id TEXT NOT NULL DEFAULT '',
	image_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	query_asset TEXT NOT NULL,
	matched_asset TEXT NOT NULL,
	score REAL NOT NULL,
	exported INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_results_run_id ON results (run_id);
`

type Store struct {
	Config *Config

	logger *logfx.Logger
	db     *sql.DB
}

func New(config *Config, logger *logfx.Logger) *Store {
	return &Store{Config: config, logger: logger}
}

func (s *Store) Init(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.Config.Path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database %s: %w", s.Config.Path, err)
	}

	// SQLite allows a single writer; one pooled connection also keeps
	// ":memory:" databases from being split across connections.
	db.SetMaxOpenConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping sqlite database %s: %w", s.Config.Path, err)
	}

	s.db = db

	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "[SqliteStore] SQLite store initialized", "module", "sqlite_store", "path", s.Config.Path)

	return nil
}

// EnsureSchema provisions the ledger tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to ensure sqlite schema: %w", err)
	}

	return nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}
