// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package database wraps the DuckDB connection behind typed accessors for
// the two relational concerns of the pipeline: comparison field hashes and
// per-article delivery records.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/synzen/MonitoRSS-sub001/internal/logging"
)

// Config holds database tuning options.
type Config struct {
	// Path is the DuckDB file location. ":memory:" or empty opens an
	// in-memory database (used by tests).
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB's memory usage, e.g. "1GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB worker thread count. 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path:      "/data/monitorss.duckdb",
		MaxMemory: "1GB",
		Threads:   0,
	}
}

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database and initializes the schema.
func New(cfg Config) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if cfg.MaxMemory == "" {
		cfg.MaxMemory = "1GB"
	}

	connStr := ""
	if cfg.Path != "" && cfg.Path != ":memory:" {
		// Ensure the parent directory exists before DuckDB opens the file.
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dir, err)
			}
		}
		connStr = fmt.Sprintf("%s?threads=%d&max_memory=%s", cfg.Path, threads, cfg.MaxMemory)
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Msg("database ready")
	return db, nil
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// builder returns the squirrel statement builder configured for DuckDB's
// positional placeholders.
func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.Error().Err(rbErr).Msg("transaction rollback failed")
		}
		return err
	}

	return tx.Commit()
}

// now is the single clock source for record timestamps; tests may override.
var now = time.Now
