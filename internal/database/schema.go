// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package database

import (
	"context"
	"fmt"
)

// schemaStatements create the pipeline tables. Statements are idempotent so
// startup can always run them.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS article_field_hashes (
		feed_id    VARCHAR NOT NULL,
		field_name VARCHAR NOT NULL,
		field_hash VARCHAR NOT NULL,
		is_hashed  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
		PRIMARY KEY (feed_id, field_name, field_hash)
	)`,

	`CREATE TABLE IF NOT EXISTS delivery_records (
		id              VARCHAR PRIMARY KEY,
		feed_id         VARCHAR NOT NULL,
		medium_id       VARCHAR NOT NULL,
		status          VARCHAR NOT NULL,
		error_code      VARCHAR,
		internal_error  VARCHAR,
		content_type    VARCHAR,
		parent_id       VARCHAR,
		article_id_hash VARCHAR,
		external_detail VARCHAR,
		created_at      TIMESTAMP NOT NULL
	)`,

	// Rate-limit window scans are keyed by scope, status, and time.
	`CREATE INDEX IF NOT EXISTS idx_delivery_feed_window
		ON delivery_records (feed_id, status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_medium_window
		ON delivery_records (medium_id, status, created_at)`,
	// Retention pruning deletes by time alone.
	`CREATE INDEX IF NOT EXISTS idx_delivery_created
		ON delivery_records (created_at)`,
}

func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
