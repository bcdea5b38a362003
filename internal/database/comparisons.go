// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package database

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// FieldHashRow is one persisted (feed, field, hash) observation. Values are
// hashed before they reach this layer; plaintext is never stored.
type FieldHashRow struct {
	FeedID    string
	FieldName string
	FieldHash string
}

// InsertFieldHashes stores rows in one transaction. Rows that collide with
// the primary key are skipped, so concurrent writers racing on the same
// article are a benign no-op.
func (db *DB) InsertFieldHashes(ctx context.Context, rows []FieldHashRow) error {
	if len(rows) == 0 {
		return nil
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO article_field_hashes (feed_id, field_name, field_hash, is_hashed, created_at)
			 VALUES (?, ?, ?, TRUE, ?)
			 ON CONFLICT DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare field hash insert: %w", err)
		}
		defer stmt.Close()

		ts := now().UTC()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row.FeedID, row.FieldName, row.FieldHash, ts); err != nil {
				return fmt.Errorf("insert field hash for feed %s: %w", row.FeedID, err)
			}
		}
		return nil
	})
}

// HasAnyFieldHash reports whether at least one hash is stored for the field
// within the feed.
func (db *DB) HasAnyFieldHash(ctx context.Context, feedID, fieldName string) (bool, error) {
	query, args, err := builder().
		Select("1").
		From("article_field_hashes").
		Where(sq.Eq{"feed_id": feedID, "field_name": fieldName}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build field hash query: %w", err)
	}

	var one int
	err = db.conn.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query field hashes: %w", err)
	}
	return true, nil
}

// ExistingFieldHashes returns the subset of hashes already stored for the
// field within the feed.
func (db *DB) ExistingFieldHashes(ctx context.Context, feedID, fieldName string, hashes []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(hashes))
	if len(hashes) == 0 {
		return existing, nil
	}

	query, args, err := builder().
		Select("field_hash").
		From("article_field_hashes").
		Where(sq.Eq{"feed_id": feedID, "field_name": fieldName, "field_hash": hashes}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build existing hash query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing hashes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scan hash: %w", err)
		}
		existing[hash] = true
	}
	return existing, rows.Err()
}

// DeleteFeedData purges every stored hash for a removed feed.
func (db *DB) DeleteFeedData(ctx context.Context, feedID string) error {
	query, args, err := builder().
		Delete("article_field_hashes").
		Where(sq.Eq{"feed_id": feedID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build feed delete: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete feed data: %w", err)
	}
	return nil
}
