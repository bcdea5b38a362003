// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

// ErrRecordNotFound marks a delivery record lookup that matched nothing.
var ErrRecordNotFound = errors.New("delivery record not found")

// DeliveryRecord is the persisted form of one ArticleDeliveryState, keyed by
// time for retention pruning.
type DeliveryRecord struct {
	ID             string
	FeedID         string
	MediumID       string
	Status         models.DeliveryStatus
	ErrorCode      models.DeliveryErrorCode
	InternalError  string
	ContentType    models.DeliveryContentType
	ParentID       string
	ArticleIDHash  string
	ExternalDetail string
	CreatedAt      time.Time
}

// InsertDeliveryRecords writes all records in one transaction. This is the
// end-of-event flush; a failure here is logged by the caller but does not
// undo provider deliveries already in flight.
func (db *DB) InsertDeliveryRecords(ctx context.Context, records []DeliveryRecord) error {
	if len(records) == 0 {
		return nil
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO delivery_records
			 (id, feed_id, medium_id, status, error_code, internal_error, content_type,
			  parent_id, article_id_hash, external_detail, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare delivery insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			createdAt := r.CreatedAt
			if createdAt.IsZero() {
				createdAt = now().UTC()
			}
			_, err := stmt.ExecContext(ctx,
				r.ID, r.FeedID, r.MediumID, string(r.Status), string(r.ErrorCode),
				r.InternalError, string(r.ContentType), r.ParentID, r.ArticleIDHash,
				r.ExternalDetail, createdAt)
			if err != nil {
				return fmt.Errorf("insert delivery record %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

// GetDeliveryRecord fetches one record by id.
func (db *DB) GetDeliveryRecord(ctx context.Context, id string) (*DeliveryRecord, error) {
	query, args, err := builder().
		Select("id", "feed_id", "medium_id", "status", "error_code", "internal_error",
			"content_type", "parent_id", "article_id_hash", "external_detail", "created_at").
		From("delivery_records").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build record query: %w", err)
	}

	var r DeliveryRecord
	var status, errorCode, contentType string
	err = db.conn.QueryRowContext(ctx, query, args...).Scan(
		&r.ID, &r.FeedID, &r.MediumID, &status, &errorCode, &r.InternalError,
		&contentType, &r.ParentID, &r.ArticleIDHash, &r.ExternalDetail, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query delivery record: %w", err)
	}

	r.Status = models.DeliveryStatus(status)
	r.ErrorCode = models.DeliveryErrorCode(errorCode)
	r.ContentType = models.DeliveryContentType(contentType)
	return &r, nil
}

// UpdateDeliveryStatus transitions a record out of pending-delivery. It
// returns false when the record is missing or already terminal, so a
// duplicate result callback is a no-op.
func (db *DB) UpdateDeliveryStatus(ctx context.Context, id string, status models.DeliveryStatus, errorCode models.DeliveryErrorCode, externalDetail string) (bool, error) {
	query, args, err := builder().
		Update("delivery_records").
		Set("status", string(status)).
		Set("error_code", string(errorCode)).
		Set("external_detail", externalDetail).
		Where(sq.Eq{"id": id, "status": string(models.StatusPendingDelivery)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build status update: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update delivery status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("read affected rows: %w", err)
	}
	return affected > 0, nil
}

// CountDeliveriesInWindow counts records with the given status for one
// scope (feed or medium) within the trailing window ending now.
func (db *DB) CountDeliveriesInWindow(ctx context.Context, scopeColumn, scopeID string, status models.DeliveryStatus, window time.Duration) (int, error) {
	if scopeColumn != "feed_id" && scopeColumn != "medium_id" {
		return 0, fmt.Errorf("unsupported scope column %q", scopeColumn)
	}

	since := now().UTC().Add(-window)
	query, args, err := builder().
		Select("COUNT(*)").
		From("delivery_records").
		Where(sq.Eq{scopeColumn: scopeID, "status": string(status)}).
		Where(sq.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build window count: %w", err)
	}

	var count int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count deliveries: %w", err)
	}
	return count, nil
}

// PruneDeliveryRecords deletes records older than the retention horizon and
// returns how many were removed.
func (db *DB) PruneDeliveryRecords(ctx context.Context, olderThan time.Duration) (int64, error) {
	horizon := now().UTC().Add(-olderThan)
	query, args, err := builder().
		Delete("delivery_records").
		Where(sq.Lt{"created_at": horizon}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build prune: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune delivery records: %w", err)
	}
	return res.RowsAffected()
}
