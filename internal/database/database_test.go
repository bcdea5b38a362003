// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Config{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFieldHashRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rows := []FieldHashRow{
		{FeedID: "feed-1", FieldName: "id", FieldHash: "hash-a"},
		{FeedID: "feed-1", FieldName: "id", FieldHash: "hash-b"},
		{FeedID: "feed-1", FieldName: "title", FieldHash: "hash-t"},
	}
	if err := db.InsertFieldHashes(ctx, rows); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Re-inserting the same rows must be a no-op, not an error.
	if err := db.InsertFieldHashes(ctx, rows); err != nil {
		t.Fatalf("duplicate insert should be benign: %v", err)
	}

	has, err := db.HasAnyFieldHash(ctx, "feed-1", "id")
	if err != nil || !has {
		t.Fatalf("expected stored id hashes, got %v, %v", has, err)
	}
	has, err = db.HasAnyFieldHash(ctx, "feed-1", "description")
	if err != nil || has {
		t.Fatalf("expected no description hashes, got %v, %v", has, err)
	}

	existing, err := db.ExistingFieldHashes(ctx, "feed-1", "id", []string{"hash-a", "hash-x"})
	if err != nil {
		t.Fatalf("existing: %v", err)
	}
	if !existing["hash-a"] || existing["hash-x"] {
		t.Errorf("unexpected existing set: %v", existing)
	}

	if err := db.DeleteFeedData(ctx, "feed-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	has, err = db.HasAnyFieldHash(ctx, "feed-1", "id")
	if err != nil || has {
		t.Fatalf("expected purged feed, got %v, %v", has, err)
	}
}

func TestDeliveryRecordLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	records := []DeliveryRecord{
		{
			ID:            "d1",
			FeedID:        "feed-1",
			MediumID:      "medium-1",
			Status:        models.StatusPendingDelivery,
			ArticleIDHash: "hash-a",
		},
		{
			ID:       "d2",
			FeedID:   "feed-1",
			MediumID: "medium-1",
			Status:   models.StatusFilteredOut,
		},
	}
	if err := db.InsertDeliveryRecords(ctx, records); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := db.GetDeliveryRecord(ctx, "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusPendingDelivery || got.MediumID != "medium-1" {
		t.Errorf("unexpected record: %+v", got)
	}

	updated, err := db.UpdateDeliveryStatus(ctx, "d1", models.StatusSent, "", "")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated {
		t.Fatal("expected pending record to update")
	}

	// A second result callback for the same job must be a no-op.
	updated, err = db.UpdateDeliveryStatus(ctx, "d1", models.StatusFailed, models.ErrorCodeThirdPartyInternal, "")
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if updated {
		t.Error("terminal record must not transition again")
	}

	got, err = db.GetDeliveryRecord(ctx, "d1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Status != models.StatusSent {
		t.Errorf("expected sent, got %s", got.Status)
	}

	if _, err := db.GetDeliveryRecord(ctx, "nope"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestCountDeliveriesInWindow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC()
	records := []DeliveryRecord{
		{ID: "old", FeedID: "f", MediumID: "m", Status: models.StatusSent, CreatedAt: base.Add(-2 * time.Hour)},
		{ID: "in1", FeedID: "f", MediumID: "m", Status: models.StatusSent, CreatedAt: base.Add(-10 * time.Minute)},
		{ID: "in2", FeedID: "f", MediumID: "m", Status: models.StatusSent, CreatedAt: base.Add(-5 * time.Minute)},
		{ID: "pend", FeedID: "f", MediumID: "m", Status: models.StatusPendingDelivery, CreatedAt: base.Add(-1 * time.Minute)},
	}
	if err := db.InsertDeliveryRecords(ctx, records); err != nil {
		t.Fatalf("insert: %v", err)
	}

	count, err := db.CountDeliveriesInWindow(ctx, "feed_id", "f", models.StatusSent, time.Hour)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 sent records in window, got %d", count)
	}

	if _, err := db.CountDeliveriesInWindow(ctx, "status", "sent", models.StatusSent, time.Hour); err == nil {
		t.Error("expected unsupported scope column to fail")
	}
}

func TestPruneDeliveryRecords(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC()
	records := []DeliveryRecord{
		{ID: "ancient", FeedID: "f", MediumID: "m", Status: models.StatusSent, CreatedAt: base.Add(-30 * 24 * time.Hour)},
		{ID: "fresh", FeedID: "f", MediumID: "m", Status: models.StatusSent, CreatedAt: base},
	}
	if err := db.InsertDeliveryRecords(ctx, records); err != nil {
		t.Fatalf("insert: %v", err)
	}

	pruned, err := db.PruneDeliveryRecords(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned record, got %d", pruned)
	}

	if _, err := db.GetDeliveryRecord(ctx, "fresh"); err != nil {
		t.Errorf("fresh record must survive pruning: %v", err)
	}
}
