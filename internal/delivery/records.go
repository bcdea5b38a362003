// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/synzen/MonitoRSS-sub001/internal/database"
	"github.com/synzen/MonitoRSS-sub001/internal/logging"
	"github.com/synzen/MonitoRSS-sub001/internal/metrics"
	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

// RecordStore persists delivery states.
type RecordStore interface {
	FlushStates(ctx context.Context, feedID string, states []models.ArticleDeliveryState) error
}

// DatabaseRecordStore writes states to the relational store.
type DatabaseRecordStore struct {
	db *database.DB
}

// NewDatabaseRecordStore returns a record store over db.
func NewDatabaseRecordStore(db *database.DB) *DatabaseRecordStore {
	return &DatabaseRecordStore{db: db}
}

// FlushStates inserts all states in one transaction.
func (s *DatabaseRecordStore) FlushStates(ctx context.Context, feedID string, states []models.ArticleDeliveryState) error {
	records := make([]database.DeliveryRecord, 0, len(states))
	for i := range states {
		state := &states[i]
		records = append(records, database.DeliveryRecord{
			ID:             state.ID,
			FeedID:         feedID,
			MediumID:       state.MediumID,
			Status:         state.Status,
			ErrorCode:      state.ErrorCode,
			InternalError:  state.InternalError,
			ContentType:    state.ContentType,
			ParentID:       state.ParentID,
			ArticleIDHash:  state.ArticleIDHash,
			ExternalDetail: state.ExternalDetail,
			CreatedAt:      state.CreatedAt,
		})
	}
	return s.db.InsertDeliveryRecords(ctx, records)
}

// PruneStore deletes delivery records past the retention horizon. Satisfied
// by *database.DB.
type PruneStore interface {
	PruneDeliveryRecords(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Pruner is a supervised service that periodically removes delivery records
// older than the retention horizon.
type Pruner struct {
	store     PruneStore
	interval  time.Duration
	retention time.Duration
}

// NewPruner returns a pruner running every interval, keeping retention worth
// of records.
func NewPruner(store PruneStore, interval, retention time.Duration) *Pruner {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 14 * 24 * time.Hour
	}
	return &Pruner{store: store, interval: interval, retention: retention}
}

// Serve runs the pruning loop until ctx is cancelled. Implements
// suture.Service.
func (p *Pruner) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pruned, err := p.store.PruneDeliveryRecords(ctx, p.retention)
			if err != nil {
				logger := logging.Ctx(ctx)
				logger.Error().Err(err).Msg("delivery record pruning failed")
				continue
			}
			if pruned > 0 {
				metrics.RecordsPrunedTotal.Add(float64(pruned))
				logger := logging.Ctx(ctx)
				logger.Info().Int64("pruned", pruned).Msg("pruned delivery records")
			}
		}
	}
}

func (p *Pruner) String() string {
	return fmt.Sprintf("delivery-pruner(every %s, keep %s)", p.interval, p.retention)
}
