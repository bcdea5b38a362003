// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package comparisons decides article novelty. It persists hashed article
// identities and comparison-field values per feed and classifies incoming
// articles as new or seen.
package comparisons

import (
	"context"
	"fmt"

	"github.com/synzen/MonitoRSS-sub001/internal/articles"
	"github.com/synzen/MonitoRSS-sub001/internal/database"
	"github.com/synzen/MonitoRSS-sub001/internal/logging"
	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

// idFieldName is the reserved field name under which article identity
// hashes are stored.
const idFieldName = "id"

// HashStore is the persistence surface the comparison store needs.
// Satisfied by *database.DB.
type HashStore interface {
	InsertFieldHashes(ctx context.Context, rows []database.FieldHashRow) error
	HasAnyFieldHash(ctx context.Context, feedID, fieldName string) (bool, error)
	ExistingFieldHashes(ctx context.Context, feedID, fieldName string, hashes []string) (map[string]bool, error)
	DeleteFeedData(ctx context.Context, feedID string) error
}

// StoreOptions controls what StoreArticles persists.
type StoreOptions struct {
	// ComparisonFields are the field names whose hashed values should be
	// stored alongside identity hashes.
	ComparisonFields []string

	// SkipIDStorage suppresses identity-hash storage, for backfilling
	// comparison values of already-seen articles.
	SkipIDStorage bool
}

// Store classifies and records articles for one feed.
type Store struct {
	db HashStore
}

// NewStore returns a comparison store backed by db.
func NewStore(db HashStore) *Store {
	return &Store{db: db}
}

// HasPriorArticles reports whether the feed has ever stored an article.
func (s *Store) HasPriorArticles(ctx context.Context, feedID string) (bool, error) {
	return s.db.HasAnyFieldHash(ctx, feedID, idFieldName)
}

// FilterNew returns the articles whose identity hash has not been stored
// for the feed, preserving input order.
func (s *Store) FilterNew(ctx context.Context, feedID string, list []*models.Article) ([]*models.Article, error) {
	if len(list) == 0 {
		return nil, nil
	}

	hashes := make([]string, 0, len(list))
	for _, a := range list {
		hashes = append(hashes, a.IDHash)
	}

	existing, err := s.db.ExistingFieldHashes(ctx, feedID, idFieldName, hashes)
	if err != nil {
		return nil, fmt.Errorf("look up stored identities: %w", err)
	}

	fresh := make([]*models.Article, 0, len(list))
	for _, a := range list {
		if !existing[a.IDHash] {
			fresh = append(fresh, a)
		}
	}
	return fresh, nil
}

// AreComparisonsStored reports, per field, whether at least one value has
// been stored. A comparison field only starts gating delivery once a value
// exists for it; otherwise every article would appear changed on the
// field's first use.
func (s *Store) AreComparisonsStored(ctx context.Context, feedID string, fields []string) (map[string]bool, error) {
	stored := make(map[string]bool, len(fields))
	for _, field := range fields {
		has, err := s.db.HasAnyFieldHash(ctx, feedID, field)
		if err != nil {
			return nil, fmt.Errorf("check stored comparison %q: %w", field, err)
		}
		stored[field] = has
	}
	return stored, nil
}

// FieldsSeenBefore reports whether any of the named fields' current values
// on the article have been stored for the feed.
func (s *Store) FieldsSeenBefore(ctx context.Context, feedID string, article *models.Article, fields []string) (bool, error) {
	for _, field := range fields {
		value, ok := article.Field(field)
		if !ok {
			continue
		}
		hash := articles.HashValue(value)
		existing, err := s.db.ExistingFieldHashes(ctx, feedID, field, []string{hash})
		if err != nil {
			return false, fmt.Errorf("look up comparison %q: %w", field, err)
		}
		if existing[hash] {
			return true, nil
		}
	}
	return false, nil
}

// StoreArticles persists identity hashes and comparison-field hashes for
// the given articles in one transaction. Unique-constraint races with
// concurrent writers are benign no-ops. Values are hashed before storage;
// plaintext never reaches the database.
func (s *Store) StoreArticles(ctx context.Context, feedID string, list []*models.Article, opts StoreOptions) error {
	var rows []database.FieldHashRow

	if !opts.SkipIDStorage {
		for _, a := range list {
			rows = append(rows, database.FieldHashRow{
				FeedID:    feedID,
				FieldName: idFieldName,
				FieldHash: a.IDHash,
			})
		}
	}

	for _, field := range opts.ComparisonFields {
		if field == idFieldName {
			continue
		}
		for _, a := range list {
			value, ok := a.Field(field)
			if !ok {
				continue
			}
			rows = append(rows, database.FieldHashRow{
				FeedID:    feedID,
				FieldName: field,
				FieldHash: articles.HashValue(value),
			})
		}
	}

	return s.db.InsertFieldHashes(ctx, rows)
}

// DeleteAll purges every stored hash for a removed feed.
func (s *Store) DeleteAll(ctx context.Context, feedID string) error {
	return s.db.DeleteFeedData(ctx, feedID)
}

// SelectArticlesForDelivery classifies the extracted articles of one event
// and returns those that should be delivered, in feed order:
//
//   - On a feed's first sight (no stored identities) everything is stored
//     and nothing is delivered, so a new feed does not flood its mediums.
//   - An unseen article is delivered unless a gating blocking-comparison
//     field carries a value that was seen before.
//   - A seen article is re-delivered when a gating passing-comparison field
//     carries a value that was never seen before.
//
// All current identity and comparison hashes are stored afterwards, which
// also backfills newly-introduced comparison fields so they gate from the
// next event onward.
func (s *Store) SelectArticlesForDelivery(ctx context.Context, feed *models.DeliveryFeed, list []*models.Article) ([]*models.Article, error) {
	if len(list) == 0 {
		return nil, nil
	}

	comparisonFields := append(append([]string{}, feed.BlockingComparisons...), feed.PassingComparisons...)

	prior, err := s.HasPriorArticles(ctx, feed.ID)
	if err != nil {
		return nil, fmt.Errorf("check prior articles: %w", err)
	}
	if !prior {
		logger := logging.Ctx(ctx)
		logger.Debug().Str("feed_id", feed.ID).Int("articles", len(list)).
			Msg("seeding new feed without delivering")
		if err := s.StoreArticles(ctx, feed.ID, list, StoreOptions{ComparisonFields: comparisonFields}); err != nil {
			return nil, fmt.Errorf("seed feed: %w", err)
		}
		return nil, nil
	}

	fresh, err := s.FilterNew(ctx, feed.ID, list)
	if err != nil {
		return nil, err
	}
	freshSet := make(map[string]bool, len(fresh))
	for _, a := range fresh {
		freshSet[a.IDHash] = true
	}

	blockingStored, err := s.AreComparisonsStored(ctx, feed.ID, feed.BlockingComparisons)
	if err != nil {
		return nil, err
	}
	passingStored, err := s.AreComparisonsStored(ctx, feed.ID, feed.PassingComparisons)
	if err != nil {
		return nil, err
	}

	gatingBlocking := storedOnly(feed.BlockingComparisons, blockingStored)
	gatingPassing := storedOnly(feed.PassingComparisons, passingStored)

	var deliver []*models.Article
	for _, a := range list {
		if freshSet[a.IDHash] {
			blocked := false
			if len(gatingBlocking) > 0 {
				blocked, err = s.FieldsSeenBefore(ctx, feed.ID, a, gatingBlocking)
				if err != nil {
					return nil, err
				}
			}
			if !blocked {
				deliver = append(deliver, a)
			}
			continue
		}

		if len(gatingPassing) == 0 {
			continue
		}
		seen, err := s.FieldsSeenBefore(ctx, feed.ID, a, gatingPassing)
		if err != nil {
			return nil, err
		}
		if !seen {
			// A gating passing field changed value: re-deliver.
			deliver = append(deliver, a)
		}
	}

	if err := s.StoreArticles(ctx, feed.ID, list, StoreOptions{ComparisonFields: comparisonFields}); err != nil {
		return nil, fmt.Errorf("store article hashes: %w", err)
	}

	return deliver, nil
}

func storedOnly(fields []string, stored map[string]bool) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if stored[f] {
			out = append(out, f)
		}
	}
	return out
}
