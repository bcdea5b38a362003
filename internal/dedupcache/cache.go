// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

// Package dedupcache suppresses duplicate deliveries. Before an article is
// enqueued to a medium the orchestrator claims a (medium, article) key here;
// a second claim within the TTL means the pair was already processed, so
// redelivered events cannot double-post.
package dedupcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultTTL is how long a claimed key blocks re-delivery. Duplicate events
// arrive within seconds of each other; minutes of coverage is enough.
const DefaultTTL = 3 * time.Minute

// ErrClosed marks operations on a closed cache.
var ErrClosed = errors.New("dedup cache is closed")

// Config holds cache settings.
type Config struct {
	// Path is the on-disk location of the store. Ignored when InMemory is
	// set.
	Path string `koanf:"path"`

	// TTL is how long claimed keys persist. Zero means DefaultTTL.
	TTL time.Duration `koanf:"ttl"`

	// InMemory keeps the store off disk. Used in tests.
	InMemory bool `koanf:"in_memory"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path: "/data/monitorss-dedup",
		TTL:  DefaultTTL,
	}
}

// Cache is a BadgerDB-backed TTL key store.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// New opens the cache.
func New(cfg Config) (*Cache, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open dedup cache: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// DeliveryKey builds the claim key for one (feed, medium, article) triple.
func DeliveryKey(feedID, mediumID, articleIDHash string) string {
	return "delivery:" + feedID + ":" + mediumID + ":" + articleIDHash
}

// CheckAndSet atomically claims a key. It returns true when the key was
// already claimed and still live, in which case the claim is left untouched.
func (c *Cache) CheckAndSet(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var exists bool
	err := c.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			exists = true
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		entry := badger.NewEntry([]byte(key), nil).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return false, fmt.Errorf("claim dedup key: %w", err)
	}
	return exists, nil
}

// Exists reports whether a key is currently claimed.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var exists bool
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("check dedup key: %w", err)
	}
	return exists, nil
}

// Delete releases a claim early, so a failed enqueue can be retried by a
// redelivered event.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("release dedup key: %w", err)
	}
	return nil
}

// RunGC reclaims value log space. Badger returns ErrNoRewrite when there is
// nothing to collect, which is not an error for callers.
func (c *Cache) RunGC() error {
	err := c.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
		return nil
	}
	return err
}

// Close flushes and closes the store.
func (c *Cache) Close() error {
	return c.db.Close()
}
