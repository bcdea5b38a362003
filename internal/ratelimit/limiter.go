// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

// Scope column names, matching the delivery record store.
const (
	ScopeFeed   = "feed_id"
	ScopeMedium = "medium_id"
)

// DeliveryCounter counts persisted delivery records with a given status
// within a trailing window. Satisfied by *database.DB.
type DeliveryCounter interface {
	CountDeliveriesInWindow(ctx context.Context, scopeColumn, scopeID string, status models.DeliveryStatus, window time.Duration) (int, error)
}

// Limit caps deliveries for one scope over one trailing window.
type Limit struct {
	Scope   string
	ScopeID string
	Max     int
	Window  time.Duration
}

func (l Limit) key() string {
	return l.Scope + "|" + l.ScopeID
}

// pendingWindow bounds how long an enqueued delivery is counted in memory.
// Once its result reconciles to a sent record, the same delivery appears in
// both counts until this window expires, so it is kept short.
const pendingWindow = 2 * time.Minute

// MediumLimits converts a medium's configured rate limits, dropping
// non-positive entries.
func MediumLimits(mediumID string, limits []models.MediumRateLimit) []Limit {
	out := make([]Limit, 0, len(limits))
	for _, rl := range limits {
		if rl.Limit <= 0 || rl.TimeWindowSeconds <= 0 {
			continue
		}
		out = append(out, Limit{
			Scope:   ScopeMedium,
			ScopeID: mediumID,
			Max:     rl.Limit,
			Window:  time.Duration(rl.TimeWindowSeconds) * time.Second,
		})
	}
	return out
}

// FeedDailyLimit caps a feed's deliveries over the trailing 24 hours.
// A non-positive dayLimit means no cap and returns a zero-length slice.
func FeedDailyLimit(feedID string, dayLimit int) []Limit {
	if dayLimit <= 0 {
		return nil
	}
	return []Limit{{
		Scope:   ScopeFeed,
		ScopeID: feedID,
		Max:     dayLimit,
		Window:  24 * time.Hour,
	}}
}

// Verdict is the outcome of a limit check.
type Verdict struct {
	UnderLimit bool

	// Remaining is the smallest headroom across all checked limits, never
	// negative. math.MaxInt when no limits apply.
	Remaining int
}

// Limiter checks delivery caps. Counts combine persisted sent records with
// in-memory enqueues that have not reconciled yet.
type Limiter struct {
	counter DeliveryCounter

	mu      sync.Mutex
	pending map[string]*slidingWindowCounter
}

// NewLimiter returns a limiter backed by the given persisted counter.
func NewLimiter(counter DeliveryCounter) *Limiter {
	return &Limiter{
		counter: counter,
		pending: make(map[string]*slidingWindowCounter),
	}
}

// UnderLimit checks every limit and returns the combined verdict. An empty
// limit set is unlimited.
func (l *Limiter) UnderLimit(ctx context.Context, limits []Limit) (Verdict, error) {
	verdict := Verdict{UnderLimit: true, Remaining: math.MaxInt}
	for _, limit := range limits {
		count, err := l.counter.CountDeliveriesInWindow(ctx, limit.Scope, limit.ScopeID, models.StatusSent, limit.Window)
		if err != nil {
			return Verdict{}, fmt.Errorf("count deliveries for %s %s: %w", limit.Scope, limit.ScopeID, err)
		}
		count += int(l.pendingCount(limit))

		remaining := limit.Max - count
		if remaining <= 0 {
			return Verdict{UnderLimit: false, Remaining: 0}, nil
		}
		if remaining < verdict.Remaining {
			verdict.Remaining = remaining
		}
	}
	return verdict, nil
}

// RecordEnqueued notes one delivery enqueued against the given limits, so
// subsequent checks see it before the result reconciles.
func (l *Limiter) RecordEnqueued(limits []Limit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, limit := range limits {
		key := limit.key()
		counter, ok := l.pending[key]
		if !ok {
			counter = newSlidingWindowCounter(pendingWindow, defaultNumBuckets)
			l.pending[key] = counter
		}
		counter.Increment(1)
	}
}

func (l *Limiter) pendingCount(limit Limit) int64 {
	l.mu.Lock()
	counter, ok := l.pending[limit.key()]
	l.mu.Unlock()

	if !ok {
		return 0
	}
	return counter.Count()
}
