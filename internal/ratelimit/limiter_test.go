// MonitoRSS - Feed Article Delivery Pipeline
// Copyright 2026 synzen
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/synzen/MonitoRSS-sub001

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/synzen/MonitoRSS-sub001/internal/models"
)

type fakeCounter struct {
	counts map[string]int // scope|id
}

func (f *fakeCounter) CountDeliveriesInWindow(_ context.Context, scopeColumn, scopeID string, _ models.DeliveryStatus, _ time.Duration) (int, error) {
	return f.counts[scopeColumn+"|"+scopeID], nil
}

func TestUnderLimitNoLimits(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(&fakeCounter{})
	verdict, err := limiter.UnderLimit(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.UnderLimit {
		t.Error("no limits must mean under limit")
	}
}

func TestUnderLimitRemainingIsSmallestHeadroom(t *testing.T) {
	t.Parallel()

	counter := &fakeCounter{counts: map[string]int{
		"medium_id|m1": 3,
		"feed_id|f1":   8,
	}}
	limiter := NewLimiter(counter)

	limits := []Limit{
		{Scope: ScopeMedium, ScopeID: "m1", Max: 10, Window: time.Minute},
		{Scope: ScopeFeed, ScopeID: "f1", Max: 10, Window: 24 * time.Hour},
	}
	verdict, err := limiter.UnderLimit(context.Background(), limits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.UnderLimit {
		t.Fatal("expected under limit")
	}
	if verdict.Remaining != 2 {
		t.Errorf("expected remaining 2, got %d", verdict.Remaining)
	}
}

func TestUnderLimitExceeded(t *testing.T) {
	t.Parallel()

	counter := &fakeCounter{counts: map[string]int{"medium_id|m1": 10}}
	limiter := NewLimiter(counter)

	limits := []Limit{{Scope: ScopeMedium, ScopeID: "m1", Max: 10, Window: time.Minute}}
	verdict, err := limiter.UnderLimit(context.Background(), limits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.UnderLimit {
		t.Error("expected over limit")
	}
	if verdict.Remaining != 0 {
		t.Errorf("expected remaining 0, got %d", verdict.Remaining)
	}
}

func TestRecordEnqueuedCountsAgainstLimit(t *testing.T) {
	t.Parallel()

	counter := &fakeCounter{counts: map[string]int{"medium_id|m1": 8}}
	limiter := NewLimiter(counter)

	limits := []Limit{{Scope: ScopeMedium, ScopeID: "m1", Max: 10, Window: time.Minute}}
	limiter.RecordEnqueued(limits)
	limiter.RecordEnqueued(limits)

	verdict, err := limiter.UnderLimit(context.Background(), limits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.UnderLimit {
		t.Error("persisted plus pending must exhaust the limit")
	}
}

func TestMediumLimitsDropsInvalid(t *testing.T) {
	t.Parallel()

	limits := MediumLimits("m1", []models.MediumRateLimit{
		{Limit: 5, TimeWindowSeconds: 60},
		{Limit: 0, TimeWindowSeconds: 60},
		{Limit: 5, TimeWindowSeconds: 0},
	})
	if len(limits) != 1 {
		t.Fatalf("expected 1 valid limit, got %d", len(limits))
	}
	if limits[0].Window != time.Minute || limits[0].Max != 5 {
		t.Errorf("unexpected limit: %+v", limits[0])
	}
}

func TestFeedDailyLimit(t *testing.T) {
	t.Parallel()

	if got := FeedDailyLimit("f1", 0); len(got) != 0 {
		t.Errorf("non-positive day limit must yield no limits, got %v", got)
	}
	limits := FeedDailyLimit("f1", 25)
	if len(limits) != 1 || limits[0].Window != 24*time.Hour || limits[0].Max != 25 {
		t.Errorf("unexpected daily limit: %v", limits)
	}
}
